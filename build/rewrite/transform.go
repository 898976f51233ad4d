// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rewrite provides expression rewrites used by the lowering
// engine: algebraic simplification, lossless narrowing, and common
// subexpression elimination.
package rewrite

import "github.com/ptx-org/ptxgen/build/ir"

// transform rewrites an expression bottom-up: children are transformed
// first, then f is applied to the rebuilt node.
func transform(e ir.Expr, f func(ir.Expr) ir.Expr) ir.Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *ir.Binary:
		e = &ir.Binary{Op: n.Op, A: transform(n.A, f), B: transform(n.B, f)}
	case *ir.Not:
		e = &ir.Not{Value: transform(n.Value, f)}
	case *ir.Select:
		e = &ir.Select{
			Cond:  transform(n.Cond, f),
			True:  transform(n.True, f),
			False: transform(n.False, f),
		}
	case *ir.Ramp:
		e = &ir.Ramp{Base: transform(n.Base, f), Stride: transform(n.Stride, f), Lanes: n.Lanes}
	case *ir.Broadcast:
		e = &ir.Broadcast{Value: transform(n.Value, f), Lanes: n.Lanes}
	case *ir.Load:
		e = &ir.Load{
			T:         n.T,
			Name:      n.Name,
			Index:     transform(n.Index, f),
			Predicate: transform(n.Predicate, f),
			Align:     n.Align,
		}
	case *ir.Cast:
		e = &ir.Cast{T: n.T, Value: transform(n.Value, f)}
	case *ir.Reinterpret:
		e = &ir.Reinterpret{T: n.T, Value: transform(n.Value, f)}
	case *ir.Call:
		args := make([]ir.Expr, len(n.Args))
		for i, arg := range n.Args {
			args[i] = transform(arg, f)
		}
		e = &ir.Call{T: n.T, Name: n.Name, Args: args, Kind: n.Kind}
	case *ir.Let:
		e = &ir.Let{Name: n.Name, Value: transform(n.Value, f), Body: transform(n.Body, f)}
	case *ir.Shuffle:
		vecs := make([]ir.Expr, len(n.Vectors))
		for i, v := range n.Vectors {
			vecs[i] = transform(v, f)
		}
		e = &ir.Shuffle{Vectors: vecs, Indices: n.Indices}
	case *ir.VectorReduce:
		e = &ir.VectorReduce{
			Op:    n.Op,
			Value: transform(n.Value, f),
			Lanes: n.Lanes,
			Init:  transform(n.Init, f),
		}
	}
	return f(e)
}

// walk visits every subexpression of e, children first.
func walk(e ir.Expr, visit func(ir.Expr)) {
	transform(e, func(sub ir.Expr) ir.Expr {
		visit(sub)
		return sub
	})
}
