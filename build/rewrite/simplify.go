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

package rewrite

import "github.com/ptx-org/ptxgen/build/ir"

// Simplify folds constants and applies a small set of algebraic
// identities, bottom-up. It is deliberately conservative: every rewrite
// preserves integer semantics exactly.
func Simplify(e ir.Expr) ir.Expr {
	return transform(e, simplifyNode)
}

func simplifyNode(e ir.Expr) ir.Expr {
	b, ok := e.(*ir.Binary)
	if !ok {
		if n, ok := e.(*ir.Not); ok {
			if v, ok := ir.ConstInt(n.Value); ok {
				return ir.ImmOf(n.Value.Type(), 1-v)
			}
		}
		return e
	}
	av, aConst := constOperand(b.A)
	bv, bConst := constOperand(b.B)
	if aConst && bConst {
		if folded, ok := foldConst(b, av, bv); ok {
			return folded
		}
	}
	switch b.Op {
	case ir.OpAdd:
		if aConst && av == 0 {
			return b.B
		}
		if bConst && bv == 0 {
			return b.A
		}
	case ir.OpSub:
		if bConst && bv == 0 {
			return b.A
		}
	case ir.OpMul:
		if aConst && av == 1 {
			return b.B
		}
		if bConst && bv == 1 {
			return b.A
		}
		if (aConst && av == 0) || (bConst && bv == 0) {
			return ir.ImmOf(b.Type(), 0)
		}
	case ir.OpDiv:
		if bConst && bv == 1 {
			return b.A
		}
		if bConst && bv != 0 {
			if quot, ok := divide(b.A, bv); ok {
				return quot
			}
		}
	}
	return b
}

func constOperand(e ir.Expr) (int64, bool) {
	if e.Type().IsFloat() {
		return 0, false
	}
	return ir.ConstInt(e)
}

func foldConst(b *ir.Binary, av, bv int64) (ir.Expr, bool) {
	t := b.A.Type()
	boolResult := func(v bool) ir.Expr {
		if v {
			return ir.ConstTrue(t.Lanes)
		}
		return &ir.UIntImm{T: ir.BoolType(t.Lanes)}
	}
	switch b.Op {
	case ir.OpAdd:
		return ir.ImmOf(t, av+bv), true
	case ir.OpSub:
		return ir.ImmOf(t, av-bv), true
	case ir.OpMul:
		return ir.ImmOf(t, av*bv), true
	case ir.OpDiv:
		if bv == 0 {
			return nil, false
		}
		return ir.ImmOf(t, av/bv), true
	case ir.OpMod:
		if bv == 0 {
			return nil, false
		}
		return ir.ImmOf(t, av%bv), true
	case ir.OpMin:
		return ir.ImmOf(t, min(av, bv)), true
	case ir.OpMax:
		return ir.ImmOf(t, max(av, bv)), true
	case ir.OpEQ:
		return boolResult(av == bv), true
	case ir.OpNE:
		return boolResult(av != bv), true
	case ir.OpLT:
		return boolResult(av < bv), true
	case ir.OpLE:
		return boolResult(av <= bv), true
	case ir.OpGT:
		return boolResult(av > bv), true
	case ir.OpGE:
		return boolResult(av >= bv), true
	}
	return nil, false
}

// divide returns e/d when divisibility is provable from the structure
// of e. Only exact divisions are rewritten.
func divide(e ir.Expr, d int64) (ir.Expr, bool) {
	if v, ok := ir.ConstInt(e); ok && e.Type().IsIntOrUint() {
		if v%d == 0 {
			return ir.ImmOf(e.Type(), v/d), true
		}
		return nil, false
	}
	b, ok := e.(*ir.Binary)
	if !ok {
		return nil, false
	}
	switch b.Op {
	case ir.OpMul:
		if c, ok := constOperand(b.B); ok && c%d == 0 {
			return simplifyNode(ir.Mul(b.A, ir.ImmOf(b.B.Type(), c/d))), true
		}
		if c, ok := constOperand(b.A); ok && c%d == 0 {
			return simplifyNode(ir.Mul(ir.ImmOf(b.A.Type(), c/d), b.B)), true
		}
	case ir.OpAdd:
		qa, okA := divide(b.A, d)
		qb, okB := divide(b.B, d)
		if okA && okB {
			return simplifyNode(ir.Add(qa, qb)), true
		}
	}
	return nil, false
}
