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

// LosslessCast returns an expression of type t carrying exactly the
// same values as e, or false if the conversion cannot be proven
// lossless. Widening casts are stripped; immediates are re-typed when
// they fit.
func LosslessCast(t ir.Type, e ir.Expr) (ir.Expr, bool) {
	if e == nil {
		return nil, false
	}
	et := e.Type()
	if et == t {
		return e, true
	}
	if t.Lanes != et.Lanes {
		return nil, false
	}
	switch e := e.(type) {
	case *ir.IntImm:
		if immFits(t, e.Value) {
			return ir.ImmOf(t, e.Value), true
		}
		return nil, false
	case *ir.UIntImm:
		if e.Value <= 1<<62 && immFits(t, int64(e.Value)) {
			return ir.ImmOf(t, int64(e.Value)), true
		}
		return nil, false
	case *ir.Cast:
		// A widening cast carries the same values as its operand.
		if representable(e.Value.Type(), e.T) {
			return LosslessCast(t, e.Value)
		}
		return nil, false
	case *ir.Broadcast:
		inner, ok := LosslessCast(t.Elem(), e.Value)
		if !ok {
			return nil, false
		}
		return &ir.Broadcast{Value: inner, Lanes: e.Lanes}, true
	}
	if representable(et, t) {
		return &ir.Cast{T: t, Value: e}, true
	}
	return nil, false
}

// representable returns true if every value of type from is a value of
// type to. Lanes are not considered.
func representable(from, to ir.Type) bool {
	switch {
	case from.IsInt() && to.IsInt():
		return to.Bits >= from.Bits
	case from.IsUint() && to.IsUint():
		return to.Bits >= from.Bits
	case from.IsUint() && to.IsInt():
		return to.Bits > from.Bits
	case from.IsFloat() && to.IsFloat():
		return to.Bits >= from.Bits
	default:
		return false
	}
}

// immFits returns true if an integer constant is a value of type t.
func immFits(t ir.Type, v int64) bool {
	if t.IsFloat() {
		return false
	}
	if t.Bits >= 64 {
		return !t.IsUint() || v >= 0
	}
	if t.IsUint() {
		return v >= 0 && v < 1<<uint(t.Bits)
	}
	lo := int64(-1) << uint(t.Bits-1)
	hi := int64(1)<<uint(t.Bits-1) - 1
	return v >= lo && v <= hi
}
