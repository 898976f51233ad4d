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

package ptx

import (
	"github.com/llir/llvm/ir/value"
	"github.com/ptx-org/ptxgen/build/ir"
	"github.com/ptx-org/ptxgen/build/rewrite"
)

// The hardware rewards exactly one widening: four dense 32-bit lanes
// issued as a single 128-bit transaction.
const fuseLanes = 4

// fusibleBase returns the base index of an access that can be fused
// into one 128-bit transaction: unpredicated, dense, four 32-bit
// lanes, on a 16-byte aligned address.
func fusibleBase(t ir.Type, index, pred ir.Expr, align ir.ModulusRemainder) (ir.Expr, bool) {
	if !ir.IsConstTrue(pred) {
		return nil, false
	}
	ramp, ok := index.(*ir.Ramp)
	if !ok || !ir.IsConstOne(ramp.Stride) {
		return nil, false
	}
	if t.Lanes != fuseLanes || t.Bits != 32 {
		return nil, false
	}
	if !align.DivisibleBy(fuseLanes) {
		return nil, false
	}
	return ramp.Base, true
}

// fusedLoad rewrites a fusible load as one 128-bit load reinterpreted
// back to the original vector type.
func (g *CodeGen) fusedLoad(e *ir.Load) (value.Value, bool, error) {
	base, ok := fusibleBase(e.T, e.Index, e.Predicate, e.Align)
	if !ok {
		return nil, false, nil
	}
	wide := &ir.Load{
		T:     ir.UintType(128, 1),
		Name:  e.Name,
		Index: rewrite.Simplify(ir.Div(base, ir.Imm(fuseLanes))),
		Align: e.Align.Div(fuseLanes),
	}
	v, err := g.Expr(&ir.Reinterpret{T: e.T, Value: wide})
	return v, true, err
}

// fusedStore rewrites a fusible store as one 128-bit store of the
// reinterpreted value.
func (g *CodeGen) fusedStore(s *ir.Store) (bool, error) {
	base, ok := fusibleBase(s.Value.Type(), s.Index, s.Predicate, s.Align)
	if !ok {
		return false, nil
	}
	wide := &ir.Store{
		Name:  s.Name,
		Value: &ir.Reinterpret{T: ir.UintType(128, 1), Value: s.Value},
		Index: rewrite.Simplify(ir.Div(base, ir.Imm(fuseLanes))),
		Align: s.Align.Div(fuseLanes),
	}
	return true, g.Stmt(wide)
}
