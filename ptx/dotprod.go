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

// dotProduct pattern-matches a lane reduction against the 8/16-bit
// dot-product instructions. A summation of products whose operands
// losslessly narrow to 8 bits (or one side to 16 bits) is issued as a
// chain of dp4a/dp2a calls over the operands reinterpreted as packed
// 32-bit words.
func (g *CodeGen) dotProduct(e *ir.VectorReduce) (value.Value, bool, error) {
	mul, ok := e.Value.(*ir.Binary)
	if !ok || mul.Op != ir.OpMul || e.Op != ir.ReduceAdd {
		return nil, false, nil
	}
	inputLanes := e.Value.Type().Lanes
	factor := inputLanes / e.Lanes
	outElem := e.Type().Elem()
	if factor%4 != 0 || outElem.Bits != 32 || !outElem.IsIntOrUint() {
		return nil, false, nil
	}
	init := e.Init
	if init == nil {
		init = ir.ImmOf(e.Value.Type().Elem(), 0)
	}

	// Try to narrow both multiply operands to 8 bits. An unsigned
	// reduction only admits unsigned operands; a signed one prefers
	// signed operands and retries each side as unsigned.
	var a, b ir.Expr
	var aOK, bOK bool
	if outElem.IsUint() {
		a, aOK = rewrite.LosslessCast(ir.UintType(8, inputLanes), mul.A)
		b, bOK = rewrite.LosslessCast(ir.UintType(8, inputLanes), mul.B)
	} else {
		a, aOK = rewrite.LosslessCast(ir.IntType(8, inputLanes), mul.A)
		b, bOK = rewrite.LosslessCast(ir.IntType(8, inputLanes), mul.B)
		if !aOK {
			a, aOK = rewrite.LosslessCast(ir.UintType(8, inputLanes), mul.A)
		}
		if !bOK {
			b, bOK = rewrite.LosslessCast(ir.UintType(8, inputLanes), mul.B)
		}
	}
	// If only one side narrowed to 8 bits, try 16 bits on the other.
	// Swap so that the wide side is always 'a'.
	aOrig := mul.A
	if aOK && !bOK {
		a, b = b, a
		aOK, bOK = bOK, aOK
		aOrig = mul.B
	}
	if bOK && !aOK {
		a, aOK = rewrite.LosslessCast(ir.UintType(16, inputLanes), aOrig)
		if !aOK && !outElem.IsUint() {
			a, aOK = rewrite.LosslessCast(ir.IntType(16, inputLanes), aOrig)
		}
	}
	if !aOK || !bOK {
		return nil, false, nil
	}

	name := "dp4a"
	if a.Type().Bits == 16 {
		name = "dp2a"
	}
	name += signednessSuffix(a.Type()) + signednessSuffix(b.Type())
	aWords := factor * a.Type().Bits / 32
	bWords := factor * b.Type().Bits / 32

	// View both operands as packed 32-bit words: aligned dense loads
	// are re-issued at the narrower lane count, anything else is a
	// plain bit reinterpretation.
	a = packWords(a, inputLanes)
	b = packWords(b, inputLanes)

	result := make([]ir.Expr, e.Lanes)
	for l := 0; l < e.Lanes; l++ {
		acc := init
		if init.Type().Lanes > 1 {
			acc = ir.ExtractLane(init, l)
		}
		aSlice := sliceWords(a, l*aWords, aWords)
		bSlice := sliceWords(b, l*bWords, bWords)
		for i := 0; i < bWords; i++ {
			var args []ir.Expr
			if a.Type().Lanes == b.Type().Lanes {
				// dp4a, or dp2a with both sides 16-bit: one word each.
				args = []ir.Expr{wordAt(aSlice, i), wordAt(bSlice, i), acc}
			} else {
				// dp2a: two 16-bit words of 'a' pair with one 8-bit
				// word of 'b'.
				args = []ir.Expr{
					wordAt(aSlice, 2*i),
					wordAt(aSlice, 2*i+1),
					wordAt(bSlice, i),
					acc,
				}
			}
			acc = &ir.Call{T: acc.Type(), Name: name, Args: args, Kind: ir.CallPureExtern}
		}
		result[l] = rewrite.CSE(rewrite.Simplify(acc))
	}
	v, err := g.Expr(ir.Concat(result...))
	return v, true, err
}

func signednessSuffix(t ir.Type) string {
	if t.IsInt() {
		return "_s32"
	}
	return "_u32"
}

// packWords reinterprets a narrow vector as packed 32-bit words. An
// aligned dense load is re-issued directly at the packed shape instead.
func packWords(e ir.Expr, inputLanes int) ir.Expr {
	subLanes := int64(32 / e.Type().Bits)
	wordLanes := inputLanes / int(subLanes)
	if ld, ok := e.(*ir.Load); ok {
		if ramp, ok := ld.Index.(*ir.Ramp); ok &&
			ir.IsConstOne(ramp.Stride) && ld.Align.DivisibleBy(subLanes) {
			idx := rewrite.Simplify(ir.Div(ramp.Base, ir.Imm(subLanes)))
			if inputLanes > int(subLanes) {
				idx = &ir.Ramp{Base: idx, Stride: ir.Imm(1), Lanes: wordLanes}
			}
			return &ir.Load{
				T:     ir.IntType(32, wordLanes),
				Name:  ld.Name,
				Index: idx,
				Align: ld.Align.Div(subLanes),
			}
		}
	}
	return &ir.Reinterpret{T: ir.IntType(32, wordLanes), Value: e}
}

// sliceWords extracts count consecutive words starting at a word
// offset. A scalar operand is its own single word.
func sliceWords(e ir.Expr, start, count int) ir.Expr {
	if e.Type().IsScalar() {
		return e
	}
	return ir.SliceLanes(e, start, 1, count)
}

// wordAt extracts one word of a slice.
func wordAt(e ir.Expr, i int) ir.Expr {
	if e.Type().IsScalar() {
		return e
	}
	return ir.ExtractLane(e, i)
}
