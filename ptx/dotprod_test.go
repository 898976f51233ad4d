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

package ptx_test

import (
	"testing"

	llvmir "github.com/llir/llvm/ir"
	"github.com/ptx-org/ptxgen/build/ir"
	"github.com/stretchr/testify/require"
)

// narrowLoad is an 8- or 16-bit dense aligned load widened to the
// accumulator type, the shape a dot product reduces over.
func narrowLoad(name string, elem ir.Type, lanes int, accum ir.Type) ir.Expr {
	return &ir.Cast{
		T: accum.WithLanes(lanes),
		Value: &ir.Load{
			T:     elem.WithLanes(lanes),
			Name:  name,
			Index: &ir.Ramp{Base: ir.Imm(0), Stride: ir.Imm(1), Lanes: lanes},
			Align: ir.ModulusRemainder{Modulus: int64(lanes), Remainder: 0},
		},
	}
}

// reduceKernel lowers a lane reduction of a*b stored to "out".
func reduceKernel(t *testing.T, a, b ir.Expr, outLanes int, outElem ir.Type) *llvmir.Func {
	t.Helper()
	g := newCG(t)
	reduce := &ir.VectorReduce{
		Op:    ir.ReduceAdd,
		Value: &ir.Binary{Op: ir.OpMul, A: a, B: b},
		Lanes: outLanes,
	}
	var index ir.Expr = ir.Imm(0)
	if outLanes > 1 {
		index = &ir.Ramp{Base: ir.Imm(0), Stride: ir.Imm(1), Lanes: outLanes}
	}
	sink := &ir.Store{Name: "out", Value: reduce, Index: index}
	args := []ir.DeviceArg{
		{Name: "a", T: outElem, IsBuffer: true},
		{Name: "b", T: outElem, IsBuffer: true},
		{Name: "out", T: outElem, IsBuffer: true},
	}
	require.NoError(t, g.AddKernel("reduce", args, sink))
	return kernelFunc(t, g, "reduce")
}

func countCallee(f *llvmir.Func, name string) int {
	n := 0
	for _, callee := range callees(f) {
		if callee == name {
			n++
		}
	}
	return n
}

func TestDotProductSigned8Bit(t *testing.T) {
	i32 := ir.IntType(32, 1)
	f := reduceKernel(t,
		narrowLoad("a", ir.IntType(8, 1), 4, i32),
		narrowLoad("b", ir.IntType(8, 1), 4, i32),
		1, i32)
	require.Equal(t, 1, countCallee(f, "dp4a_s32_s32"))
	// Aligned dense operands are re-issued as packed 32-bit loads: one
	// word per side.
	require.Len(t, instsOf[*llvmir.InstLoad](f), 2)
}

func TestDotProductUnsigned8Bit(t *testing.T) {
	u32 := ir.UintType(32, 1)
	f := reduceKernel(t,
		narrowLoad("a", ir.UintType(8, 1), 4, u32),
		narrowLoad("b", ir.UintType(8, 1), 4, u32),
		1, u32)
	require.Equal(t, 1, countCallee(f, "dp4a_u32_u32"))
}

func TestDotProductSignedReductionUnsignedOperands(t *testing.T) {
	// A signed reduction retries each operand as unsigned when the
	// signed narrowing fails.
	i32 := ir.IntType(32, 1)
	f := reduceKernel(t,
		narrowLoad("a", ir.UintType(8, 1), 4, i32),
		narrowLoad("b", ir.UintType(8, 1), 4, i32),
		1, i32)
	require.Equal(t, 1, countCallee(f, "dp4a_u32_u32"))
}

func TestDotProductMixed16And8Bit(t *testing.T) {
	// One operand only narrows to 16 bits: dp2a, with the 16-bit side
	// split into a low and a high word per call.
	i32 := ir.IntType(32, 1)
	f := reduceKernel(t,
		narrowLoad("a", ir.IntType(16, 1), 4, i32),
		narrowLoad("b", ir.IntType(8, 1), 4, i32),
		1, i32)
	require.Equal(t, 1, countCallee(f, "dp2a_s32_s32"))
	for _, call := range instsOf[*llvmir.InstCall](f) {
		fn, ok := call.Callee.(*llvmir.Func)
		if !ok || fn.Name() != "dp2a_s32_s32" {
			continue
		}
		require.Len(t, call.Args, 4)
	}
}

func TestDotProductWideOperandIsAlwaysFirst(t *testing.T) {
	// The 16-bit side lands in the 'a' position regardless of where it
	// appeared in the multiply.
	i32 := ir.IntType(32, 1)
	f := reduceKernel(t,
		narrowLoad("a", ir.IntType(8, 1), 4, i32),
		narrowLoad("b", ir.IntType(16, 1), 4, i32),
		1, i32)
	require.Equal(t, 1, countCallee(f, "dp2a_s32_s32"))
}

func TestDotProductPerOutputLane(t *testing.T) {
	// Two output lanes over eight products: one dp4a chain per lane.
	i32 := ir.IntType(32, 1)
	f := reduceKernel(t,
		narrowLoad("a", ir.IntType(8, 1), 8, i32),
		narrowLoad("b", ir.IntType(8, 1), 8, i32),
		2, i32)
	require.Equal(t, 2, countCallee(f, "dp4a_s32_s32"))
}

func TestDotProductUnalignedOperandsStillMatch(t *testing.T) {
	// Operands without provable alignment cannot be re-issued as packed
	// loads; they are reinterpreted in registers instead.
	i32 := ir.IntType(32, 1)
	unaligned := func(name string) ir.Expr {
		return &ir.Cast{
			T: ir.IntType(32, 4),
			Value: &ir.Load{
				T:     ir.IntType(8, 4),
				Name:  name,
				Index: &ir.Ramp{Base: ir.Imm(0), Stride: ir.Imm(1), Lanes: 4},
			},
		}
	}
	f := reduceKernel(t, unaligned("a"), unaligned("b"), 1, i32)
	require.Equal(t, 1, countCallee(f, "dp4a_s32_s32"))
	require.NotEmpty(t, instsOf[*llvmir.InstBitCast](f))
}

func TestDotProductFallsBackOnFactor(t *testing.T) {
	// A reduction factor of two has no dot-product rendition.
	i32 := ir.IntType(32, 1)
	f := reduceKernel(t,
		narrowLoad("a", ir.IntType(8, 1), 8, i32),
		narrowLoad("b", ir.IntType(8, 1), 8, i32),
		4, i32)
	for _, name := range callees(f) {
		require.NotContains(t, name, "dp4a")
		require.NotContains(t, name, "dp2a")
	}
}

func TestDotProductFallsBackOnWideValues(t *testing.T) {
	// 32-bit operands cannot narrow: the reduction lowers generically.
	i32 := ir.IntType(32, 1)
	a := &ir.Load{
		T:     ir.IntType(32, 4),
		Name:  "a",
		Index: &ir.Ramp{Base: ir.Imm(0), Stride: ir.Imm(1), Lanes: 4},
	}
	b := &ir.Load{
		T:     ir.IntType(32, 4),
		Name:  "b",
		Index: &ir.Ramp{Base: ir.Imm(0), Stride: ir.Imm(1), Lanes: 4},
	}
	f := reduceKernel(t, a, b, 1, i32)
	require.Empty(t, callees(f))
	// Three adds chain the four products.
	require.NotEmpty(t, instsOf[*llvmir.InstMul](f))
}
