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
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/ptx-org/ptxgen/build/ir"
	"github.com/stretchr/testify/require"
)

// loadKernel lowers a single load stored lane-unfused to a wide
// scratch buffer, so that only the load under test can fuse.
func loadKernel(t *testing.T, load *ir.Load) *llvmir.Func {
	t.Helper()
	g := newCG(t)
	lanes := load.T.Lanes
	// A strided store never fuses: the interesting access is the load.
	sink := &ir.Store{
		Name:  "out",
		Value: load,
		Index: &ir.Ramp{Base: ir.Imm(0), Stride: ir.Imm(2), Lanes: lanes},
	}
	args := []ir.DeviceArg{
		{Name: "in", T: load.T.Elem(), IsBuffer: true},
		{Name: "out", T: load.T.Elem(), IsBuffer: true},
	}
	require.NoError(t, g.AddKernel("probe", args, sink))
	return kernelFunc(t, g, "probe")
}

func wideLoads(f *llvmir.Func) []*llvmir.InstLoad {
	var out []*llvmir.InstLoad
	for _, ld := range instsOf[*llvmir.InstLoad](f) {
		if types.Equal(ld.ElemType, types.I128) {
			out = append(out, ld)
		}
	}
	return out
}

func TestFusionDenseAligned(t *testing.T) {
	f := loadKernel(t, &ir.Load{
		T:     ir.IntType(32, 4),
		Name:  "in",
		Index: &ir.Ramp{Base: ir.Imm(8), Stride: ir.Imm(1), Lanes: 4},
		Align: ir.ModulusRemainder{Modulus: 4, Remainder: 0},
	})
	wides := wideLoads(f)
	require.Len(t, wides, 1)
	require.Len(t, instsOf[*llvmir.InstLoad](f), 1, "only the fused load reads memory")

	// The element index is rescaled to 128-bit units: 8/4 == 2.
	geps := instsOf[*llvmir.InstGetElementPtr](f)
	require.NotEmpty(t, geps)
	idx, ok := geps[0].Indices[0].(*constant.Int)
	require.True(t, ok)
	require.Equal(t, int64(2), idx.X.Int64())
}

func TestFusionRequiresUnitStride(t *testing.T) {
	f := loadKernel(t, &ir.Load{
		T:     ir.IntType(32, 4),
		Name:  "in",
		Index: &ir.Ramp{Base: ir.Imm(0), Stride: ir.Imm(2), Lanes: 4},
		Align: ir.ModulusRemainder{Modulus: 4, Remainder: 0},
	})
	require.Empty(t, wideLoads(f))
	// Strided: one scalar load per lane.
	require.Len(t, instsOf[*llvmir.InstLoad](f), 4)
}

func TestFusionRequiresFourLanes(t *testing.T) {
	f := loadKernel(t, &ir.Load{
		T:     ir.IntType(32, 8),
		Name:  "in",
		Index: &ir.Ramp{Base: ir.Imm(0), Stride: ir.Imm(1), Lanes: 8},
		Align: ir.ModulusRemainder{Modulus: 8, Remainder: 0},
	})
	require.Empty(t, wideLoads(f))
	// Still a single access, at the plain vector shape.
	loads := instsOf[*llvmir.InstLoad](f)
	require.Len(t, loads, 1)
	_, ok := loads[0].ElemType.(*types.VectorType)
	require.True(t, ok)
}

func TestFusionRequires32BitLanes(t *testing.T) {
	f := loadKernel(t, &ir.Load{
		T:     ir.IntType(16, 4),
		Name:  "in",
		Index: &ir.Ramp{Base: ir.Imm(0), Stride: ir.Imm(1), Lanes: 4},
		Align: ir.ModulusRemainder{Modulus: 4, Remainder: 0},
	})
	require.Empty(t, wideLoads(f))
}

func TestFusionRequiresAlignment(t *testing.T) {
	// Unknown alignment, a known offset of half a transaction, and a
	// modulus too coarse to prove anything.
	misaligned := []ir.ModulusRemainder{
		{},
		{Modulus: 4, Remainder: 2},
		{Modulus: 2, Remainder: 0},
	}
	for _, align := range misaligned {
		f := loadKernel(t, &ir.Load{
			T:     ir.IntType(32, 4),
			Name:  "in",
			Index: &ir.Ramp{Base: ir.Imm(0), Stride: ir.Imm(1), Lanes: 4},
			Align: align,
		})
		require.Empty(t, wideLoads(f), "alignment %+v", align)
	}
}

func TestFusionRequiresTrivialPredicate(t *testing.T) {
	g := newCG(t)
	pred := &ir.Broadcast{Value: &ir.Var{T: ir.BoolType(1), Name: "p"}, Lanes: 4}
	load := &ir.Load{
		T:         ir.IntType(32, 4),
		Name:      "in",
		Index:     &ir.Ramp{Base: ir.Imm(0), Stride: ir.Imm(1), Lanes: 4},
		Predicate: pred,
		Align:     ir.ModulusRemainder{Modulus: 4, Remainder: 0},
	}
	sink := &ir.Store{
		Name:  "out",
		Value: load,
		Index: &ir.Ramp{Base: ir.Imm(0), Stride: ir.Imm(2), Lanes: 4},
	}
	args := []ir.DeviceArg{i32buf("in"), i32buf("out"), {Name: "p", T: ir.BoolType(1)}}
	require.NoError(t, g.AddKernel("pred", args, sink))
	f := kernelFunc(t, g, "pred")
	require.Empty(t, wideLoads(f))
	// Masked lanes load behind per-lane branches.
	require.Len(t, instsOf[*llvmir.InstLoad](f), 4)
	require.NotEmpty(t, instsOf[*llvmir.InstPhi](f))
}

func TestFusedStoreConstTruePredicate(t *testing.T) {
	// An explicit constant-true predicate counts as unpredicated.
	g := newCG(t)
	index := &ir.Ramp{Base: ir.Imm(0), Stride: ir.Imm(1), Lanes: 4}
	store := &ir.Store{
		Name:      "out",
		Value:     &ir.Broadcast{Value: ir.Imm(1), Lanes: 4},
		Index:     index,
		Predicate: ir.ConstTrue(4),
		Align:     ir.ModulusRemainder{Modulus: 4, Remainder: 0},
	}
	require.NoError(t, g.AddKernel("fused", []ir.DeviceArg{i32buf("out")}, store))
	f := kernelFunc(t, g, "fused")
	stores := instsOf[*llvmir.InstStore](f)
	require.Len(t, stores, 1)
	require.True(t, types.Equal(stores[0].Src.Type(), types.I128))
}
