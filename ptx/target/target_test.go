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

package target_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/ptx-org/ptxgen/build/ir"
	"github.com/ptx-org/ptxgen/ptx/target"
	"github.com/stretchr/testify/require"
)

func newTarget(t *testing.T, features ...target.Feature) *target.Target {
	t.Helper()
	tgt, err := target.New(append([]target.Feature{target.CUDA}, features...)...)
	require.NoError(t, err)
	return tgt
}

func TestArchitecturePrecedence(t *testing.T) {
	tests := []struct {
		features []target.Feature
		wantCPU  string
	}{
		{features: nil, wantCPU: "sm_20"},
		{features: []target.Feature{target.CUDACapability30}, wantCPU: "sm_30"},
		{features: []target.Feature{target.CUDACapability50}, wantCPU: "sm_50"},
		{features: []target.Feature{target.CUDACapability80}, wantCPU: "sm_80"},
		// The highest generation present wins.
		{
			features: []target.Feature{target.CUDACapability35, target.CUDACapability75},
			wantCPU:  "sm_75",
		},
		{
			features: []target.Feature{target.CUDACapability80, target.CUDACapability30},
			wantCPU:  "sm_80",
		},
	}
	for _, test := range tests {
		tgt := newTarget(t, test.features...)
		require.Equal(t, test.wantCPU, tgt.MCPU(), "features %v", test.features)
	}
}

func TestISAGrouping(t *testing.T) {
	// The feature-string groupings do not correspond 1:1 with the
	// generation list.
	tests := []struct {
		features []target.Feature
		want     string
	}{
		{features: []target.Feature{target.CUDACapability80}, want: "+ptx70"},
		{features: []target.Feature{target.CUDACapability75}, want: "+ptx60"},
		{features: []target.Feature{target.CUDACapability70}, want: "+ptx60"},
		{features: []target.Feature{target.CUDACapability61}, want: "+ptx50"},
		{features: []target.Feature{target.CUDACapability50}, want: "+ptx40"},
		{features: []target.Feature{target.CUDACapability32}, want: "+ptx40"},
		{features: []target.Feature{target.CUDACapability35}, want: ""},
		{features: []target.Feature{target.CUDACapability30}, want: ""},
		{features: nil, want: ""},
	}
	for _, test := range tests {
		tgt := newTarget(t, test.features...)
		require.Equal(t, test.want, tgt.MAttrs(), "features %v", test.features)
	}
}

func TestISAMonotonicity(t *testing.T) {
	// From oldest to newest generation, the ISA version never goes down.
	generations := []target.Feature{
		target.CUDACapability30,
		target.CUDACapability32,
		target.CUDACapability35,
		target.CUDACapability50,
		target.CUDACapability61,
		target.CUDACapability70,
		target.CUDACapability75,
		target.CUDACapability80,
	}
	rank := map[string]int{"": 0, "+ptx40": 1, "+ptx50": 2, "+ptx60": 3, "+ptx70": 4}
	prev := -1
	for _, gen := range generations {
		tgt := newTarget(t, gen)
		isa, ok := rank[tgt.MAttrs()]
		require.True(t, ok, "unknown ISA string %q", tgt.MAttrs())
		if gen == target.CUDACapability35 || gen == target.CUDACapability30 {
			// Both resolve to the toolchain default; skip the
			// monotonicity check for the default entries.
			continue
		}
		require.GreaterOrEqual(t, isa, prev, "generation %v", gen)
		prev = isa
	}
}

func TestAtomicSupport(t *testing.T) {
	sm50 := newTarget(t, target.CUDACapability50)
	sm61 := newTarget(t, target.CUDACapability61)
	sm80 := newTarget(t, target.CUDACapability80)

	tests := []struct {
		tgt  *target.Target
		ty   ir.Type
		want bool
	}{
		{tgt: sm50, ty: ir.IntType(16, 1), want: false},
		{tgt: sm80, ty: ir.UintType(8, 1), want: false},
		{tgt: sm50, ty: ir.IntType(32, 1), want: true},
		{tgt: sm50, ty: ir.UintType(64, 1), want: true},
		{tgt: sm50, ty: ir.FloatType(32, 1), want: true},
		// 64-bit float atomics appear at CC 6.1.
		{tgt: sm50, ty: ir.FloatType(64, 1), want: false},
		{tgt: sm61, ty: ir.FloatType(64, 1), want: true},
		{tgt: sm80, ty: ir.FloatType(64, 1), want: true},
	}
	for _, test := range tests {
		require.Equal(t, test.want, test.tgt.SupportsAtomicAdd(test.ty),
			"%s on %s", test.ty, test.tgt.MCPU())
	}
}

func TestLoopOptPreference(t *testing.T) {
	require.True(t, newTarget(t).LoopOptEnabled())
	require.False(t, newTarget(t, target.DisableLoopOpt).LoopOptEnabled())
	require.True(t, newTarget(t, target.DisableLoopOpt, target.EnableLoopOpt).LoopOptEnabled())
}

func TestConfigurationErrors(t *testing.T) {
	_, err := target.New(target.CUDACapability70)
	require.ErrorIs(t, err, target.ErrNotEnabled)

	_, err = target.New(target.CUDA, target.Feature(9999))
	require.ErrorIs(t, err, target.ErrUnsupportedTarget)

	_, err = target.ParseFeature("cuda_capability_99")
	require.True(t, errors.Is(err, target.ErrUnsupportedTarget))

	f, err := target.ParseFeature("cuda_capability_70")
	require.NoError(t, err)
	require.Equal(t, target.CUDACapability70, f)
}

func TestNativeVectorBits(t *testing.T) {
	require.Equal(t, 64, newTarget(t).NativeVectorBits())
}
