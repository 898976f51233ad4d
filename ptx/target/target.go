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

// Package target resolves a set of hardware capability flags into the
// concrete architecture identifier, instruction-set feature string, and
// per-operation support predicates of one CUDA compilation target.
//
// The resolution tables are ordered data, not conditionals: each table
// is scanned from the newest generation to the oldest and the first
// match wins. Note that the feature-string table does not group the
// generations the same way the architecture table does; this mirrors
// the hardware/toolchain compatibility matrix.
package target

import (
	"github.com/pkg/errors"
	"github.com/ptx-org/ptxgen/build/ir"
)

// Feature is one hardware capability flag of a compilation target.
type Feature int

const (
	// CUDA enables the PTX device code generator.
	CUDA Feature = iota
	// CUDACapability30 targets the sm_30 hardware generation.
	CUDACapability30
	// CUDACapability32 targets the sm_32 hardware generation.
	CUDACapability32
	// CUDACapability35 targets the sm_35 hardware generation.
	CUDACapability35
	// CUDACapability50 targets the sm_50 hardware generation.
	CUDACapability50
	// CUDACapability61 targets the sm_61 hardware generation.
	CUDACapability61
	// CUDACapability70 targets the sm_70 hardware generation.
	CUDACapability70
	// CUDACapability75 targets the sm_75 hardware generation.
	CUDACapability75
	// CUDACapability80 targets the sm_80 hardware generation.
	CUDACapability80
	// DisableLoopOpt turns backend loop optimizations off.
	DisableLoopOpt
	// EnableLoopOpt forces backend loop optimizations on.
	EnableLoopOpt

	numFeatures
)

var featureNames = map[string]Feature{
	"cuda":               CUDA,
	"cuda_capability_30": CUDACapability30,
	"cuda_capability_32": CUDACapability32,
	"cuda_capability_35": CUDACapability35,
	"cuda_capability_50": CUDACapability50,
	"cuda_capability_61": CUDACapability61,
	"cuda_capability_70": CUDACapability70,
	"cuda_capability_75": CUDACapability75,
	"cuda_capability_80": CUDACapability80,
	"disable_loop_opt":   DisableLoopOpt,
	"enable_loop_opt":    EnableLoopOpt,
}

// ParseFeature returns the feature with a given name.
func ParseFeature(name string) (Feature, error) {
	f, ok := featureNames[name]
	if !ok {
		return 0, errors.Wrapf(ErrUnsupportedTarget, "unknown feature %q", name)
	}
	return f, nil
}

// Configuration errors, reported at construction time, before any
// kernel lowering begins.
var (
	// ErrNotEnabled reports a target without the CUDA flag.
	ErrNotEnabled = errors.New("ptx target not enabled: the target does not carry the cuda feature")
	// ErrUnsupportedTarget reports a flag outside the supported set.
	ErrUnsupportedTarget = errors.New("unsupported target feature")
)

// Target is an immutable set of capability flags. It is read-only for
// the lifetime of a compilation and safe to share across kernel
// lowerings.
type Target struct {
	features map[Feature]bool
}

// New returns a target for a set of capability flags.
func New(features ...Feature) (*Target, error) {
	t := &Target{features: make(map[Feature]bool, len(features))}
	for _, f := range features {
		if f < 0 || f >= numFeatures {
			return nil, errors.Wrapf(ErrUnsupportedTarget, "feature %d", f)
		}
		t.features[f] = true
	}
	if !t.features[CUDA] {
		return nil, ErrNotEnabled
	}
	return t, nil
}

// Has returns true if the target carries a flag.
func (t *Target) Has(f Feature) bool {
	return t.features[f]
}

// archTable orders the hardware generations from newest to oldest.
// The first flag present on the target selects the architecture.
var archTable = []struct {
	feature Feature
	arch    string
	bound   int
}{
	{CUDACapability80, "sm_80", 80},
	{CUDACapability75, "sm_75", 75},
	{CUDACapability70, "sm_70", 70},
	{CUDACapability61, "sm_61", 61},
	{CUDACapability50, "sm_50", 50},
	{CUDACapability35, "sm_35", 35},
	{CUDACapability32, "sm_32", 32},
	{CUDACapability30, "sm_30", 30},
}

// MCPU returns the architecture identifier of the target, falling back
// to the oldest supported generation.
func (t *Target) MCPU() string {
	for _, entry := range archTable {
		if t.Has(entry.feature) {
			return entry.arch
		}
	}
	return "sm_20"
}

// CapabilityLowerBound returns the numeric hardware generation the
// produced code may assume.
func (t *Target) CapabilityLowerBound() int {
	for _, entry := range archTable {
		if t.Has(entry.feature) {
			return entry.bound
		}
	}
	return 20
}

// isaTable orders the instruction-set versions from newest to oldest.
// Its groupings intentionally differ from archTable: distinct
// generations can share one ISA version.
var isaTable = []struct {
	features []Feature
	isa      string
}{
	{[]Feature{CUDACapability80}, "+ptx70"},
	{[]Feature{CUDACapability70, CUDACapability75}, "+ptx60"},
	{[]Feature{CUDACapability61}, "+ptx50"},
	{[]Feature{CUDACapability32, CUDACapability50}, "+ptx40"},
}

// MAttrs returns the instruction-set feature string of the target. The
// empty string selects the toolchain default.
func (t *Target) MAttrs() string {
	for _, entry := range isaTable {
		for _, f := range entry.features {
			if t.Has(f) {
				return entry.isa
			}
		}
	}
	return ""
}

// MArch returns the name of the machine architecture.
func (t *Target) MArch() string {
	return "nvptx64"
}

// SupportsAtomicAdd returns true if the hardware supports atomic
// addition on values of a given type.
func (t *Target) SupportsAtomicAdd(ty ir.Type) bool {
	if ty.Bits < 32 {
		return false
	}
	if ty.IsIntOrUint() {
		return true
	}
	if ty.IsFloat() && ty.Bits == 32 {
		return true
	}
	if ty.IsFloat() && ty.Bits == 64 {
		// Double atomics are supported since CC6.1.
		return t.CapabilityLowerBound() >= 61
	}
	return false
}

// NativeVectorBits returns the widest primitively supported value.
// PTX does not really do vectorization: the widest type is a double.
func (t *Target) NativeVectorBits() int {
	return 64
}

// PromoteIndexes returns true if 32-bit indexing arithmetic should be
// widened to 64 bits before lowering. PTX addressing handles this in
// the backend.
func (t *Target) PromoteIndexes() bool {
	return false
}

// LoopOptEnabled returns the loop-optimization preference handed to
// the backend.
func (t *Target) LoopOptEnabled() bool {
	return !t.Has(DisableLoopOpt) || t.Has(EnableLoopOpt)
}

// SoftFloatABI returns true if the target uses a software floating
// point ABI.
func (t *Target) SoftFloatABI() bool {
	return false
}
