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
	"strings"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/ptx-org/ptxgen/base/ordered"
	"github.com/ptx-org/ptxgen/build/fmterr"
	"github.com/ptx-org/ptxgen/build/ir"
	"github.com/ptx-org/ptxgen/internal/codegen"
	"go.uber.org/multierr"
)

// simtIntrinsics maps a GPU axis loop name suffix to the NVVM
// intrinsic reading the hardware index of that axis. Suffixes are
// matched in insertion order.
var simtIntrinsics = func() *ordered.Map[string, string] {
	m := ordered.NewMap[string, string]()
	m.Store(".__thread_id_x", "llvm.nvvm.read.ptx.sreg.tid.x")
	m.Store(".__thread_id_y", "llvm.nvvm.read.ptx.sreg.tid.y")
	m.Store(".__thread_id_z", "llvm.nvvm.read.ptx.sreg.tid.z")
	m.Store(".__thread_id_w", "llvm.nvvm.read.ptx.sreg.tid.w")
	m.Store(".__block_id_x", "llvm.nvvm.read.ptx.sreg.ctaid.x")
	m.Store(".__block_id_y", "llvm.nvvm.read.ptx.sreg.ctaid.y")
	m.Store(".__block_id_z", "llvm.nvvm.read.ptx.sreg.ctaid.z")
	m.Store(".__block_id_w", "llvm.nvvm.read.ptx.sreg.ctaid.w")
	return m
}()

// simtIntrinsic returns the hardware index intrinsic of a GPU axis
// loop name.
func simtIntrinsic(name string) (string, bool) {
	for suffix, intr := range simtIntrinsics.Iter() {
		if strings.HasSuffix(name, suffix) {
			return intr, true
		}
	}
	return "", false
}

// Expr lowers an expression, applying the CUDA-specific rules before
// falling back to the generic lowering.
func (g *CodeGen) Expr(e ir.Expr) (value.Value, error) {
	switch e := e.(type) {
	case *ir.Call:
		if e.Kind == ir.CallIntrinsic && e.Name == ir.GPUThreadBarrier {
			return g.barrier(e)
		}
	case *ir.Load:
		if v, ok, err := g.fusedLoad(e); ok || err != nil {
			return v, err
		}
	case *ir.VectorReduce:
		if v, ok, err := g.dotProduct(e); ok || err != nil {
			return v, err
		}
	}
	return g.cg.GenExpr(e)
}

// Stmt lowers a statement, applying the CUDA-specific rules before
// falling back to the generic lowering.
func (g *CodeGen) Stmt(s ir.Stmt) error {
	switch s := s.(type) {
	case *ir.For:
		if _, ok := simtIntrinsic(s.Name); ok {
			return g.axisFor(s)
		}
	case *ir.Store:
		return g.store(s)
	case *ir.Allocate:
		return g.allocate(s)
	case *ir.Free:
		return g.cg.Syms.Pop(s.Name)
	case *ir.AssertStmt:
		return g.assert(s)
	case *ir.Atomic:
		return g.atomic(s)
	}
	return g.cg.GenStmt(s)
}

// axisFor realizes a GPU axis loop: the loop variable binds to the
// hardware index of the axis and the body is emitted exactly once.
func (g *CodeGen) axisFor(s *ir.For) error {
	intr, _ := simtIntrinsic(s.Name)
	if !ir.IsConstZero(s.Min) {
		return fmterr.Internalf("gpu axis loop %q does not start at zero", s.Name)
	}
	idx := g.cg.Block.NewCall(g.cg.Extern(intr, types.I32))
	g.cg.Syms.Push(s.Name, idx)
	err := g.Stmt(s.Body)
	return multierr.Append(err, g.cg.Syms.Pop(s.Name))
}

// barrier emits a block-wide execution and memory barrier. The fence
// scope argument is validated, then dropped: barrier0 synchronizes
// both the shared and the global memory space.
func (g *CodeGen) barrier(e *ir.Call) (value.Value, error) {
	if len(e.Args) != 1 {
		return nil, fmterr.Newf(fmterr.KindMalformedIntrinsic,
			"%s expects exactly one argument, got %d", e.Name, len(e.Args))
	}
	if _, ok := ir.ConstInt(e.Args[0]); !ok {
		return nil, fmterr.Newf(fmterr.KindMalformedIntrinsic,
			"%s fence scope must be a constant integer", e.Name)
	}
	g.cg.Block.NewCall(g.cg.Extern("llvm.nvvm.barrier0", types.Void))
	return constant.NewInt(types.I32, 0), nil
}

// allocate binds a device allocation. Shared allocations are carved
// out of the block's scratch space by the host at launch time: the
// kernel only binds the origin of that space. Local allocations become
// fixed-size stack storage in the entry block.
func (g *CodeGen) allocate(s *ir.Allocate) error {
	if s.NewExpr != nil {
		return fmterr.Newf(fmterr.KindUnsupportedConstruct,
			"allocation %q: custom allocation expressions are not supported on the device", s.Name)
	}
	var ptr value.Value
	if s.Memory == ir.MemoryShared {
		pt := types.NewPointer(types.I8)
		pt.AddrSpace = 3
		ptr = constant.NewNull(pt)
	} else {
		size := int64(1)
		for _, ext := range s.Extents {
			v, ok := ir.ConstInt(ext)
			if !ok {
				return fmterr.Newf(fmterr.KindDynamicSizeInKernel,
					"allocation %q does not have a constant size", s.Name)
			}
			size *= v
		}
		if size <= 0 {
			return fmterr.Newf(fmterr.KindDynamicSizeInKernel,
				"allocation %q has a non-positive size %d", s.Name, size)
		}
		a := g.entry.NewAlloca(codegen.LLVMType(s.T.Elem()))
		a.NElems = constant.NewInt(types.I32, size)
		ptr = a
	}
	g.cg.Syms.Push(s.Name, ptr)
	// The matching Free pops the binding.
	return g.Stmt(s.Body)
}

// assert halts the device on a failed condition. The message cannot be
// reported from the device; it is dropped.
func (g *CodeGen) assert(s *ir.AssertStmt) error {
	trap := &ir.Call{T: ir.IntType(32, 1), Name: "ptx_trap", Kind: ir.CallExtern}
	return g.Stmt(&ir.IfThenElse{
		Condition: &ir.Not{Value: s.Condition},
		Then:      &ir.Evaluate{Value: trap},
	})
}

// atomic lowers an atomic update region: stores within the body become
// atomic read-modify-write operations.
func (g *CodeGen) atomic(s *ir.Atomic) error {
	if s.MutexName != "" {
		return fmterr.Newf(fmterr.KindUnsupportedConstruct,
			"atomic update of %q: mutex-based synchronization is not supported on the device", s.ProducerName)
	}
	old := g.cg.AtomicStores
	g.cg.AtomicStores = true
	err := g.Stmt(s.Body)
	g.cg.AtomicStores = old
	return err
}

// store checks the hardware constraints of atomic stores, then tries
// the wide-access fusion before handing the store to the generic
// rules.
func (g *CodeGen) store(s *ir.Store) error {
	if g.cg.AtomicStores {
		if !ir.IsConstTrue(s.Predicate) {
			return fmterr.Newf(fmterr.KindUnsupportedAtomicWidth,
				"atomic update of %q: predicated atomic stores are not supported", s.Name)
		}
		if t := s.Value.Type(); t.Bits < 32 {
			return fmterr.Newf(fmterr.KindUnsupportedAtomicWidth,
				"atomic update of %q: 8-bit and 16-bit atomics are not supported", s.Name)
		}
		return g.cg.GenStmt(s)
	}
	if ok, err := g.fusedStore(s); ok || err != nil {
		return err
	}
	return g.cg.GenStmt(s)
}
