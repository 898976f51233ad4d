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

package codegen

import (
	llvmir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/ptx-org/ptxgen/build/fmterr"
	"github.com/ptx-org/ptxgen/build/ir"
)

// genLoad lowers a buffer read. Dense unpredicated vector loads become
// a single wide load through a retyped pointer; everything else is
// scalarized.
func (cg *CodeGen) genLoad(e *ir.Load) (value.Value, error) {
	base, err := cg.symbol(e.Name)
	if err != nil {
		return nil, err
	}
	t := e.T
	if t.IsScalar() {
		idx, err := cg.lower.Expr(e.Index)
		if err != nil {
			return nil, err
		}
		ptr, err := cg.elemPtr(t, base, idx)
		if err != nil {
			return nil, err
		}
		ld := cg.Block.NewLoad(LLVMType(t), ptr)
		ld.Align = llvmir.Align(t.Bits / 8)
		return ld, nil
	}
	ramp, isRamp := e.Index.(*ir.Ramp)
	if ir.IsConstTrue(e.Predicate) && isRamp && ir.IsConstOne(ramp.Stride) {
		baseIdx, err := cg.lower.Expr(ramp.Base)
		if err != nil {
			return nil, err
		}
		ptr, err := cg.elemPtr(t.Elem(), base, baseIdx)
		if err != nil {
			return nil, err
		}
		vptr := cg.vectorPtr(ptr, t)
		ld := cg.Block.NewLoad(LLVMType(t), vptr)
		// Only element alignment is guaranteed for an arbitrary base.
		ld.Align = llvmir.Align(t.Elem().Bits / 8)
		return ld, nil
	}
	return cg.scalarizeLoad(e, base)
}

// vectorPtr retypes an element pointer as a pointer to the full vector,
// preserving the address space.
func (cg *CodeGen) vectorPtr(ptr value.Value, t ir.Type) value.Value {
	vp := types.NewPointer(LLVMType(t))
	vp.AddrSpace = ptr.Type().(*types.PointerType).AddrSpace
	return cg.Block.NewBitCast(ptr, vp)
}

// laneIndices lowers the index of a vector access to one scalar index
// per lane. Ramps avoid materializing the index vector.
func (cg *CodeGen) laneIndices(index ir.Expr, lanes int) ([]value.Value, error) {
	out := make([]value.Value, lanes)
	if ramp, ok := index.(*ir.Ramp); ok {
		base, stride, err := cg.operands(ramp.Base, ramp.Stride)
		if err != nil {
			return nil, err
		}
		it := base.Type().(*types.IntType)
		for i := range out {
			if i == 0 {
				out[i] = base
				continue
			}
			step := cg.Block.NewMul(stride, constant.NewInt(it, int64(i)))
			out[i] = cg.Block.NewAdd(base, step)
		}
		return out, nil
	}
	idx, err := cg.lower.Expr(index)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i] = cg.Block.NewExtractElement(idx, constant.NewInt(types.I32, int64(i)))
	}
	return out, nil
}

// scalarizeLoad lowers a strided, gathered, or predicated vector load
// lane by lane. Masked-out lanes produce zero.
func (cg *CodeGen) scalarizeLoad(e *ir.Load, base value.Value) (value.Value, error) {
	t := e.T
	elem := t.Elem()
	indices, err := cg.laneIndices(e.Index, t.Lanes)
	if err != nil {
		return nil, err
	}
	var pred value.Value
	if !ir.IsConstTrue(e.Predicate) {
		pred, err = cg.lower.Expr(e.Predicate)
		if err != nil {
			return nil, err
		}
	}
	var vec value.Value = constant.NewUndef(LLVMType(t))
	for i := 0; i < t.Lanes; i++ {
		var lane value.Value
		if pred == nil {
			ptr, err := cg.elemPtr(elem, base, indices[i])
			if err != nil {
				return nil, err
			}
			ld := cg.Block.NewLoad(LLVMType(elem), ptr)
			ld.Align = llvmir.Align(elem.Bits / 8)
			lane = ld
		} else {
			lane, err = cg.maskedLaneLoad(elem, base, indices[i], pred, i)
			if err != nil {
				return nil, err
			}
		}
		vec = cg.Block.NewInsertElement(vec, lane, constant.NewInt(types.I32, int64(i)))
	}
	return vec, nil
}

// maskedLaneLoad loads one lane behind its predicate bit, merging zero
// for a masked-out lane.
func (cg *CodeGen) maskedLaneLoad(elem ir.Type, base, index, pred value.Value, lane int) (value.Value, error) {
	bit := cg.Block.NewExtractElement(pred, constant.NewInt(types.I32, int64(lane)))
	loadB := cg.Fn.NewBlock("")
	mergeB := cg.Fn.NewBlock("")
	pre := cg.Block
	pre.NewCondBr(bit, loadB, mergeB)
	cg.Block = loadB
	ptr, err := cg.elemPtr(elem, base, index)
	if err != nil {
		return nil, err
	}
	ld := cg.Block.NewLoad(LLVMType(elem), ptr)
	ld.Align = llvmir.Align(elem.Bits / 8)
	loaded := cg.Block
	loaded.NewBr(mergeB)
	cg.Block = mergeB
	phi := mergeB.NewPhi(
		llvmir.NewIncoming(ld, loaded),
		llvmir.NewIncoming(constZero(elem), pre),
	)
	return phi, nil
}

// GenStore lowers a buffer write with the generic rules. Inside an
// atomic update region, recognized read-modify-write patterns become
// atomic instructions.
func (cg *CodeGen) GenStore(s *ir.Store) error {
	base, err := cg.symbol(s.Name)
	if err != nil {
		return err
	}
	if cg.AtomicStores {
		return cg.atomicStore(s, base)
	}
	t := s.Value.Type()
	if t.IsScalar() {
		v, idx, err := cg.storeOperands(s)
		if err != nil {
			return err
		}
		ptr, err := cg.elemPtr(t, base, idx)
		if err != nil {
			return err
		}
		st := cg.Block.NewStore(v, ptr)
		st.Align = llvmir.Align(t.Bits / 8)
		return nil
	}
	ramp, isRamp := s.Index.(*ir.Ramp)
	if ir.IsConstTrue(s.Predicate) && isRamp && ir.IsConstOne(ramp.Stride) {
		v, err := cg.lower.Expr(s.Value)
		if err != nil {
			return err
		}
		baseIdx, err := cg.lower.Expr(ramp.Base)
		if err != nil {
			return err
		}
		ptr, err := cg.elemPtr(t.Elem(), base, baseIdx)
		if err != nil {
			return err
		}
		st := cg.Block.NewStore(v, cg.vectorPtr(ptr, t))
		st.Align = llvmir.Align(t.Elem().Bits / 8)
		return nil
	}
	return cg.scalarizeStore(s, base)
}

func (cg *CodeGen) storeOperands(s *ir.Store) (value.Value, value.Value, error) {
	v, err := cg.lower.Expr(s.Value)
	if err != nil {
		return nil, nil, err
	}
	idx, err := cg.lower.Expr(s.Index)
	if err != nil {
		return nil, nil, err
	}
	return v, idx, nil
}

func (cg *CodeGen) scalarizeStore(s *ir.Store, base value.Value) error {
	t := s.Value.Type()
	elem := t.Elem()
	v, err := cg.lower.Expr(s.Value)
	if err != nil {
		return err
	}
	indices, err := cg.laneIndices(s.Index, t.Lanes)
	if err != nil {
		return err
	}
	var pred value.Value
	if !ir.IsConstTrue(s.Predicate) {
		pred, err = cg.lower.Expr(s.Predicate)
		if err != nil {
			return err
		}
	}
	for i := 0; i < t.Lanes; i++ {
		lane := cg.Block.NewExtractElement(v, constant.NewInt(types.I32, int64(i)))
		if pred == nil {
			ptr, err := cg.elemPtr(elem, base, indices[i])
			if err != nil {
				return err
			}
			st := cg.Block.NewStore(lane, ptr)
			st.Align = llvmir.Align(elem.Bits / 8)
			continue
		}
		bit := cg.Block.NewExtractElement(pred, constant.NewInt(types.I32, int64(i)))
		storeB := cg.Fn.NewBlock("")
		contB := cg.Fn.NewBlock("")
		cg.Block.NewCondBr(bit, storeB, contB)
		cg.Block = storeB
		ptr, err := cg.elemPtr(elem, base, indices[i])
		if err != nil {
			return err
		}
		st := cg.Block.NewStore(lane, ptr)
		st.Align = llvmir.Align(elem.Bits / 8)
		cg.Block.NewBr(contB)
		cg.Block = contB
	}
	return nil
}

// atomicStore lowers a store inside an atomic update region. Only the
// read-modify-write addition pattern
//
//	buf[i] = buf[i] + delta
//
// (in either operand order) has a hardware rendition; anything else is
// rejected.
func (cg *CodeGen) atomicStore(s *ir.Store, base value.Value) error {
	t := s.Value.Type()
	if t.IsVector() {
		return fmterr.Newf(fmterr.KindUnsupportedConstruct,
			"atomic update of %q: vector read-modify-write is not supported", s.Name)
	}
	delta, ok := addDelta(s)
	if !ok {
		return fmterr.Newf(fmterr.KindUnsupportedConstruct,
			"atomic update of %q is not a recognized read-modify-write addition", s.Name)
	}
	dv, err := cg.lower.Expr(delta)
	if err != nil {
		return err
	}
	idx, err := cg.lower.Expr(s.Index)
	if err != nil {
		return err
	}
	ptr, err := cg.elemPtr(t, base, idx)
	if err != nil {
		return err
	}
	op := enum.AtomicOpAdd
	if t.IsFloat() {
		op = enum.AtomicOpFAdd
	}
	cg.Block.NewAtomicRMW(op, ptr, dv, enum.AtomicOrderingSequentiallyConsistent)
	return nil
}

// addDelta matches buf[i] = buf[i] + delta and returns delta.
func addDelta(s *ir.Store) (ir.Expr, bool) {
	bin, ok := s.Value.(*ir.Binary)
	if !ok || bin.Op != ir.OpAdd {
		return nil, false
	}
	selfLoad := func(e ir.Expr) bool {
		ld, ok := e.(*ir.Load)
		return ok && ld.Name == s.Name && ir.Equal(ld.Index, s.Index)
	}
	if selfLoad(bin.A) {
		return bin.B, true
	}
	if selfLoad(bin.B) {
		return bin.A, true
	}
	return nil, false
}
