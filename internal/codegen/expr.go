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
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/ptx-org/ptxgen/build/fmterr"
	"github.com/ptx-org/ptxgen/build/ir"
	"go.uber.org/multierr"
)

// GenExpr lowers an expression with the generic, target-independent
// rules.
func (cg *CodeGen) GenExpr(e ir.Expr) (value.Value, error) {
	switch e := e.(type) {
	case *ir.IntImm:
		return constant.NewInt(LLVMType(e.T).(*types.IntType), e.Value), nil
	case *ir.UIntImm:
		return constant.NewInt(LLVMType(e.T).(*types.IntType), int64(e.Value)), nil
	case *ir.FloatImm:
		return constant.NewFloat(LLVMType(e.T).(*types.FloatType), e.Value), nil
	case *ir.Var:
		return cg.symbol(e.Name)
	case *ir.Binary:
		return cg.binary(e)
	case *ir.Not:
		return cg.not(e)
	case *ir.Select:
		return cg.selectExpr(e)
	case *ir.Ramp:
		return cg.ramp(e)
	case *ir.Broadcast:
		v, err := cg.lower.Expr(e.Value)
		if err != nil {
			return nil, err
		}
		return cg.splat(v, e.Lanes), nil
	case *ir.Load:
		return cg.genLoad(e)
	case *ir.Cast:
		return cg.cast(e)
	case *ir.Reinterpret:
		v, err := cg.lower.Expr(e.Value)
		if err != nil {
			return nil, err
		}
		return cg.Block.NewBitCast(v, LLVMType(e.T)), nil
	case *ir.Call:
		return cg.call(e)
	case *ir.Let:
		return cg.let(e)
	case *ir.Shuffle:
		return cg.shuffle(e)
	case *ir.VectorReduce:
		return cg.vectorReduce(e)
	}
	return nil, fmterr.Internalf("cannot lower expression %T", e)
}

func (cg *CodeGen) operands(a, b ir.Expr) (value.Value, value.Value, error) {
	av, err := cg.lower.Expr(a)
	if err != nil {
		return nil, nil, err
	}
	bv, err := cg.lower.Expr(b)
	if err != nil {
		return nil, nil, err
	}
	return av, bv, nil
}

func (cg *CodeGen) binary(e *ir.Binary) (value.Value, error) {
	a, b, err := cg.operands(e.A, e.B)
	if err != nil {
		return nil, err
	}
	t := e.A.Type()
	bl := cg.Block
	switch e.Op {
	case ir.OpAdd:
		if t.IsFloat() {
			return bl.NewFAdd(a, b), nil
		}
		return bl.NewAdd(a, b), nil
	case ir.OpSub:
		if t.IsFloat() {
			return bl.NewFSub(a, b), nil
		}
		return bl.NewSub(a, b), nil
	case ir.OpMul:
		if t.IsFloat() {
			return bl.NewFMul(a, b), nil
		}
		return bl.NewMul(a, b), nil
	case ir.OpDiv:
		switch {
		case t.IsFloat():
			return bl.NewFDiv(a, b), nil
		case t.IsUint():
			return bl.NewUDiv(a, b), nil
		default:
			return bl.NewSDiv(a, b), nil
		}
	case ir.OpMod:
		switch {
		case t.IsFloat():
			return bl.NewFRem(a, b), nil
		case t.IsUint():
			return bl.NewURem(a, b), nil
		default:
			return bl.NewSRem(a, b), nil
		}
	case ir.OpMin:
		lt, err := cg.compare(ir.OpLT, t, a, b)
		if err != nil {
			return nil, err
		}
		return bl.NewSelect(lt, a, b), nil
	case ir.OpMax:
		gt, err := cg.compare(ir.OpGT, t, a, b)
		if err != nil {
			return nil, err
		}
		return bl.NewSelect(gt, a, b), nil
	case ir.OpAnd:
		return bl.NewAnd(a, b), nil
	case ir.OpOr:
		return bl.NewOr(a, b), nil
	}
	if e.Op.IsComparison() {
		return cg.compare(e.Op, t, a, b)
	}
	return nil, fmterr.Internalf("cannot lower binary operator %d", e.Op)
}

var (
	intPreds = map[ir.BinaryOp]enum.IPred{
		ir.OpEQ: enum.IPredEQ,
		ir.OpNE: enum.IPredNE,
		ir.OpLT: enum.IPredSLT,
		ir.OpLE: enum.IPredSLE,
		ir.OpGT: enum.IPredSGT,
		ir.OpGE: enum.IPredSGE,
	}
	uintPreds = map[ir.BinaryOp]enum.IPred{
		ir.OpEQ: enum.IPredEQ,
		ir.OpNE: enum.IPredNE,
		ir.OpLT: enum.IPredULT,
		ir.OpLE: enum.IPredULE,
		ir.OpGT: enum.IPredUGT,
		ir.OpGE: enum.IPredUGE,
	}
	floatPreds = map[ir.BinaryOp]enum.FPred{
		ir.OpEQ: enum.FPredOEQ,
		ir.OpNE: enum.FPredONE,
		ir.OpLT: enum.FPredOLT,
		ir.OpLE: enum.FPredOLE,
		ir.OpGT: enum.FPredOGT,
		ir.OpGE: enum.FPredOGE,
	}
)

// compare emits a comparison of two already lowered values of operand
// type t.
func (cg *CodeGen) compare(op ir.BinaryOp, t ir.Type, a, b value.Value) (value.Value, error) {
	if t.IsFloat() {
		pred, ok := floatPreds[op]
		if !ok {
			return nil, fmterr.Internalf("operator %d is not a comparison", op)
		}
		return cg.Block.NewFCmp(pred, a, b), nil
	}
	preds := intPreds
	if t.IsUint() {
		preds = uintPreds
	}
	pred, ok := preds[op]
	if !ok {
		return nil, fmterr.Internalf("operator %d is not a comparison", op)
	}
	return cg.Block.NewICmp(pred, a, b), nil
}

func (cg *CodeGen) not(e *ir.Not) (value.Value, error) {
	v, err := cg.lower.Expr(e.Value)
	if err != nil {
		return nil, err
	}
	t := e.Value.Type()
	var one value.Value = constant.NewInt(types.I1, 1)
	if t.Lanes > 1 {
		one = cg.splat(one, t.Lanes)
	}
	return cg.Block.NewXor(v, one), nil
}

func (cg *CodeGen) selectExpr(e *ir.Select) (value.Value, error) {
	cond, err := cg.lower.Expr(e.Cond)
	if err != nil {
		return nil, err
	}
	tv, fv, err := cg.operands(e.True, e.False)
	if err != nil {
		return nil, err
	}
	return cg.Block.NewSelect(cond, tv, fv), nil
}

func (cg *CodeGen) ramp(e *ir.Ramp) (value.Value, error) {
	base, stride, err := cg.operands(e.Base, e.Stride)
	if err != nil {
		return nil, err
	}
	it, ok := base.Type().(*types.IntType)
	if !ok {
		return nil, fmterr.Internalf("ramp base is not an integer but %v", base.Type())
	}
	var vec value.Value = constant.NewUndef(types.NewVector(uint64(e.Lanes), it))
	for i := 0; i < e.Lanes; i++ {
		lane := base
		if i > 0 {
			step := cg.Block.NewMul(stride, constant.NewInt(it, int64(i)))
			lane = cg.Block.NewAdd(base, step)
		}
		vec = cg.Block.NewInsertElement(vec, lane, constant.NewInt(types.I32, int64(i)))
	}
	return vec, nil
}

func (cg *CodeGen) cast(e *ir.Cast) (value.Value, error) {
	v, err := cg.lower.Expr(e.Value)
	if err != nil {
		return nil, err
	}
	from, to := e.Value.Type(), e.T
	lt := LLVMType(to)
	bl := cg.Block
	switch {
	case from.IsFloat() && to.IsFloat():
		switch {
		case to.Bits > from.Bits:
			return bl.NewFPExt(v, lt), nil
		case to.Bits < from.Bits:
			return bl.NewFPTrunc(v, lt), nil
		default:
			return v, nil
		}
	case from.IsFloat() && to.IsUint():
		return bl.NewFPToUI(v, lt), nil
	case from.IsFloat():
		return bl.NewFPToSI(v, lt), nil
	case to.IsFloat():
		if from.IsUint() {
			return bl.NewUIToFP(v, lt), nil
		}
		return bl.NewSIToFP(v, lt), nil
	}
	// Integer to integer.
	switch {
	case to.Bits == from.Bits:
		return v, nil
	case to.Bits < from.Bits:
		return bl.NewTrunc(v, lt), nil
	case from.IsUint():
		return bl.NewZExt(v, lt), nil
	default:
		return bl.NewSExt(v, lt), nil
	}
}

func (cg *CodeGen) call(e *ir.Call) (value.Value, error) {
	args := make([]value.Value, len(e.Args))
	params := make([]types.Type, len(e.Args))
	for i, arg := range e.Args {
		v, err := cg.lower.Expr(arg)
		if err != nil {
			return nil, err
		}
		args[i] = v
		params[i] = v.Type()
	}
	callee := cg.Extern(e.Name, LLVMType(e.T), params...)
	return cg.Block.NewCall(callee, args...), nil
}

func (cg *CodeGen) let(e *ir.Let) (value.Value, error) {
	v, err := cg.lower.Expr(e.Value)
	if err != nil {
		return nil, err
	}
	cg.Syms.Push(e.Name, v)
	body, err := cg.lower.Expr(e.Body)
	return body, multierr.Append(err, cg.Syms.Pop(e.Name))
}

func (cg *CodeGen) shuffle(e *ir.Shuffle) (value.Value, error) {
	vals := make([]value.Value, len(e.Vectors))
	lanes := make([]int, len(e.Vectors))
	for i, v := range e.Vectors {
		val, err := cg.lower.Expr(v)
		if err != nil {
			return nil, err
		}
		vals[i] = val
		lanes[i] = v.Type().Lanes
	}
	// locate maps an index of the lane concatenation to its source.
	locate := func(idx int) (value.Value, int, error) {
		for i, n := range lanes {
			if idx < n {
				return vals[i], idx, nil
			}
			idx -= n
		}
		return nil, 0, fmterr.Internalf("shuffle index out of range")
	}
	element := func(idx int) (value.Value, error) {
		src, lane, err := locate(idx)
		if err != nil {
			return nil, err
		}
		if _, ok := src.Type().(*types.VectorType); !ok {
			return src, nil
		}
		return cg.Block.NewExtractElement(src, constant.NewInt(types.I32, int64(lane))), nil
	}
	if len(e.Indices) == 1 {
		return element(e.Indices[0])
	}
	var vec value.Value = constant.NewUndef(LLVMType(e.Type()))
	for i, idx := range e.Indices {
		el, err := element(idx)
		if err != nil {
			return nil, err
		}
		vec = cg.Block.NewInsertElement(vec, el, constant.NewInt(types.I32, int64(i)))
	}
	return vec, nil
}

func (cg *CodeGen) vectorReduce(e *ir.VectorReduce) (value.Value, error) {
	in, err := cg.lower.Expr(e.Value)
	if err != nil {
		return nil, err
	}
	t := e.Value.Type()
	if t.Lanes%e.Lanes != 0 {
		return nil, fmterr.Internalf("cannot reduce %d lanes to %d", t.Lanes, e.Lanes)
	}
	factor := t.Lanes / e.Lanes
	elem := t.Elem()
	combine := func(a, b value.Value) (value.Value, error) {
		switch e.Op {
		case ir.ReduceAdd:
			if elem.IsFloat() {
				return cg.Block.NewFAdd(a, b), nil
			}
			return cg.Block.NewAdd(a, b), nil
		case ir.ReduceMul:
			if elem.IsFloat() {
				return cg.Block.NewFMul(a, b), nil
			}
			return cg.Block.NewMul(a, b), nil
		case ir.ReduceMin:
			cmp, err := cg.compare(ir.OpLT, elem, a, b)
			if err != nil {
				return nil, err
			}
			return cg.Block.NewSelect(cmp, a, b), nil
		case ir.ReduceMax:
			cmp, err := cg.compare(ir.OpGT, elem, a, b)
			if err != nil {
				return nil, err
			}
			return cg.Block.NewSelect(cmp, a, b), nil
		}
		return nil, fmterr.Internalf("cannot lower reduction operator %d", e.Op)
	}
	var initV value.Value
	if e.Init != nil {
		initV, err = cg.lower.Expr(e.Init)
		if err != nil {
			return nil, err
		}
	}
	extract := func(v value.Value, i int) value.Value {
		if _, ok := v.Type().(*types.VectorType); !ok {
			return v
		}
		return cg.Block.NewExtractElement(v, constant.NewInt(types.I32, int64(i)))
	}
	out := make([]value.Value, e.Lanes)
	for l := 0; l < e.Lanes; l++ {
		acc := extract(in, l*factor)
		for i := 1; i < factor; i++ {
			acc, err = combine(acc, extract(in, l*factor+i))
			if err != nil {
				return nil, err
			}
		}
		if initV != nil {
			acc, err = combine(acc, extract(initV, l))
			if err != nil {
				return nil, err
			}
		}
		out[l] = acc
	}
	if e.Lanes == 1 {
		return out[0], nil
	}
	var vec value.Value = constant.NewUndef(LLVMType(e.Type()))
	for i, v := range out {
		vec = cg.Block.NewInsertElement(vec, v, constant.NewInt(types.I32, int64(i)))
	}
	return vec, nil
}
