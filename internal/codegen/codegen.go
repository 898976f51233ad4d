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

// Package codegen lowers the architecture-neutral IR into llir/llvm
// instructions. It implements the generic rules shared by every
// target: arithmetic, control flow, memory accesses, calls.
//
// Recursion into sub-trees always goes through the Lowerer dispatch so
// that a device code generator layered on top sees every node and can
// override the kinds it cares about, falling through to this package
// for the rest.
package codegen

import (
	llvmir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/ptx-org/ptxgen/base/scope"
	"github.com/ptx-org/ptxgen/build/fmterr"
	"github.com/ptx-org/ptxgen/build/ir"
)

// Lowerer dispatches the lowering of one node.
type Lowerer interface {
	// Expr lowers an expression to a value.
	Expr(e ir.Expr) (value.Value, error)
	// Stmt lowers a statement.
	Stmt(s ir.Stmt) error
}

// CodeGen holds the state of one module's lowering: the llir module
// under construction, the current function and insertion block, and
// the symbol table of the kernel being lowered.
type CodeGen struct {
	// Mod is the llir module under construction.
	Mod *llvmir.Module
	// Fn is the function being emitted.
	Fn *llvmir.Func
	// Block is the current insertion block.
	Block *llvmir.Block
	// Syms binds IR names to emitted values.
	Syms *scope.Scope[value.Value]
	// AtomicStores is set while lowering the body of an atomic update:
	// stores must then be emitted as atomic read-modify-write
	// operations.
	AtomicStores bool

	lower   Lowerer
	externs map[string]*llvmir.Func
}

// New returns a code generator emitting into mod. All recursive
// lowering goes through lower.
func New(mod *llvmir.Module, lower Lowerer) *CodeGen {
	return &CodeGen{
		Mod:     mod,
		Syms:    scope.New[value.Value](),
		lower:   lower,
		externs: make(map[string]*llvmir.Func),
	}
}

// LLVMType maps an IR type onto its llir representation.
func LLVMType(t ir.Type) types.Type {
	var elem types.Type
	switch {
	case t.IsFloat() && t.Bits == 64:
		elem = types.Double
	case t.IsFloat():
		elem = types.Float
	default:
		elem = types.NewInt(uint64(t.Bits))
	}
	if t.Lanes > 1 {
		return types.NewVector(uint64(t.Lanes), elem)
	}
	return elem
}

// Extern returns the declaration of an external function, creating it
// on first use.
func (cg *CodeGen) Extern(name string, ret types.Type, params ...types.Type) *llvmir.Func {
	if f, ok := cg.externs[name]; ok {
		return f
	}
	ps := make([]*llvmir.Param, len(params))
	for i, p := range params {
		ps[i] = llvmir.NewParam("", p)
	}
	f := cg.Mod.NewFunc(name, ret, ps...)
	cg.externs[name] = f
	return f
}

// symbol returns the value bound to a name.
func (cg *CodeGen) symbol(name string) (value.Value, error) {
	v, ok := cg.Syms.Lookup(name)
	if !ok {
		return nil, fmterr.Newf(fmterr.KindUnboundSymbol, "symbol %q has no active binding", name)
	}
	return v, nil
}

// constZero returns the zero value of a scalar IR type.
func constZero(t ir.Type) constant.Constant {
	lt := LLVMType(t)
	if ft, ok := lt.(*types.FloatType); ok {
		return constant.NewFloat(ft, 0)
	}
	return constant.NewInt(lt.(*types.IntType), 0)
}

// splat replicates a scalar value across lanes.
func (cg *CodeGen) splat(v value.Value, lanes int) value.Value {
	vecT := types.NewVector(uint64(lanes), v.Type())
	var vec value.Value = constant.NewUndef(vecT)
	for i := 0; i < lanes; i++ {
		vec = cg.Block.NewInsertElement(vec, v, constant.NewInt(types.I32, int64(i)))
	}
	return vec
}

// elemPtr returns a pointer to element index of the buffer at base,
// viewed as a buffer of elem values. The address space of the base
// pointer is preserved.
func (cg *CodeGen) elemPtr(elem ir.Type, base, index value.Value) (value.Value, error) {
	pt, ok := base.Type().(*types.PointerType)
	if !ok {
		return nil, fmterr.Internalf("buffer symbol is not a pointer but %v", base.Type())
	}
	et := LLVMType(elem)
	src := base
	if !types.Equal(pt.ElemType, et) {
		np := types.NewPointer(et)
		np.AddrSpace = pt.AddrSpace
		src = cg.Block.NewBitCast(base, np)
	}
	return cg.Block.NewGetElementPtr(et, src, index), nil
}
