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

// Package ptx lowers kernels to LLVM IR for the NVPTX backend.
//
// It layers the CUDA-specific semantics on top of the generic lowering
// of internal/codegen: GPU axis loops become hardware index intrinsic
// reads, barriers and memory spaces get their NVVM rendition, and
// profitable access patterns are fused into wider hardware operations
// before the generic rules see them.
package ptx

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	llvmir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/ptx-org/ptxgen/build/fmterr"
	"github.com/ptx-org/ptxgen/build/ir"
	"github.com/ptx-org/ptxgen/internal/codegen"
	"github.com/ptx-org/ptxgen/ptx/target"
	"go.uber.org/multierr"
)

// dataLayout describes the memory layout of 64-bit NVPTX devices.
const dataLayout = "e-i64:64-i128:128-v16:16-v32:32-n16:32:64"

// CodeGen lowers kernels for one CUDA target into a single LLVM
// module.
type CodeGen struct {
	target *target.Target
	cg     *codegen.CodeGen

	// entry is the current kernel's entry block. Stack allocations land
	// there so that they dominate every use.
	entry   *llvmir.Block
	kernels []string
}

// New returns a code generator for a CUDA target.
func New(t *target.Target) (*CodeGen, error) {
	if t == nil {
		return nil, target.ErrNotEnabled
	}
	mod := llvmir.NewModule()
	mod.TargetTriple = "nvptx64--"
	mod.DataLayout = dataLayout
	g := &CodeGen{target: t}
	g.cg = codegen.New(mod, g)
	return g, nil
}

// Module returns the LLVM module holding the lowered kernels.
func (g *CodeGen) Module() *llvmir.Module {
	return g.cg.Mod
}

// Kernels returns the names of the lowered kernels, in lowering order.
func (g *CodeGen) Kernels() []string {
	return g.kernels
}

// KernelName mangles an arbitrary kernel name into a symbol the PTX
// toolchain accepts.
func KernelName(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if i == 0 && unicode.IsDigit(r) {
			sb.WriteRune('_')
		}
		if r == '_' || unicode.IsDigit(r) || (r < unicode.MaxASCII && unicode.IsLetter(r)) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

// AddKernel lowers one kernel body into the module. Buffer arguments
// become noalias byte pointers, scalar arguments are passed by value.
func (g *CodeGen) AddKernel(name string, args []ir.DeviceArg, body ir.Stmt) error {
	name = KernelName(name)
	slog.Debug("lowering kernel", "name", name, "mcpu", g.target.MCPU())
	params := make([]*llvmir.Param, len(args))
	for i, arg := range args {
		if arg.IsBuffer {
			p := llvmir.NewParam(arg.Name, types.NewPointer(types.I8))
			p.Attrs = append(p.Attrs, enum.ParamAttrNoAlias)
			params[i] = p
			continue
		}
		params[i] = llvmir.NewParam(arg.Name, codegen.LLVMType(arg.T))
	}
	f := g.cg.Mod.NewFunc(name, types.Void, params...)
	f.CallingConv = enum.CallingConvPTXKernel
	g.cg.Fn = f
	g.entry = f.NewBlock("entry")
	g.cg.Block = f.NewBlock("body")

	for i, arg := range args {
		g.cg.Syms.Push(arg.Name, params[i])
	}
	err := g.Stmt(body)
	for i := len(args) - 1; i >= 0; i-- {
		err = multierr.Append(err, g.cg.Syms.Pop(args[i].Name))
	}
	if err != nil {
		return err
	}
	g.cg.Block.NewRet(nil)
	// The branch comes last: allocations are still being appended to
	// the entry block while the body is lowered.
	g.entry.NewBr(f.Blocks[1])
	if err := g.verify(f); err != nil {
		return err
	}
	g.kernels = append(g.kernels, name)
	return nil
}

// verify is a structural self-check of a lowered function: every block
// terminates, branches stay within the function, allocations sit in
// the entry block, and every callee is declared in the module.
func (g *CodeGen) verify(f *llvmir.Func) error {
	var err error
	blocks := make(map[*llvmir.Block]bool, len(f.Blocks))
	for _, b := range f.Blocks {
		blocks[b] = true
	}
	declared := make(map[*llvmir.Func]bool, len(g.cg.Mod.Funcs))
	for _, fn := range g.cg.Mod.Funcs {
		declared[fn] = true
	}
	inFunc := func(target value.Value) bool {
		b, ok := target.(*llvmir.Block)
		return ok && blocks[b]
	}
	for i, b := range f.Blocks {
		switch term := b.Term.(type) {
		case nil:
			err = multierr.Append(err, fmt.Errorf("block %d of %s has no terminator", i, f.Name()))
		case *llvmir.TermBr:
			if !inFunc(term.Target) {
				err = multierr.Append(err, fmt.Errorf("%s: branch leaves the function", f.Name()))
			}
		case *llvmir.TermCondBr:
			if !inFunc(term.TargetTrue) || !inFunc(term.TargetFalse) {
				err = multierr.Append(err, fmt.Errorf("%s: branch leaves the function", f.Name()))
			}
		}
		for _, inst := range b.Insts {
			switch inst := inst.(type) {
			case *llvmir.InstAlloca:
				if b != f.Blocks[0] {
					err = multierr.Append(err,
						fmt.Errorf("%s: allocation outside the entry block", f.Name()))
				}
			case *llvmir.InstCall:
				if callee, ok := inst.Callee.(*llvmir.Func); ok && !declared[callee] {
					err = multierr.Append(err,
						fmt.Errorf("%s: call to undeclared function %s", f.Name(), callee.Name()))
				}
			}
		}
	}
	return fmterr.Wrap(fmterr.KindValidationFailed, err)
}

// BackendConfig is the configuration handed to the LLVM backend when
// the module is compiled to PTX.
type BackendConfig struct {
	// MArch is the machine architecture.
	MArch string
	// CPU is the hardware generation identifier.
	CPU string
	// Features is the instruction-set feature string.
	Features string
	// LoopOpt enables the backend loop optimization passes.
	LoopOpt bool
	// SoftFloatABI selects a software floating point ABI.
	SoftFloatABI bool
}

// BackendConfig resolves the target into the backend configuration of
// this module.
func (g *CodeGen) BackendConfig() BackendConfig {
	return BackendConfig{
		MArch:        g.target.MArch(),
		CPU:          g.target.MCPU(),
		Features:     g.target.MAttrs(),
		LoopOpt:      g.target.LoopOptEnabled(),
		SoftFloatABI: g.target.SoftFloatABI(),
	}
}
