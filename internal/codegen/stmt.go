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
	"github.com/ptx-org/ptxgen/build/fmterr"
	"github.com/ptx-org/ptxgen/build/ir"
	"go.uber.org/multierr"
)

// GenStmt lowers a statement with the generic, target-independent
// rules. Allocation, assertion, and axis semantics are device concerns
// and must be intercepted before reaching this function.
func (cg *CodeGen) GenStmt(s ir.Stmt) error {
	switch s := s.(type) {
	case *ir.Evaluate:
		_, err := cg.lower.Expr(s.Value)
		return err
	case *ir.Store:
		return cg.GenStore(s)
	case *ir.For:
		return cg.serialFor(s)
	case *ir.IfThenElse:
		return cg.ifThenElse(s)
	case *ir.LetStmt:
		return cg.letStmt(s)
	case *ir.Block:
		for _, sub := range s.Stmts {
			if err := cg.lower.Stmt(sub); err != nil {
				return err
			}
		}
		return nil
	case *ir.Atomic:
		return cg.lower.Stmt(s.Body)
	case *ir.Allocate, *ir.Free, *ir.AssertStmt:
		return fmterr.Internalf("statement %T must be lowered by the device code generator", s)
	}
	return fmterr.Internalf("cannot lower statement %T", s)
}

// serialFor emits a counted loop running on a single hardware instance.
func (cg *CodeGen) serialFor(s *ir.For) error {
	minV, extV, err := cg.operands(s.Min, s.Extent)
	if err != nil {
		return err
	}
	it, ok := minV.Type().(*types.IntType)
	if !ok {
		return fmterr.Internalf("loop bound of %q is not an integer but %v", s.Name, minV.Type())
	}
	maxV := cg.Block.NewAdd(minV, extV)
	pre := cg.Block
	header := cg.Fn.NewBlock("")
	body := cg.Fn.NewBlock("")
	exit := cg.Fn.NewBlock("")
	pre.NewBr(header)

	phi := header.NewPhi(llvmir.NewIncoming(minV, pre))
	cond := header.NewICmp(enum.IPredSLT, phi, maxV)
	header.NewCondBr(cond, body, exit)

	cg.Block = body
	cg.Syms.Push(s.Name, phi)
	err = cg.lower.Stmt(s.Body)
	err = multierr.Append(err, cg.Syms.Pop(s.Name))
	if err != nil {
		return err
	}
	latch := cg.Block
	next := latch.NewAdd(phi, constant.NewInt(it, 1))
	latch.NewBr(header)
	phi.Incs = append(phi.Incs, llvmir.NewIncoming(next, latch))

	cg.Block = exit
	return nil
}

func (cg *CodeGen) ifThenElse(s *ir.IfThenElse) error {
	cond, err := cg.lower.Expr(s.Condition)
	if err != nil {
		return err
	}
	thenB := cg.Fn.NewBlock("")
	exitB := cg.Fn.NewBlock("")
	elseB := exitB
	if s.Else != nil {
		elseB = cg.Fn.NewBlock("")
	}
	cg.Block.NewCondBr(cond, thenB, elseB)

	cg.Block = thenB
	if err := cg.lower.Stmt(s.Then); err != nil {
		return err
	}
	cg.Block.NewBr(exitB)
	if s.Else != nil {
		cg.Block = elseB
		if err := cg.lower.Stmt(s.Else); err != nil {
			return err
		}
		cg.Block.NewBr(exitB)
	}
	cg.Block = exitB
	return nil
}

func (cg *CodeGen) letStmt(s *ir.LetStmt) error {
	v, err := cg.lower.Expr(s.Value)
	if err != nil {
		return err
	}
	cg.Syms.Push(s.Name, v)
	err = cg.lower.Stmt(s.Body)
	return multierr.Append(err, cg.Syms.Pop(s.Name))
}
