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

// Package ir is the architecture-neutral Intermediate Representation (IR)
// of a kernel body: a statement tree over typed expressions.
//
// The node set is closed: lowering stages dispatch over it with an
// exhaustive type switch, delegating the kinds they do not override to a
// generic lowering function.
package ir

// ----------------------------------------------------------------------------
// Types of node in the tree.
type (
	// Node in the tree.
	Node interface {
		// node marks a structure as a node structure.
		// It prevents arbitrary structures from being used as nodes.
		node()
	}

	// Expr is a node producing a typed value.
	Expr interface {
		Node
		// Type of the value produced by the expression.
		Type() Type
		expr()
	}

	// Stmt is a node executed for its effect.
	Stmt interface {
		Node
		stmt()
	}
)

// CallKind describes how a call is resolved.
type CallKind uint8

const (
	// CallIntrinsic is a call handled by the lowering engine itself.
	CallIntrinsic CallKind = iota
	// CallExtern is a call to an external symbol.
	CallExtern
	// CallPureExtern is a call to an external symbol with no side effect.
	CallPureExtern
)

// GPUThreadBarrier is the intrinsic name of a block-wide execution and
// memory barrier. It carries a single constant argument: the requested
// memory fence scope.
const GPUThreadBarrier = "gpu_thread_barrier"

// BinaryOp is the operator of a Binary expression.
type BinaryOp uint8

const (
	// OpAdd is addition.
	OpAdd BinaryOp = iota
	// OpSub is subtraction.
	OpSub
	// OpMul is multiplication.
	OpMul
	// OpDiv is division.
	OpDiv
	// OpMod is modulo.
	OpMod
	// OpMin is the minimum of two values.
	OpMin
	// OpMax is the maximum of two values.
	OpMax
	// OpEQ compares for equality.
	OpEQ
	// OpNE compares for inequality.
	OpNE
	// OpLT compares with less-than.
	OpLT
	// OpLE compares with less-or-equal.
	OpLE
	// OpGT compares with greater-than.
	OpGT
	// OpGE compares with greater-or-equal.
	OpGE
	// OpAnd is boolean conjunction.
	OpAnd
	// OpOr is boolean disjunction.
	OpOr
)

// IsComparison returns true if the operator produces a boolean.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEQ && op <= OpGE
}

// ReduceOp is the accumulation operator of a VectorReduce.
type ReduceOp uint8

const (
	// ReduceAdd sums the lanes.
	ReduceAdd ReduceOp = iota
	// ReduceMul multiplies the lanes.
	ReduceMul
	// ReduceMin takes the minimum across the lanes.
	ReduceMin
	// ReduceMax takes the maximum across the lanes.
	ReduceMax
)

// MemorySpace is where an allocation lives on the device.
type MemorySpace uint8

const (
	// MemoryLocal is per-thread, stack-resident storage.
	MemoryLocal MemorySpace = iota
	// MemoryShared is the fast scratch space visible to all threads of a block.
	MemoryShared
)

// ----------------------------------------------------------------------------
// Expressions.
type (
	// IntImm is a signed integer immediate.
	IntImm struct {
		T     Type
		Value int64
	}

	// UIntImm is an unsigned integer immediate. Booleans are 1-bit
	// unsigned immediates.
	UIntImm struct {
		T     Type
		Value uint64
	}

	// FloatImm is a floating point immediate.
	FloatImm struct {
		T     Type
		Value float64
	}

	// Var references a name bound by an enclosing construct: a device
	// argument, a loop variable, an allocation, or a let.
	Var struct {
		T    Type
		Name string
	}

	// Binary applies an operator to two operands of the same type.
	Binary struct {
		Op   BinaryOp
		A, B Expr
	}

	// Not negates a boolean.
	Not struct {
		Value Expr
	}

	// Select chooses between two values lane-wise.
	Select struct {
		Cond        Expr
		True, False Expr
	}

	// Ramp is an affine sequence of lanes: Base, Base+Stride, ...,
	// Base+(Lanes-1)*Stride.
	Ramp struct {
		Base   Expr
		Stride Expr
		Lanes  int
	}

	// Broadcast replicates a scalar across lanes.
	Broadcast struct {
		Value Expr
		Lanes int
	}

	// Load reads from the buffer bound to Name at Index. Predicate,
	// when non-nil and not constant true, masks the lanes to read.
	Load struct {
		T         Type
		Name      string
		Index     Expr
		Predicate Expr
		Align     ModulusRemainder
	}

	// Cast converts a value to another type of the same lane count.
	Cast struct {
		T     Type
		Value Expr
	}

	// Reinterpret reuses the bits of a value as another type of the
	// same total width.
	Reinterpret struct {
		T     Type
		Value Expr
	}

	// Call invokes an intrinsic or an external function.
	Call struct {
		T    Type
		Name string
		Args []Expr
		Kind CallKind
	}

	// Let binds Name to Value within Body.
	Let struct {
		Name  string
		Value Expr
		Body  Expr
	}

	// Shuffle rearranges the lanes of the concatenation of Vectors.
	// Each index selects one lane of that concatenation. A single index
	// produces a scalar.
	Shuffle struct {
		Vectors []Expr
		Indices []int
	}

	// VectorReduce reduces groups of input lanes to Lanes output lanes
	// with the accumulation operator Op. Init, when non-nil, is folded
	// into the result.
	VectorReduce struct {
		Op    ReduceOp
		Value Expr
		Lanes int
		Init  Expr
	}
)

// ----------------------------------------------------------------------------
// Statements.
type (
	// Evaluate computes an expression for its effect and discards the value.
	Evaluate struct {
		Value Expr
	}

	// Store writes Value to the buffer bound to Name at Index.
	Store struct {
		Name      string
		Value     Expr
		Index     Expr
		Predicate Expr
		Align     ModulusRemainder
	}

	// For iterates Name over [Min, Min+Extent). A loop whose name ends
	// with a GPU axis suffix is realized by parallel hardware instances
	// instead of serial iteration.
	For struct {
		Name   string
		Min    Expr
		Extent Expr
		Body   Stmt
	}

	// Allocate binds Name to a new allocation of Extents elements of
	// type T in the given memory space, visible within Body. NewExpr,
	// when non-nil, is a custom construction expression.
	Allocate struct {
		Name    string
		T       Type
		Memory  MemorySpace
		Extents []Expr
		NewExpr Expr
		Body    Stmt
	}

	// Free releases the allocation bound to Name.
	Free struct {
		Name string
	}

	// AssertStmt aborts execution when Condition does not hold.
	AssertStmt struct {
		Condition Expr
		Message   string
	}

	// Atomic executes Body as an atomic update. A non-empty MutexName
	// requests mutual exclusion through a named lock.
	Atomic struct {
		ProducerName string
		MutexName    string
		Body         Stmt
	}

	// IfThenElse branches on a scalar condition. Else may be nil.
	IfThenElse struct {
		Condition Expr
		Then      Stmt
		Else      Stmt
	}

	// LetStmt binds Name to Value within Body.
	LetStmt struct {
		Name  string
		Value Expr
		Body  Stmt
	}

	// Block executes statements in sequence.
	Block struct {
		Stmts []Stmt
	}
)

// DeviceArg is one argument of a kernel. Buffer arguments denote
// pointer-like device memory; the others are scalar values.
type DeviceArg struct {
	Name     string
	T        Type
	IsBuffer bool
}

func (*IntImm) node()       {}
func (*UIntImm) node()      {}
func (*FloatImm) node()     {}
func (*Var) node()          {}
func (*Binary) node()       {}
func (*Not) node()          {}
func (*Select) node()       {}
func (*Ramp) node()         {}
func (*Broadcast) node()    {}
func (*Load) node()         {}
func (*Cast) node()         {}
func (*Reinterpret) node()  {}
func (*Call) node()         {}
func (*Let) node()          {}
func (*Shuffle) node()      {}
func (*VectorReduce) node() {}
func (*Evaluate) node()     {}
func (*Store) node()        {}
func (*For) node()          {}
func (*Allocate) node()     {}
func (*Free) node()         {}
func (*AssertStmt) node()   {}
func (*Atomic) node()       {}
func (*IfThenElse) node()   {}
func (*LetStmt) node()      {}
func (*Block) node()        {}

func (*IntImm) expr()       {}
func (*UIntImm) expr()      {}
func (*FloatImm) expr()     {}
func (*Var) expr()          {}
func (*Binary) expr()       {}
func (*Not) expr()          {}
func (*Select) expr()       {}
func (*Ramp) expr()         {}
func (*Broadcast) expr()    {}
func (*Load) expr()         {}
func (*Cast) expr()         {}
func (*Reinterpret) expr()  {}
func (*Call) expr()         {}
func (*Let) expr()          {}
func (*Shuffle) expr()      {}
func (*VectorReduce) expr() {}

func (*Evaluate) stmt()   {}
func (*Store) stmt()      {}
func (*For) stmt()        {}
func (*Allocate) stmt()   {}
func (*Free) stmt()       {}
func (*AssertStmt) stmt() {}
func (*Atomic) stmt()     {}
func (*IfThenElse) stmt() {}
func (*LetStmt) stmt()    {}
func (*Block) stmt()      {}

// Type of the immediate.
func (e *IntImm) Type() Type { return e.T }

// Type of the immediate.
func (e *UIntImm) Type() Type { return e.T }

// Type of the immediate.
func (e *FloatImm) Type() Type { return e.T }

// Type of the referenced value.
func (e *Var) Type() Type { return e.T }

// Type of the result: the operand type, or a boolean of the same lane
// count for comparisons.
func (e *Binary) Type() Type {
	if e.Op.IsComparison() {
		return BoolType(e.A.Type().Lanes)
	}
	return e.A.Type()
}

// Type of the negated boolean.
func (e *Not) Type() Type { return e.Value.Type() }

// Type of the selected value.
func (e *Select) Type() Type { return e.True.Type() }

// Type of the sequence: the base type widened to Lanes.
func (e *Ramp) Type() Type { return e.Base.Type().WithLanes(e.Lanes) }

// Type of the replicated value.
func (e *Broadcast) Type() Type { return e.Value.Type().WithLanes(e.Lanes) }

// Type of the loaded value.
func (e *Load) Type() Type { return e.T }

// Type the value is converted to.
func (e *Cast) Type() Type { return e.T }

// Type the bits are viewed as.
func (e *Reinterpret) Type() Type { return e.T }

// Type of the call result.
func (e *Call) Type() Type { return e.T }

// Type of the body.
func (e *Let) Type() Type { return e.Body.Type() }

// Type of the rearranged value.
func (e *Shuffle) Type() Type {
	return e.Vectors[0].Type().Elem().WithLanes(len(e.Indices))
}

// Type of the reduction result.
func (e *VectorReduce) Type() Type {
	return e.Value.Type().WithLanes(e.Lanes)
}
