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

package ir

import (
	"fmt"
	"strings"
)

var binOpNames = map[BinaryOp]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod",
	OpMin: "min", OpMax: "max",
	OpEQ: "eq", OpNE: "ne", OpLT: "lt", OpLE: "le", OpGT: "gt", OpGE: "ge",
	OpAnd: "and", OpOr: "or",
}

var reduceOpNames = map[ReduceOp]string{
	ReduceAdd: "add", ReduceMul: "mul", ReduceMin: "min", ReduceMax: "max",
}

// String returns a compact structural representation of a node. Two
// expressions with the same representation are structurally identical.
func String(n Node) string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case *IntImm:
		fmt.Fprintf(b, "(%s %d)", n.T, n.Value)
	case *UIntImm:
		fmt.Fprintf(b, "(%s %d)", n.T, n.Value)
	case *FloatImm:
		fmt.Fprintf(b, "(%s %g)", n.T, n.Value)
	case *Var:
		fmt.Fprintf(b, "%s:%s", n.Name, n.T)
	case *Binary:
		fmt.Fprintf(b, "(%s ", binOpNames[n.Op])
		writeNode(b, n.A)
		b.WriteByte(' ')
		writeNode(b, n.B)
		b.WriteByte(')')
	case *Not:
		b.WriteString("(not ")
		writeNode(b, n.Value)
		b.WriteByte(')')
	case *Select:
		b.WriteString("(select ")
		writeNode(b, n.Cond)
		b.WriteByte(' ')
		writeNode(b, n.True)
		b.WriteByte(' ')
		writeNode(b, n.False)
		b.WriteByte(')')
	case *Ramp:
		b.WriteString("(ramp ")
		writeNode(b, n.Base)
		b.WriteByte(' ')
		writeNode(b, n.Stride)
		fmt.Fprintf(b, " %d)", n.Lanes)
	case *Broadcast:
		b.WriteString("(bcast ")
		writeNode(b, n.Value)
		fmt.Fprintf(b, " %d)", n.Lanes)
	case *Load:
		fmt.Fprintf(b, "(load %s %s ", n.T, n.Name)
		writeNode(b, n.Index)
		if !IsConstTrue(n.Predicate) {
			b.WriteString(" if ")
			writeNode(b, n.Predicate)
		}
		b.WriteByte(')')
	case *Cast:
		fmt.Fprintf(b, "(cast %s ", n.T)
		writeNode(b, n.Value)
		b.WriteByte(')')
	case *Reinterpret:
		fmt.Fprintf(b, "(reinterpret %s ", n.T)
		writeNode(b, n.Value)
		b.WriteByte(')')
	case *Call:
		fmt.Fprintf(b, "(call %s %s", n.T, n.Name)
		for _, arg := range n.Args {
			b.WriteByte(' ')
			writeNode(b, arg)
		}
		b.WriteByte(')')
	case *Let:
		fmt.Fprintf(b, "(let %s = ", n.Name)
		writeNode(b, n.Value)
		b.WriteString(" in ")
		writeNode(b, n.Body)
		b.WriteByte(')')
	case *Shuffle:
		b.WriteString("(shuffle")
		for _, v := range n.Vectors {
			b.WriteByte(' ')
			writeNode(b, v)
		}
		fmt.Fprintf(b, " %v)", n.Indices)
	case *VectorReduce:
		fmt.Fprintf(b, "(reduce-%s ", reduceOpNames[n.Op])
		writeNode(b, n.Value)
		fmt.Fprintf(b, " %d", n.Lanes)
		if n.Init != nil {
			b.WriteString(" init ")
			writeNode(b, n.Init)
		}
		b.WriteByte(')')
	case *Evaluate:
		b.WriteString("(evaluate ")
		writeNode(b, n.Value)
		b.WriteByte(')')
	case *Store:
		fmt.Fprintf(b, "(store %s ", n.Name)
		writeNode(b, n.Index)
		b.WriteString(" <- ")
		writeNode(b, n.Value)
		if !IsConstTrue(n.Predicate) {
			b.WriteString(" if ")
			writeNode(b, n.Predicate)
		}
		b.WriteByte(')')
	case *For:
		fmt.Fprintf(b, "(for %s ", n.Name)
		writeNode(b, n.Min)
		b.WriteByte(' ')
		writeNode(b, n.Extent)
		b.WriteByte(' ')
		writeNode(b, n.Body)
		b.WriteByte(')')
	case *Allocate:
		fmt.Fprintf(b, "(allocate %s %s", n.Name, n.T)
		for _, e := range n.Extents {
			b.WriteByte(' ')
			writeNode(b, e)
		}
		b.WriteString(" in ")
		writeNode(b, n.Body)
		b.WriteByte(')')
	case *Free:
		fmt.Fprintf(b, "(free %s)", n.Name)
	case *AssertStmt:
		b.WriteString("(assert ")
		writeNode(b, n.Condition)
		b.WriteByte(')')
	case *Atomic:
		b.WriteString("(atomic ")
		writeNode(b, n.Body)
		b.WriteByte(')')
	case *IfThenElse:
		b.WriteString("(if ")
		writeNode(b, n.Condition)
		b.WriteByte(' ')
		writeNode(b, n.Then)
		if n.Else != nil {
			b.WriteByte(' ')
			writeNode(b, n.Else)
		}
		b.WriteByte(')')
	case *LetStmt:
		fmt.Fprintf(b, "(let %s = ", n.Name)
		writeNode(b, n.Value)
		b.WriteString(" in ")
		writeNode(b, n.Body)
		b.WriteByte(')')
	case *Block:
		b.WriteString("(block")
		for _, s := range n.Stmts {
			b.WriteByte(' ')
			writeNode(b, s)
		}
		b.WriteByte(')')
	default:
		fmt.Fprintf(b, "(unknown %T)", n)
	}
}
