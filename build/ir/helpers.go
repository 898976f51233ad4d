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

// Add returns a + b.
func Add(a, b Expr) Expr { return &Binary{Op: OpAdd, A: a, B: b} }

// Sub returns a - b.
func Sub(a, b Expr) Expr { return &Binary{Op: OpSub, A: a, B: b} }

// Mul returns a * b.
func Mul(a, b Expr) Expr { return &Binary{Op: OpMul, A: a, B: b} }

// Div returns a / b.
func Div(a, b Expr) Expr { return &Binary{Op: OpDiv, A: a, B: b} }

// LT returns a < b.
func LT(a, b Expr) Expr { return &Binary{Op: OpLT, A: a, B: b} }

// Imm returns a scalar signed 32-bit immediate.
func Imm(value int64) Expr {
	return &IntImm{T: IntType(32, 1), Value: value}
}

// ImmOf returns an immediate of an arbitrary scalar type.
func ImmOf(t Type, value int64) Expr {
	switch {
	case t.IsFloat():
		return &FloatImm{T: t, Value: float64(value)}
	case t.IsUint():
		return &UIntImm{T: t, Value: uint64(value)}
	default:
		return &IntImm{T: t, Value: value}
	}
}

// ConstTrue returns a boolean constant true over a number of lanes.
func ConstTrue(lanes int) Expr {
	one := &UIntImm{T: BoolType(1), Value: 1}
	if lanes == 1 {
		return one
	}
	return &Broadcast{Value: one, Lanes: lanes}
}

// ConstInt returns the value of a compile-time integer constant.
// Broadcasts of constants are constants.
func ConstInt(e Expr) (int64, bool) {
	switch e := e.(type) {
	case *IntImm:
		return e.Value, true
	case *UIntImm:
		return int64(e.Value), true
	case *Broadcast:
		return ConstInt(e.Value)
	}
	return 0, false
}

// IsConstZero returns true if the expression is a compile-time zero.
func IsConstZero(e Expr) bool {
	if f, ok := e.(*FloatImm); ok {
		return f.Value == 0
	}
	v, ok := ConstInt(e)
	return ok && v == 0
}

// IsConstOne returns true if the expression is a compile-time one.
func IsConstOne(e Expr) bool {
	if f, ok := e.(*FloatImm); ok {
		return f.Value == 1
	}
	v, ok := ConstInt(e)
	return ok && v == 1
}

// IsConstTrue returns true if a predicate is trivially true. A nil
// predicate counts as true.
func IsConstTrue(pred Expr) bool {
	return pred == nil || IsConstOne(pred)
}

// ExtractLane returns lane i of a vector.
func ExtractLane(v Expr, i int) Expr {
	return &Shuffle{Vectors: []Expr{v}, Indices: []int{i}}
}

// SliceLanes returns lanes start, start+stride, ... of a vector,
// counting count lanes.
func SliceLanes(v Expr, start, stride, count int) Expr {
	if start == 0 && stride == 1 && count == v.Type().Lanes {
		return v
	}
	indices := make([]int, count)
	for i := range indices {
		indices[i] = start + i*stride
	}
	return &Shuffle{Vectors: []Expr{v}, Indices: indices}
}

// Concat concatenates vectors lane-wise.
func Concat(vs ...Expr) Expr {
	if len(vs) == 1 {
		return vs[0]
	}
	var indices []int
	n := 0
	for _, v := range vs {
		for i := 0; i < v.Type().Lanes; i++ {
			indices = append(indices, n+i)
		}
		n += v.Type().Lanes
	}
	return &Shuffle{Vectors: vs, Indices: indices}
}

// Equal returns true if two expressions are structurally identical.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return String(a) == String(b)
}
