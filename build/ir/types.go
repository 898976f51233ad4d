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

import "fmt"

// Kind is the fundamental kind of a scalar element.
type Kind uint8

const (
	// Int is a signed integer.
	Int Kind = iota
	// Uint is an unsigned integer.
	Uint
	// Float is an IEEE floating point number.
	Float
)

// Type of an expression: a scalar element kind and width, vectorized
// over a number of lanes. Lanes is 1 for scalars.
type Type struct {
	Kind  Kind
	Bits  int
	Lanes int
}

// IntType returns a signed integer type.
func IntType(bits, lanes int) Type {
	return Type{Kind: Int, Bits: bits, Lanes: lanes}
}

// UintType returns an unsigned integer type.
func UintType(bits, lanes int) Type {
	return Type{Kind: Uint, Bits: bits, Lanes: lanes}
}

// FloatType returns a floating point type.
func FloatType(bits, lanes int) Type {
	return Type{Kind: Float, Bits: bits, Lanes: lanes}
}

// BoolType returns a boolean type, represented as a 1-bit unsigned integer.
func BoolType(lanes int) Type {
	return Type{Kind: Uint, Bits: 1, Lanes: lanes}
}

// IsInt returns true for signed integer types.
func (t Type) IsInt() bool { return t.Kind == Int }

// IsUint returns true for unsigned integer types.
func (t Type) IsUint() bool { return t.Kind == Uint }

// IsIntOrUint returns true for integer types of either signedness.
func (t Type) IsIntOrUint() bool { return t.Kind == Int || t.Kind == Uint }

// IsFloat returns true for floating point types.
func (t Type) IsFloat() bool { return t.Kind == Float }

// IsBool returns true for 1-bit unsigned integer types.
func (t Type) IsBool() bool { return t.Kind == Uint && t.Bits == 1 }

// IsScalar returns true if the type has a single lane.
func (t Type) IsScalar() bool { return t.Lanes == 1 }

// IsVector returns true if the type has more than one lane.
func (t Type) IsVector() bool { return t.Lanes > 1 }

// Elem returns the scalar element type.
func (t Type) Elem() Type {
	t.Lanes = 1
	return t
}

// WithLanes returns the same element type with a different lane count.
func (t Type) WithLanes(lanes int) Type {
	t.Lanes = lanes
	return t
}

// TotalBits returns the width of the whole value, all lanes included.
func (t Type) TotalBits() int { return t.Bits * t.Lanes }

// String returns a compact representation of the type, e.g. i32x4.
func (t Type) String() string {
	var prefix string
	switch t.Kind {
	case Int:
		prefix = "i"
	case Uint:
		prefix = "u"
	case Float:
		prefix = "f"
	}
	if t.Lanes > 1 {
		return fmt.Sprintf("%s%dx%d", prefix, t.Bits, t.Lanes)
	}
	return fmt.Sprintf("%s%d", prefix, t.Bits)
}
