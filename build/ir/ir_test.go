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

package ir_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ptx-org/ptxgen/build/ir"
)

func TestConstHelpers(t *testing.T) {
	tests := []struct {
		expr     ir.Expr
		wantInt  int64
		wantOK   bool
		wantZero bool
	}{
		{expr: ir.Imm(0), wantInt: 0, wantOK: true, wantZero: true},
		{expr: ir.Imm(4), wantInt: 4, wantOK: true},
		{expr: &ir.UIntImm{T: ir.UintType(32, 1), Value: 7}, wantInt: 7, wantOK: true},
		{expr: &ir.Broadcast{Value: ir.Imm(0), Lanes: 4}, wantInt: 0, wantOK: true, wantZero: true},
		{expr: &ir.Var{T: ir.IntType(32, 1), Name: "x"}},
	}
	for _, test := range tests {
		got, ok := ir.ConstInt(test.expr)
		if ok != test.wantOK || got != test.wantInt {
			t.Errorf("ConstInt(%s)=%d,%v want %d,%v", ir.String(test.expr), got, ok, test.wantInt, test.wantOK)
		}
		if zero := ir.IsConstZero(test.expr); zero != test.wantZero {
			t.Errorf("IsConstZero(%s)=%v want %v", ir.String(test.expr), zero, test.wantZero)
		}
	}
}

func TestPredicateTriviality(t *testing.T) {
	if !ir.IsConstTrue(nil) {
		t.Error("nil predicate: want trivially true")
	}
	if !ir.IsConstTrue(ir.ConstTrue(4)) {
		t.Error("broadcast true: want trivially true")
	}
	pred := ir.LT(&ir.Var{T: ir.IntType(32, 1), Name: "x"}, ir.Imm(8))
	if ir.IsConstTrue(pred) {
		t.Error("comparison predicate: want not trivially true")
	}
}

func TestShuffleTypes(t *testing.T) {
	vec := &ir.Var{T: ir.IntType(32, 8), Name: "v"}
	tests := []struct {
		expr ir.Expr
		want ir.Type
	}{
		{expr: ir.ExtractLane(vec, 3), want: ir.IntType(32, 1)},
		{expr: ir.SliceLanes(vec, 0, 1, 4), want: ir.IntType(32, 4)},
		{expr: ir.SliceLanes(vec, 0, 1, 8), want: ir.IntType(32, 8)},
		{expr: ir.Concat(vec, vec), want: ir.IntType(32, 16)},
	}
	for _, test := range tests {
		if got := test.expr.Type(); got != test.want {
			t.Errorf("%s: type %s, want %s", ir.String(test.expr), got, test.want)
		}
	}
	// A full-width slice is the vector itself.
	if got := ir.SliceLanes(vec, 0, 1, 8); got != ir.Expr(vec) {
		t.Error("identity slice: want the input vector unchanged")
	}
}

func TestBinaryTypes(t *testing.T) {
	a := &ir.Var{T: ir.IntType(32, 4), Name: "a"}
	b := &ir.Var{T: ir.IntType(32, 4), Name: "b"}
	if got, want := ir.Add(a, b).Type(), ir.IntType(32, 4); got != want {
		t.Errorf("add type %s, want %s", got, want)
	}
	if got, want := ir.LT(a, b).Type(), ir.BoolType(4); got != want {
		t.Errorf("compare type %s, want %s", got, want)
	}
}

func TestAlignment(t *testing.T) {
	tests := []struct {
		align ir.ModulusRemainder
		f     int64
		want  bool
	}{
		{align: ir.ModulusRemainder{Modulus: 4, Remainder: 0}, f: 4, want: true},
		{align: ir.ModulusRemainder{Modulus: 8, Remainder: 4}, f: 4, want: true},
		{align: ir.ModulusRemainder{Modulus: 4, Remainder: 2}, f: 4, want: false},
		{align: ir.ModulusRemainder{Modulus: 2, Remainder: 0}, f: 4, want: false},
		{align: ir.ModulusRemainder{}, f: 4, want: false},
	}
	for _, test := range tests {
		if got := test.align.DivisibleBy(test.f); got != test.want {
			t.Errorf("%+v.DivisibleBy(%d)=%v want %v", test.align, test.f, got, test.want)
		}
	}
	got := ir.ModulusRemainder{Modulus: 8, Remainder: 4}.Div(4)
	want := ir.ModulusRemainder{Modulus: 2, Remainder: 1}
	if !cmp.Equal(got, want) {
		t.Errorf("Div(4)=%+v want %+v", got, want)
	}
}

func TestStringStable(t *testing.T) {
	load := &ir.Load{
		T:     ir.IntType(32, 4),
		Name:  "in",
		Index: &ir.Ramp{Base: ir.Imm(0), Stride: ir.Imm(1), Lanes: 4},
	}
	same := &ir.Load{
		T:     ir.IntType(32, 4),
		Name:  "in",
		Index: &ir.Ramp{Base: ir.Imm(0), Stride: ir.Imm(1), Lanes: 4},
	}
	if !ir.Equal(load, same) {
		t.Error("structurally identical loads: want Equal")
	}
	other := &ir.Load{
		T:     ir.IntType(32, 4),
		Name:  "out",
		Index: load.Index,
	}
	if ir.Equal(load, other) {
		t.Error("loads of different buffers: want not Equal")
	}
}
