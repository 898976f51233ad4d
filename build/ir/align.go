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

// ModulusRemainder is the compile-time alignment of a memory access
// index: the index is known to be congruent to Remainder modulo Modulus,
// counted in elements. A zero Modulus means the alignment is unknown.
type ModulusRemainder struct {
	Modulus   int64
	Remainder int64
}

// DivisibleBy returns true if the alignment is provably a multiple of f.
func (m ModulusRemainder) DivisibleBy(f int64) bool {
	return m.Modulus > 0 && m.Modulus%f == 0 && m.Remainder%f == 0
}

// Div scales the alignment down by a factor that divides both the
// modulus and the remainder.
func (m ModulusRemainder) Div(f int64) ModulusRemainder {
	return ModulusRemainder{Modulus: m.Modulus / f, Remainder: m.Remainder / f}
}
