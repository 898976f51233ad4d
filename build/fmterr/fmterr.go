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

// Package fmterr defines the compile-time error taxonomy of the
// kernel lowering engine.
//
// All errors are fail-fast: a failure aborts the current kernel's
// lowering and propagates to the caller. None of them are recoverable
// within one lowering.
package fmterr

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a lowering failure.
type Kind int

const (
	// KindUnknown is the zero kind, used for errors outside the taxonomy.
	KindUnknown Kind = iota
	// KindUnboundSymbol reports a lookup of a name with no active binding.
	KindUnboundSymbol
	// KindMalformedIntrinsic reports a recognized intrinsic call with the
	// wrong argument count or shape.
	KindMalformedIntrinsic
	// KindUnsupportedConstruct reports a construct that is categorically
	// unsupported on the target.
	KindUnsupportedConstruct
	// KindDynamicSizeInKernel reports a local allocation without a
	// statically known positive size.
	KindDynamicSizeInKernel
	// KindUnsupportedAtomicWidth reports an atomic store narrower than
	// 32 bits, or a predicated atomic store.
	KindUnsupportedAtomicWidth
	// KindValidationFailed reports a function or module that fails the
	// structural self-check after lowering.
	KindValidationFailed
)

var kindNames = map[Kind]string{
	KindUnboundSymbol:          "unbound symbol",
	KindMalformedIntrinsic:     "malformed intrinsic",
	KindUnsupportedConstruct:   "unsupported construct",
	KindDynamicSizeInKernel:    "dynamic size in kernel",
	KindUnsupportedAtomicWidth: "unsupported atomic width",
	KindValidationFailed:       "validation failed",
}

// String returns a human readable name of the kind.
func (k Kind) String() string {
	name, ok := kindNames[k]
	if !ok {
		return "unknown error"
	}
	return name
}

// Error is an error tagged with a Kind.
type Error struct {
	kind Kind
	err  error
}

// Newf returns a new error of a given kind.
func Newf(kind Kind, format string, a ...any) error {
	return &Error{kind: kind, err: errors.Errorf(format, a...)}
}

// Wrap tags an existing error with a kind.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, err: err}
}

// Error returns a string description of the error.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

// Kind of the error.
func (e *Error) Kind() Kind {
	return e.kind
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.err
}

// KindOf returns the kind of an error, or KindUnknown if the error does
// not belong to the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if !stderrors.As(err, &e) {
		return KindUnknown
	}
	return e.kind
}

// IsKind returns true if the error is of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Internal marks an error as internal, potentially adding additional information.
func Internal(err error) error {
	return fmt.Errorf("internal error. This is a bug in ptxgen. Please report it. Error:\n%+v", err)
}

// Internalf returns a formatted internal error.
func Internalf(format string, a ...any) error {
	return Internal(errors.Errorf(format, a...))
}
