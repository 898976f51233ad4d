// Package scope provides a stack-discipline symbol table.
//
// A name pushed in an inner scope shadows, and on pop restores, any
// same-named binding from an enclosing scope. Pops must exactly mirror
// pushes: an unmatched pop is reported as an error rather than ignored.
package scope

import (
	"slices"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// Scope maps names to stacks of values.
type Scope[T any] struct {
	table map[string][]T
}

// New returns an empty scope.
func New[T any]() *Scope[T] {
	return &Scope[T]{table: make(map[string][]T)}
}

// Push binds name to value in the innermost scope, shadowing any
// existing binding for the same name.
func (s *Scope[T]) Push(name string, value T) {
	s.table[name] = append(s.table[name], value)
}

// Pop removes the innermost binding for name, restoring the shadowed
// binding if there is one.
func (s *Scope[T]) Pop(name string) error {
	stack := s.table[name]
	if len(stack) == 0 {
		return errors.Errorf("unmatched pop of symbol %q", name)
	}
	if len(stack) == 1 {
		delete(s.table, name)
		return nil
	}
	s.table[name] = stack[:len(stack)-1]
	return nil
}

// Lookup returns the innermost binding for name.
func (s *Scope[T]) Lookup(name string) (T, bool) {
	stack := s.table[name]
	if len(stack) == 0 {
		var zero T
		return zero, false
	}
	return stack[len(stack)-1], true
}

// Contains returns true if name has an active binding.
func (s *Scope[T]) Contains(name string) bool {
	return len(s.table[name]) > 0
}

// Empty returns true if no binding is active.
func (s *Scope[T]) Empty() bool {
	return len(s.table) == 0
}

// Names returns the sorted list of bound names.
func (s *Scope[T]) Names() []string {
	names := maps.Keys(s.table)
	slices.Sort(names)
	return names
}
