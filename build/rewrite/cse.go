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

package rewrite

import (
	"fmt"

	"github.com/ptx-org/ptxgen/build/ir"
)

// CSE eliminates common subexpressions: every repeated non-trivial
// subexpression is bound once in a Let and referenced by name.
func CSE(e ir.Expr) ir.Expr {
	var lets []*ir.Let
	for {
		key, node := nextCandidate(e)
		if node == nil {
			break
		}
		name := fmt.Sprintf("t%d", len(lets))
		ref := &ir.Var{T: node.Type(), Name: name}
		e = substitute(e, key, ref)
		lets = append(lets, &ir.Let{Name: name, Value: node})
	}
	for i := len(lets) - 1; i >= 0; i-- {
		lets[i].Body = e
		e = lets[i]
	}
	return e
}

// nextCandidate returns the smallest repeated non-trivial
// subexpression, keyed by its structural representation.
func nextCandidate(e ir.Expr) (string, ir.Expr) {
	type occurrence struct {
		node ir.Expr
		n    int
		size int
	}
	seen := make(map[string]*occurrence)
	walk(e, func(sub ir.Expr) {
		if !worthNaming(sub) {
			return
		}
		key := ir.String(sub)
		occ := seen[key]
		if occ == nil {
			seen[key] = &occurrence{node: sub, size: exprSize(sub)}
			occ = seen[key]
		}
		occ.n++
	})
	bestKey, best := "", (*occurrence)(nil)
	for key, occ := range seen {
		if occ.n < 2 {
			continue
		}
		if best == nil || occ.size < best.size || (occ.size == best.size && key < bestKey) {
			bestKey, best = key, occ
		}
	}
	if best == nil {
		return "", nil
	}
	return bestKey, best.node
}

func worthNaming(e ir.Expr) bool {
	switch e := e.(type) {
	case *ir.IntImm, *ir.UIntImm, *ir.FloatImm, *ir.Var:
		return false
	case *ir.Broadcast:
		return worthNaming(e.Value)
	case *ir.Ramp:
		return worthNaming(e.Base) || worthNaming(e.Stride)
	}
	return true
}

func exprSize(e ir.Expr) int {
	n := 0
	walk(e, func(ir.Expr) { n++ })
	return n
}

func substitute(e ir.Expr, key string, ref *ir.Var) ir.Expr {
	return transform(e, func(sub ir.Expr) ir.Expr {
		if ir.String(sub) == key {
			return ref
		}
		return sub
	})
}
