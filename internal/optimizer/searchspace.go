/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package optimizer

import (
	"fmt"

	kerrors "cascadedb/internal/errors"
)

// dedupKey is the (operator content hash, child group IDs) pair spec
// §3.3/§4.8 describe as the memoization key. The hash alone is not
// collision-proof, so the key additionally carries enough to disambiguate
// on the rare hash collision: the child group list and the operator's
// own Equals check are consulted on lookup.
type dedupKey struct {
	hash     uint64
	children string
}

func childrenKey(children []GroupID) string {
	s := ""
	for _, g := range children {
		s += fmt.Sprintf("%d,", g)
	}
	return s
}

// SearchSpace is the memoization structure for one optimization run: an
// arena of groups keyed by GroupID, each holding its multi-expressions,
// plus a hash index for deduplication. It persists for the lifetime of
// one Optimizer.Optimize call (spec §3.3's lifecycle note).
type SearchSpace struct {
	groups []*Group
	dedup  map[dedupKey][]*MultiExpression
}

// NewSearchSpace returns an empty search space.
func NewSearchSpace() *SearchSpace {
	return &SearchSpace{dedup: make(map[dedupKey][]*MultiExpression)}
}

// Group looks up a group by ID. Callers never hold a group across a
// mutation that might reallocate the arena; GroupID is stable for the
// lifetime of the search space.
func (ss *SearchSpace) Group(id GroupID) *Group {
	return ss.groups[id]
}

// NewGroup allocates and returns an empty group.
func (ss *SearchSpace) NewGroup() *Group {
	g := newGroup(GroupID(len(ss.groups)))
	ss.groups = append(ss.groups, g)
	return g
}

// CopyIn recursively inserts a caller-supplied logical Expression tree
// into the search space, creating one new group per node (spec §4.8
// "Initial state"), and returns the root's group.
func (ss *SearchSpace) CopyIn(expr *Expression) (GroupID, error) {
	children := make([]GroupID, len(expr.Inputs))
	for i, in := range expr.Inputs {
		gid, err := ss.CopyIn(in)
		if err != nil {
			return -1, err
		}
		children[i] = gid
	}
	g := ss.NewGroup()
	m, _, err := ss.insertInto(g, expr.Op, children)
	if err != nil {
		return -1, err
	}
	_ = m
	return g.ID, nil
}

// InsertMExpr inserts an operator with the given child groups into
// target. If a content-identical multi-expression already exists
// anywhere in the search space, that existing record is returned and
// isNew is false — the caller discards its candidate, per spec §4.8's
// "Group deduplication".
func (ss *SearchSpace) InsertMExpr(target *Group, op Operator, children []GroupID) (*MultiExpression, bool, error) {
	for _, c := range children {
		if int(c) < 0 || int(c) >= len(ss.groups) {
			return nil, false, kerrors.DanglingInput(int(c))
		}
	}
	return ss.insertInto(target, op, children)
}

func (ss *SearchSpace) insertInto(target *Group, op Operator, children []GroupID) (*MultiExpression, bool, error) {
	hash := op.HashContent(children)
	key := dedupKey{hash: hash, children: childrenKey(children)}
	for _, cand := range ss.dedup[key] {
		if cand.Op.Equals(op) {
			return cand, false, nil
		}
	}

	physical := op.Category() == CategoryPhysical
	var id MExprID
	m := &MultiExpression{Op: op, Inputs: children, Hash: hash, ID: MExprID{Group: target.ID, Physical: physical}}
	if physical {
		id = MExprID{Group: target.ID, Index: len(target.Physical), Physical: true}
		target.Physical = append(target.Physical, m)
	} else {
		id = MExprID{Group: target.ID, Index: len(target.Logical), Physical: false}
		target.Logical = append(target.Logical, m)
	}
	m.ID = id
	ss.dedup[key] = append(ss.dedup[key], m)
	return m, true, nil
}

// MExpr resolves an MExprID to its multi-expression.
func (ss *SearchSpace) MExpr(id MExprID) *MultiExpression {
	g := ss.groups[id.Group]
	if id.Physical {
		return g.Physical[id.Index]
	}
	return g.Logical[id.Index]
}

// EnsureLogicalProperties computes and caches g's logical properties
// from its first logical multi-expression, recursing into child groups
// as needed. All logical multi-expressions in one group are required to
// produce the same logical properties, so the first is representative.
func (ss *SearchSpace) EnsureLogicalProperties(g *Group) (*LogicalProperties, error) {
	if g.LogicalProps != nil {
		return g.LogicalProps, nil
	}
	m := g.firstLogical()
	if m == nil {
		return nil, kerrors.NewInvariantError(fmt.Sprintf("group %d has no logical expression to derive properties from", g.ID))
	}
	lop, ok := m.Op.(LogicalOperator)
	if !ok {
		return nil, kerrors.NewInvariantError(fmt.Sprintf("group %d's representative expression %s is not logical", g.ID, m.Op.Name()))
	}
	inputs := make([]*LogicalProperties, len(m.Inputs))
	for i, cg := range m.Inputs {
		props, err := ss.EnsureLogicalProperties(ss.Group(cg))
		if err != nil {
			return nil, err
		}
		inputs[i] = props
	}
	g.LogicalProps = lop.DeriveLogicalProperties(inputs)
	return g.LogicalProps, nil
}
