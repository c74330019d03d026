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

// Pattern describes the shape a rule matches against, rooted at the
// multi-expression a rule is asked to fire on. A nil entry in Children
// means "any group" (the common case: the rule only needs the child's
// group identity, not a specific shape within it). A non-nil entry
// requires the child group to contain a logical expression whose
// operator also matches that sub-pattern, recursively.
type Pattern struct {
	Match    func(op Operator) bool
	Children []*Pattern
}

// Binding is one way a Pattern matched against the search space: Root
// is the multi-expression the pattern's root matched, ChildExprs holds
// the matched child multi-expression for every non-wildcard child
// pattern position and nil for wildcard positions.
type Binding struct {
	Root       *MultiExpression
	ChildExprs []*MultiExpression
}

// enumerateBindings finds every way pattern matches rooted at root,
// recursively expanding non-wildcard children against their group's
// logical expression list (the rule "bindery" of spec §4.8).
func enumerateBindings(ss *SearchSpace, pattern *Pattern, root *MultiExpression) []Binding {
	if pattern.Match != nil && !pattern.Match(root.Op) {
		return nil
	}
	if len(pattern.Children) == 0 {
		return []Binding{{Root: root}}
	}

	choices := make([][]*MultiExpression, len(pattern.Children))
	for i, cp := range pattern.Children {
		if cp == nil {
			choices[i] = []*MultiExpression{nil}
			continue
		}
		grp := ss.Group(root.Inputs[i])
		var matches []*MultiExpression
		for _, le := range grp.Logical {
			if len(enumerateBindings(ss, cp, le)) > 0 {
				matches = append(matches, le)
			}
		}
		choices[i] = matches
	}

	var out []Binding
	var rec func(idx int, acc []*MultiExpression)
	rec = func(idx int, acc []*MultiExpression) {
		if idx == len(choices) {
			cp := make([]*MultiExpression, len(acc))
			copy(cp, acc)
			out = append(out, Binding{Root: root, ChildExprs: cp})
			return
		}
		for _, c := range choices[idx] {
			rec(idx+1, append(acc, c))
		}
	}
	rec(0, nil)
	return out
}
