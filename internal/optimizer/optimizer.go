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
	"cascadedb/internal/config"
	kerrors "cascadedb/internal/errors"
)

// Optimizer turns a logical Expression tree into the cheapest physical
// Expression tree it can find under a required physical property and
// an upper-bound cost, by driving a fresh SearchSpace through the LIFO
// task queue (spec §3.3, §4.8).
type Optimizer struct {
	Rules         []Rule
	Cost          config.CostConfig
	EnableEpsilon bool
}

// NewOptimizer builds an optimizer with the kernel's default rule set
// from a full kernel configuration.
func NewOptimizer(cfg *config.Config) *Optimizer {
	return &Optimizer{Rules: DefaultRules(), Cost: cfg.Cost, EnableEpsilon: cfg.EnableEpsilonPruning}
}

// Result is the outcome of one Optimize call: the chosen physical tree,
// the search space it was found in (useful for explaining the plan) and
// the group the tree was rooted at.
type Result struct {
	Plan  *Expression
	Space *SearchSpace
	Root  GroupID
	Cost  Cost
}

// Optimize searches for the cheapest physical plan implementing logical,
// satisfying required, with total cost no worse than upperBound. A nil
// Plan with a nil error means no plan within upperBound was found.
func (o *Optimizer) Optimize(logical *Expression, required PhysicalProperties, upperBound Cost) (*Result, error) {
	ss := NewSearchSpace()
	root, err := ss.CopyIn(logical)
	if err != nil {
		return nil, err
	}

	e := newEngine(ss, o.Rules, o.Cost)
	ctx := &SearchContext{Required: required, UpperBound: upperBound}
	if o.EnableEpsilon {
		eps := Cost{}
		ctx.Epsilon = &eps
	}
	e.push(&OptimizeGroupTask{Group: root, Ctx: ctx})
	if err := e.drain(); err != nil {
		return nil, err
	}

	g := ss.Group(root)
	w, ok := g.winner(required)
	if !ok || w.Plan == nil {
		// No plan within upperBound is a normal negative result (spec §7,
		// §4.8 "report 'no plan'"), not an internal inconsistency — a
		// caller passing too tight an upperBound must get a nil Plan back,
		// not a fatal error.
		return &Result{Space: ss, Root: root, Cost: InfiniteCost()}, nil
	}

	plan, err := extractPlan(ss, g, required)
	if err != nil {
		return nil, err
	}
	return &Result{Plan: plan, Space: ss, Root: root, Cost: w.Cost}, nil
}

// extractPlan walks the winner circle from g down, rebuilding the chosen
// physical Expression tree.
func extractPlan(ss *SearchSpace, g *Group, required PhysicalProperties) (*Expression, error) {
	w, ok := g.winner(required)
	if !ok || w.Plan == nil {
		return nil, kerrors.NewInvariantError("missing winner while extracting plan")
	}
	op, ok := w.Plan.Op.(PhysicalOperator)
	if !ok {
		return nil, kerrors.NewInvariantError("winner plan operator is not physical")
	}
	inputs := make([]*Expression, len(w.Plan.Inputs))
	for i, cg := range w.Plan.Inputs {
		_, childReq := op.SatisfyRequiredProperties(required, i)
		child, err := extractPlan(ss, ss.Group(cg), childReq)
		if err != nil {
			return nil, err
		}
		inputs[i] = child
	}
	return &Expression{Op: w.Plan.Op, Inputs: inputs}, nil
}
