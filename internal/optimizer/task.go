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
	"strconv"

	"cascadedb/internal/config"
	"cascadedb/internal/logging"
)

var log = logging.NewLogger("optimizer")

// Task is one unit of search work, per spec §4.8's LIFO task queue.
type Task interface {
	Run(e *engine) error
}

// engine drives one Optimizer.Optimize call: the search space, the rule
// set, the cost model, and the pending task stack.
type engine struct {
	ss    *SearchSpace
	rules []Rule
	cc    config.CostConfig
	stack []Task
}

func newEngine(ss *SearchSpace, rules []Rule, cc config.CostConfig) *engine {
	return &engine{ss: ss, rules: rules, cc: cc}
}

func (e *engine) push(t Task) { e.stack = append(e.stack, t) }

func (e *engine) pop() (Task, bool) {
	if len(e.stack) == 0 {
		return nil, false
	}
	t := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return t, true
}

func (e *engine) drain() error {
	for {
		t, ok := e.pop()
		if !ok {
			return nil
		}
		if err := t.Run(e); err != nil {
			return err
		}
	}
}

// ---- OptimizeGroup -----------------------------------------------------

// OptimizeGroupTask finds the cheapest plan for Group satisfying
// Ctx.Required within Ctx.UpperBound, per spec §4.8.
type OptimizeGroupTask struct {
	Group GroupID
	Ctx   *SearchContext
}

func (t *OptimizeGroupTask) Run(e *engine) error {
	g := e.ss.Group(t.Group)
	if status, _ := g.GetWinnerStatus(t.Ctx); status == StatusSatisfied || status == StatusUnsatisfiable {
		return nil
	}
	if g.isOptimized(t.Ctx.Required) {
		return nil
	}
	if _, err := e.ss.EnsureLogicalProperties(g); err != nil {
		return err
	}

	if !t.Ctx.Required.Order.IsAny() {
		key := t.Ctx.Required.key()
		if !g.sortEnforced[key] {
			g.sortEnforced[key] = true
			enforcer := &Sort{Columns: t.Ctx.Required.Order.Columns}
			if _, _, err := e.ss.InsertMExpr(g, enforcer, []GroupID{g.ID}); err != nil {
				return err
			}
		}
	}

	e.push(&markOptimizedTask{Group: g.ID, Required: t.Ctx.Required})
	for _, m := range g.Logical {
		e.push(&OptimizeExpressionTask{MExpr: m.ID, Ctx: t.Ctx})
	}
	for _, m := range g.Physical {
		// A self-referential sort enforcer (its lone child is its own
		// group) contributes nothing useful toward an "any order"
		// requirement and, if considered there, would re-derive that
		// same requirement on its own child forever. Only let it compete
		// when the requirement it exists to satisfy is non-trivial.
		if isSelfSort(m, g.ID) && t.Ctx.Required.Order.IsAny() {
			continue
		}
		e.push(&OptimizeExpressionTask{MExpr: m.ID, Ctx: t.Ctx})
	}
	return nil
}

func isSelfSort(m *MultiExpression, gid GroupID) bool {
	_, ok := m.Op.(*Sort)
	return ok && len(m.Inputs) == 1 && m.Inputs[0] == gid
}

type markOptimizedTask struct {
	Group    GroupID
	Required PhysicalProperties
}

func (t *markOptimizedTask) Run(e *engine) error {
	e.ss.Group(t.Group).markOptimized(t.Required)
	return nil
}

// ---- ExploreGroup --------------------------------------------------------

// ExploreGroupTask ensures Group's logical alternatives are fully
// enumerated (transformation rules only, no costing) so that a pattern
// matching against this group's shape — e.g. join associativity
// inspecting a child join — has material to match against.
type ExploreGroupTask struct {
	Group GroupID
}

func (t *ExploreGroupTask) Run(e *engine) error {
	g := e.ss.Group(t.Group)
	if g.Explored || g.Exploring {
		return nil
	}
	g.Exploring = true
	e.push(&markExploredTask{Group: g.ID})
	for _, m := range g.Logical {
		for _, r := range e.rules {
			if r.IsLogicalToPhysical || m.fired(r.Ordinal) {
				continue
			}
			e.push(&ApplyRuleTask{MExpr: m.ID, Rule: r.Ordinal, Ctx: nil})
		}
	}
	return nil
}

type markExploredTask struct{ Group GroupID }

func (t *markExploredTask) Run(e *engine) error {
	g := e.ss.Group(t.Group)
	g.Explored = true
	g.Exploring = false
	return nil
}

// ---- OptimizeExpression --------------------------------------------------

// OptimizeExpressionTask applies every unfired rule to a logical
// multi-expression (after making sure its children's logical
// alternatives exist to match against), or moves a physical
// multi-expression straight to costing.
type OptimizeExpressionTask struct {
	MExpr MExprID
	Ctx   *SearchContext
}

func (t *OptimizeExpressionTask) Run(e *engine) error {
	m := e.ss.MExpr(t.MExpr)
	if t.MExpr.Physical {
		e.push(&OptimizeInputsTask{MExpr: t.MExpr, Ctx: t.Ctx})
		return nil
	}
	for _, c := range m.Inputs {
		e.push(&ExploreGroupTask{Group: c})
	}
	for _, r := range e.rules {
		if m.fired(r.Ordinal) {
			continue
		}
		e.push(&ApplyRuleTask{MExpr: t.MExpr, Rule: r.Ordinal, Ctx: t.Ctx})
	}
	return nil
}

// ---- ApplyRule ------------------------------------------------------------

// ApplyRuleTask fires one rule against one multi-expression, inserting
// whatever new multi-expressions its bindings produce and scheduling
// follow-up work for each new alternative. Ctx nil means this firing came
// from exploration (transformation rules only, no costing follow-up).
type ApplyRuleTask struct {
	MExpr MExprID
	Rule  int
	Ctx   *SearchContext
}

func (t *ApplyRuleTask) Run(e *engine) error {
	m := e.ss.MExpr(t.MExpr)
	if m.fired(t.Rule) {
		return nil
	}
	m.markFired(t.Rule)
	rule := e.rules[t.Rule]
	if t.Ctx == nil && rule.IsLogicalToPhysical {
		return nil
	}

	target := e.ss.Group(t.MExpr.Group)
	bindings := enumerateBindings(e.ss, rule.Pattern, m)
	for _, b := range bindings {
		if rule.Condition != nil {
			required := PhysicalProperties{}
			if t.Ctx != nil {
				required = t.Ctx.Required
			}
			if !rule.Condition(e.ss, b, &SearchContext{Required: required}) {
				continue
			}
		}
		required := PhysicalProperties{}
		if t.Ctx != nil {
			required = t.Ctx.Required
		}
		newOp, children, err := rule.Substitute(e.ss, b, required)
		if err != nil {
			return err
		}
		nm, isNew, err := e.ss.InsertMExpr(target, newOp, children)
		if err != nil {
			return err
		}
		if !isNew {
			continue
		}
		if t.Ctx != nil {
			e.push(&OptimizeExpressionTask{MExpr: nm.ID, Ctx: t.Ctx})
		} else if !rule.IsLogicalToPhysical {
			e.push(&ExploreGroupTask{Group: target.ID})
		}
	}
	return nil
}

// ---- OptimizeInputs -------------------------------------------------------

// OptimizeInputsTask costs one physical multi-expression bottom-up,
// optimizing whichever child group is needed next under the property it
// must deliver. NextInput/AccumCost let the task suspend on a child that
// still needs search and resume exactly where it left off once that
// child's winner is ready (spec §4.8's resumable O_INPUTS state).
type OptimizeInputsTask struct {
	MExpr     MExprID
	Ctx       *SearchContext
	NextInput int
	AccumCost Cost
}

func (t *OptimizeInputsTask) Run(e *engine) error {
	m := e.ss.MExpr(t.MExpr)
	op, ok := m.Op.(PhysicalOperator)
	if !ok {
		return nil
	}
	g := e.ss.Group(t.MExpr.Group)

	if ok, _ := op.SatisfyRequiredProperties(t.Ctx.Required, 0); !ok {
		return nil
	}

	local, err := e.ss.EnsureLogicalProperties(g)
	if err != nil {
		return err
	}
	childProps := make([]*LogicalProperties, len(m.Inputs))
	for i, c := range m.Inputs {
		p, err := e.ss.EnsureLogicalProperties(e.ss.Group(c))
		if err != nil {
			return err
		}
		childProps[i] = p
	}

	accum := t.AccumCost
	if t.NextInput == 0 {
		accum = op.DeriveLocalCost(local, childProps, e.cc)
	}
	if !accum.Less(t.Ctx.UpperBound) {
		return nil // local cost alone already exceeds the bound; abandon
	}

	for idx := t.NextInput; idx < len(m.Inputs); idx++ {
		satisfiesInput, childReq := op.SatisfyRequiredProperties(t.Ctx.Required, idx)
		if !satisfiesInput {
			return nil
		}
		childGroup := e.ss.Group(m.Inputs[idx])
		childCtx := &SearchContext{
			Required:   childReq,
			UpperBound: t.Ctx.UpperBound.Sub(accum),
			Epsilon:    t.Ctx.Epsilon,
		}
		status, w := childGroup.GetWinnerStatus(childCtx)
		switch status {
		case StatusSatisfied:
			accum = accum.Add(w.Cost)
			if !accum.Less(t.Ctx.UpperBound) {
				return nil
			}
		case StatusUnsatisfiable:
			return nil
		default:
			e.push(&OptimizeInputsTask{MExpr: t.MExpr, Ctx: t.Ctx, NextInput: idx, AccumCost: accum})
			e.push(&OptimizeGroupTask{Group: childGroup.ID, Ctx: childCtx})
			return nil
		}
	}

	if t.Ctx.Epsilon != nil && accum.Less(*t.Ctx.Epsilon) {
		accum = *t.Ctx.Epsilon
	}
	if cur, ok := g.winner(t.Ctx.Required); !ok || accum.Less(cur.Cost) {
		g.setWinner(t.Ctx.Required, &Winner{Plan: m, Required: t.Ctx.Required, Cost: accum, Ready: true})
		log.Debug("new winner", "group", strconv.Itoa(int(g.ID)), "plan", m.Op.Name(), "cost", strconv.FormatFloat(accum.Total(), 'f', 2, 64))
	}
	return nil
}
