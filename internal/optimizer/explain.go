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
	"sort"
	"strings"

	"cascadedb/pkg/cli"
)

// Explain renders a chosen physical plan as an indented tree of operator
// names, in the style of flydb's EXPLAIN output. Nodes carry no cost
// annotation; ExplainWithCost appends the plan's cost breakdown.
func Explain(plan *Expression) string {
	var b strings.Builder
	explainNode(&b, plan, "", true)
	return b.String()
}

func explainNode(b *strings.Builder, e *Expression, prefix string, last bool) {
	connector := "├── "
	if last {
		connector = "└── "
	}
	if prefix == "" {
		connector = ""
	}
	b.WriteString(prefix)
	b.WriteString(connector)
	b.WriteString(cli.PlanOperator(e.Op.Name(), isJoinOperator(e.Op)))
	b.WriteByte('\n')

	childPrefix := prefix
	if prefix != "" {
		if last {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	} else {
		childPrefix = "    "
	}
	for i, in := range e.Inputs {
		explainNode(b, in, childPrefix, i == len(e.Inputs)-1)
	}
}

// isJoinOperator reports whether op is one of the join implementations,
// the nodes the plan explainer calls out in PlanOperator's join color.
func isJoinOperator(op Operator) bool {
	switch op.(type) {
	case *HashJoin, *SortMergeJoin:
		return true
	default:
		return false
	}
}

// countOperators tallies how many times each operator name occurs in
// the plan rooted at e, for the cost table's per-operator row.
func countOperators(e *Expression, counts map[string]int) {
	counts[e.Op.Name()]++
	for _, in := range e.Inputs {
		countOperators(in, counts)
	}
}

// ExplainWithCost renders the plan as an indented tree followed by a
// cli.CostTable breaking the winning plan down by operator and closing
// with the total estimated cost, in the style of flydb's EXPLAIN output.
func ExplainWithCost(result *Result) string {
	var b strings.Builder
	b.WriteString(cli.Info("query plan"))
	b.WriteByte('\n')
	b.WriteString(Explain(result.Plan))

	counts := map[string]int{}
	countOperators(result.Plan, counts)
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	t := cli.NewCostTable()
	for _, name := range names {
		t.AddOperatorCount(name, counts[name])
	}
	t.AddTotalCost(result.Cost.IO, result.Cost.CPU, result.Cost.Total())
	b.WriteString(t.Render())
	return b.String()
}
