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
	"testing"

	"cascadedb/internal/catalog"
	"cascadedb/internal/config"
)

// sailorsReserves builds the spec §8 scenario 5 fixture programmatically:
// Sailors(sid, sname), 10,000 rows, sid unique; Reserves(sid, bid),
// 100,000 rows referencing Sailors.sid with unique-cardinality 9,500.
func sailorsReserves(t *testing.T) (sailors, reserves *catalog.Table) {
	t.Helper()
	sailors = &catalog.Table{Name: "Sailors", Cardinality: 10000, Width: 24}
	sid := &catalog.Column{Table: sailors, Name: "sid", Type: catalog.TypeInt, Width: 4, UniqueCardinality: 10000}
	sname := &catalog.Column{Table: sailors, Name: "sname", Type: catalog.TypeString, Width: 20, UniqueCardinality: 9800}
	sailors.Columns = []*catalog.Column{sid, sname}
	sailors.PrimaryKey = catalog.Key{sid}

	reserves = &catalog.Table{Name: "Reserves", Cardinality: 100000, Width: 8}
	rsid := &catalog.Column{Table: reserves, Name: "sid", Type: catalog.TypeInt, Width: 4, UniqueCardinality: 9500}
	bid := &catalog.Column{Table: reserves, Name: "bid", Type: catalog.TypeInt, Width: 4, UniqueCardinality: 500}
	reserves.Columns = []*catalog.Column{rsid, bid}
	reserves.ForeignKeys = []*catalog.ForeignKey{{Columns: catalog.Key{rsid}, RefTable: "Sailors", RefColumns: catalog.Key{sid}}}

	return sailors, reserves
}

func sailorsReservesJoin(sailors, reserves *catalog.Table) *Expression {
	left := NewExpression(&GetTable{Table: sailors})
	right := NewExpression(&GetTable{Table: reserves})
	join := &EquiJoin{
		LeftKeys:  []catalog.Ref{{Table: "Sailors", Column: "sid"}},
		RightKeys: []catalog.Ref{{Table: "Reserves", Column: "sid"}},
	}
	return NewExpression(join, left, right)
}

func TestOptimizeJoinPicksAFiniteCostPlan(t *testing.T) {
	sailors, reserves := sailorsReserves(t)
	logical := sailorsReservesJoin(sailors, reserves)

	opt := NewOptimizer(config.DefaultConfig())
	result, err := opt.Optimize(logical, AnyProperties(), InfiniteCost())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if result.Cost.IsInfinite() {
		t.Fatalf("winning plan has infinite cost")
	}
	if _, ok := result.Plan.Op.(PhysicalOperator); !ok {
		t.Fatalf("plan root %T is not a physical operator", result.Plan.Op)
	}
	switch result.Plan.Op.(type) {
	case *HashJoin, *SortMergeJoin:
	default:
		t.Fatalf("expected a join implementation at the root, got %s", result.Plan.Op.Name())
	}
	for _, in := range result.Plan.Inputs {
		if _, ok := in.Op.(*FileScan); !ok {
			t.Errorf("expected a FileScan leaf, got %s", in.Op.Name())
		}
	}
}

func TestOptimizeIsDeterministicAcrossReruns(t *testing.T) {
	sailors, reserves := sailorsReserves(t)

	var costs []float64
	var names []string
	for i := 0; i < 3; i++ {
		logical := sailorsReservesJoin(sailors, reserves)
		opt := NewOptimizer(config.DefaultConfig())
		result, err := opt.Optimize(logical, AnyProperties(), InfiniteCost())
		if err != nil {
			t.Fatalf("Optimize run %d: %v", i, err)
		}
		costs = append(costs, result.Cost.Total())
		names = append(names, result.Plan.Op.Name())
	}
	for i := 1; i < len(costs); i++ {
		if costs[i] != costs[0] {
			t.Errorf("run %d cost %v != run 0 cost %v", i, costs[i], costs[0])
		}
		if names[i] != names[0] {
			t.Errorf("run %d plan %q != run 0 plan %q", i, names[i], names[0])
		}
	}
}

func TestOptimizeUnsatisfiableUpperBound(t *testing.T) {
	sailors, reserves := sailorsReserves(t)
	logical := sailorsReservesJoin(sailors, reserves)

	opt := NewOptimizer(config.DefaultConfig())
	result, err := opt.Optimize(logical, AnyProperties(), ZeroCost())
	if err != nil {
		t.Fatalf("an unsatisfiable upper bound is a normal negative result, not an error: %v", err)
	}
	if result.Plan != nil {
		t.Fatalf("expected a nil plan for a zero upper bound, got %s", result.Plan.Op.Name())
	}
}

func TestOptimizeWithRequiredOrderUsesEnforcerOrSortMergeJoin(t *testing.T) {
	sailors, reserves := sailorsReserves(t)
	logical := sailorsReservesJoin(sailors, reserves)

	required := PhysicalProperties{Order: Order{Columns: []catalog.Ref{{Table: "Reserves", Column: "sid"}}}}
	opt := NewOptimizer(config.DefaultConfig())
	result, err := opt.Optimize(logical, required, InfiniteCost())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if result.Cost.IsInfinite() {
		t.Fatalf("winning plan has infinite cost")
	}
}

func TestExplainRendersTree(t *testing.T) {
	sailors, reserves := sailorsReserves(t)
	logical := sailorsReservesJoin(sailors, reserves)

	opt := NewOptimizer(config.DefaultConfig())
	result, err := opt.Optimize(logical, AnyProperties(), InfiniteCost())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	out := ExplainWithCost(result)
	if out == "" {
		t.Fatalf("expected non-empty explain output")
	}
}
