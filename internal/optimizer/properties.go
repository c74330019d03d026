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

// LogicalProperties describe the tuple set an expression produces,
// independent of how it is physically produced: how many rows, how wide
// they are, and the unique-cardinality of each column they carry (used
// by selectivity and join-cardinality estimates).
type LogicalProperties struct {
	Cardinality       int64
	Width             int
	UniqueCardinality map[catalog.Ref]int64
	Columns           []catalog.Ref
}

// UniqueCardOf returns the recorded unique cardinality of col, or the
// group's row cardinality if none was recorded (the conservative "every
// row distinct" default).
func (p *LogicalProperties) UniqueCardOf(col catalog.Ref) int64 {
	if p.UniqueCardinality != nil {
		if uc, ok := p.UniqueCardinality[col]; ok {
			return uc
		}
	}
	return p.Cardinality
}

func mergeColumns(inputs ...*LogicalProperties) []catalog.Ref {
	var out []catalog.Ref
	for _, in := range inputs {
		out = append(out, in.Columns...)
	}
	return out
}

func mergeUniqueCardinality(inputs ...*LogicalProperties) map[catalog.Ref]int64 {
	out := make(map[catalog.Ref]int64)
	for _, in := range inputs {
		for k, v := range in.UniqueCardinality {
			out[k] = v
		}
	}
	return out
}

// Order describes a required or delivered physical sort order. An empty
// Columns list (IsAny) means "no ordering required"; a non-empty Columns
// list means "sorted ascending by these columns, in order".
type Order struct {
	Columns []catalog.Ref
}

// IsAny reports whether o places no ordering requirement.
func (o Order) IsAny() bool { return len(o.Columns) == 0 }

// Satisfies reports whether a plan delivering order `have` satisfies a
// requirement of `o`: `have` must be at least as specific, sharing o's
// required prefix.
func (o Order) Satisfies(have Order) bool {
	if o.IsAny() {
		return true
	}
	if len(have.Columns) < len(o.Columns) {
		return false
	}
	for i, c := range o.Columns {
		if have.Columns[i] != c {
			return false
		}
	}
	return true
}

// PhysicalProperties is the single property this kernel's cost model
// enforces: a required output order. Required physical properties are
// compared by value so they can key a group's winner circle.
type PhysicalProperties struct {
	Order Order
}

// AnyProperties is the "no requirement" physical property.
func AnyProperties() PhysicalProperties { return PhysicalProperties{} }

func (p PhysicalProperties) key() string {
	s := "any"
	for _, c := range p.Order.Columns {
		s += "|" + c.Table + "." + c.Column
	}
	return s
}
