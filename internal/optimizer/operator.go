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
	"sort"

	"github.com/cespare/xxhash/v2"

	"cascadedb/internal/catalog"
	"cascadedb/internal/config"
)

// Category classifies an Operator the way spec §3.3 does: logical
// operators describe *what* tuples to produce, physical operators
// describe *how*, element/constant operators are scalar leaves used
// inside predicates and projections.
type Category int

const (
	CategoryLogical Category = iota
	CategoryPhysical
	CategoryElement
	CategoryConstant
)

// Operator is the shared dispatch surface every logical and physical
// node in an expression tree implements: arity, a stable name, and a
// content hash that folds in child group identity for memoization.
type Operator interface {
	Name() string
	Arity() int
	Category() Category
	// HashContent combines the operator's own parameters with its
	// children's group IDs into the dedup key spec §3.3 describes.
	HashContent(children []GroupID) uint64
	// Equals reports whether other is the same operator with the same
	// parameters, ignoring children (children are compared separately
	// by the search space).
	Equals(other Operator) bool
}

// LogicalOperator additionally derives the logical properties of the
// tuples it produces from its inputs' logical properties.
type LogicalOperator interface {
	Operator
	DeriveLogicalProperties(inputs []*LogicalProperties) *LogicalProperties
}

// PhysicalOperator additionally knows its own local cost given its
// inputs' logical properties, and what physical property it requires of
// each input to satisfy a given requirement on itself.
type PhysicalOperator interface {
	Operator
	DeriveLocalCost(local *LogicalProperties, inputs []*LogicalProperties, cc config.CostConfig) Cost
	// SatisfyRequiredProperties reports whether this operator, given a
	// property required of its own output, can deliver it — and if so,
	// what it in turn requires of input i.
	SatisfyRequiredProperties(required PhysicalProperties, inputIdx int) (bool, PhysicalProperties)
}

func hashString(h *xxhash.Digest, s string) {
	h.WriteString(s)
	h.Write([]byte{0})
}

func hashRefs(h *xxhash.Digest, refs []catalog.Ref) {
	sorted := append([]catalog.Ref(nil), refs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Table != sorted[j].Table {
			return sorted[i].Table < sorted[j].Table
		}
		return sorted[i].Column < sorted[j].Column
	})
	for _, r := range sorted {
		hashString(h, r.Table+"."+r.Column)
	}
}

func hashChildren(h *xxhash.Digest, children []GroupID) {
	for _, g := range children {
		var b [8]byte
		for i := 0; i < 8; i++ {
			b[i] = byte(g >> (8 * i))
		}
		h.Write(b[:])
	}
}

// ---- Predicate -------------------------------------------------------

// Predicate is a deliberately minimal selection condition: the core
// never evaluates predicates (expression evaluation is out of scope per
// spec §1), it only needs to know which columns a predicate touches so
// pushdown rules and the cost model's selectivity estimate can reason
// about it.
type Predicate struct {
	Columns []catalog.Ref
	Text    string // human-readable form, for the plan explainer only
}

func (p Predicate) touchesOnly(cols []catalog.Ref) bool {
	allowed := make(map[catalog.Ref]bool, len(cols))
	for _, c := range cols {
		allowed[c] = true
	}
	for _, c := range p.Columns {
		if !allowed[c] {
			return false
		}
	}
	return true
}

// ---- Logical operators -------------------------------------------------

// GetTable is a leaf logical operator naming the table scanned.
type GetTable struct {
	Table *catalog.Table
}

func (o *GetTable) Name() string     { return "GetTable(" + o.Table.Name + ")" }
func (o *GetTable) Arity() int       { return 0 }
func (o *GetTable) Category() Category { return CategoryLogical }

func (o *GetTable) HashContent(children []GroupID) uint64 {
	h := xxhash.New()
	hashString(h, "GetTable")
	hashString(h, o.Table.Name)
	return h.Sum64()
}

func (o *GetTable) Equals(other Operator) bool {
	oo, ok := other.(*GetTable)
	return ok && oo.Table.Name == o.Table.Name
}

func (o *GetTable) DeriveLogicalProperties(inputs []*LogicalProperties) *LogicalProperties {
	uc := make(map[catalog.Ref]int64, len(o.Table.Columns))
	cols := make([]catalog.Ref, 0, len(o.Table.Columns))
	for _, c := range o.Table.Columns {
		ref := c.Ref()
		uc[ref] = c.UniqueCardinality
		cols = append(cols, ref)
	}
	return &LogicalProperties{
		Cardinality:       o.Table.Cardinality,
		Width:             o.Table.Width,
		UniqueCardinality: uc,
		Columns:           cols,
	}
}

// Select (a.k.a. Selection) filters its single input by Predicate.
type Select struct {
	Predicate Predicate
}

func (o *Select) Name() string       { return "Select(" + o.Predicate.Text + ")" }
func (o *Select) Arity() int         { return 1 }
func (o *Select) Category() Category { return CategoryLogical }

func (o *Select) HashContent(children []GroupID) uint64 {
	h := xxhash.New()
	hashString(h, "Select")
	hashRefs(h, o.Predicate.Columns)
	hashChildren(h, children)
	return h.Sum64()
}

func (o *Select) Equals(other Operator) bool {
	oo, ok := other.(*Select)
	return ok && oo.Predicate.Text == o.Predicate.Text
}

func (o *Select) DeriveLogicalProperties(inputs []*LogicalProperties) *LogicalProperties {
	in := inputs[0]
	selectivity := 0.1
	card := int64(float64(in.Cardinality) * selectivity)
	if card < 1 && in.Cardinality > 0 {
		card = 1
	}
	return &LogicalProperties{
		Cardinality:       card,
		Width:             in.Width,
		UniqueCardinality: in.UniqueCardinality,
		Columns:           in.Columns,
	}
}

// EquiJoin joins two inputs on parallel column lists (Left[i] = Right[i]
// for every i). IgnoreInputOrder records whether equality should treat
// the operator as commutative for dedup purposes — left as a field
// rather than baked into Equals, since spec §9 flags that the source's
// equals may not be order-independent even when the flag says it
// should be; this kernel's Equals is always order-sensitive, matching
// the preserved (not "fixed") behavior.
type EquiJoin struct {
	LeftKeys, RightKeys []catalog.Ref
	IgnoreInputOrder    bool
}

func (o *EquiJoin) Name() string       { return "EquiJoin" }
func (o *EquiJoin) Arity() int         { return 2 }
func (o *EquiJoin) Category() Category { return CategoryLogical }

func (o *EquiJoin) HashContent(children []GroupID) uint64 {
	h := xxhash.New()
	hashString(h, "EquiJoin")
	hashRefs(h, o.LeftKeys)
	hashRefs(h, o.RightKeys)
	hashChildren(h, children)
	return h.Sum64()
}

func (o *EquiJoin) Equals(other Operator) bool {
	oo, ok := other.(*EquiJoin)
	if !ok || len(oo.LeftKeys) != len(o.LeftKeys) {
		return false
	}
	for i := range o.LeftKeys {
		if o.LeftKeys[i] != oo.LeftKeys[i] || o.RightKeys[i] != oo.RightKeys[i] {
			return false
		}
	}
	return true
}

func (o *EquiJoin) DeriveLogicalProperties(inputs []*LogicalProperties) *LogicalProperties {
	l, r := inputs[0], inputs[1]
	// Cardinality estimate: |L|*|R| / max(uniqueCard(leftKey), uniqueCard(rightKey)),
	// the standard foreign-key-aware join selectivity estimate.
	denom := int64(1)
	for i := range o.LeftKeys {
		uc := l.UniqueCardOf(o.LeftKeys[i])
		if rc := r.UniqueCardOf(o.RightKeys[i]); rc > uc {
			uc = rc
		}
		if uc > denom {
			denom = uc
		}
	}
	card := (l.Cardinality * r.Cardinality) / denom
	if card < 1 {
		card = 1
	}
	return &LogicalProperties{
		Cardinality:       card,
		Width:             l.Width + r.Width,
		UniqueCardinality: mergeUniqueCardinality(l, r),
		Columns:           mergeColumns(l, r),
	}
}

// Project (a.k.a. Projection) trims its input to Columns.
//
// Spec §9 flags Projection.hashCode's `x == nil && x.size() > 0` guard
// as a condition that can never hold in the source. HashContent below
// carries the same always-false guard rather than silently dropping it,
// so the historical dead branch stays visible for whoever reads this
// next.
type Project struct {
	Columns []catalog.Ref
}

func (o *Project) Name() string       { return "Project" }
func (o *Project) Arity() int         { return 1 }
func (o *Project) Category() Category { return CategoryLogical }

func (o *Project) HashContent(children []GroupID) uint64 {
	h := xxhash.New()
	hashString(h, "Project")
	if o.Columns == nil && len(o.Columns) > 0 {
		// Unreachable: a nil slice always has length 0. Preserved from
		// the source's equivalent (also unreachable) guard.
		hashString(h, "nil-nonempty")
	}
	hashRefs(h, o.Columns)
	hashChildren(h, children)
	return h.Sum64()
}

func (o *Project) Equals(other Operator) bool {
	oo, ok := other.(*Project)
	if !ok || len(oo.Columns) != len(o.Columns) {
		return false
	}
	want := make(map[catalog.Ref]bool, len(o.Columns))
	for _, c := range o.Columns {
		want[c] = true
	}
	for _, c := range oo.Columns {
		if !want[c] {
			return false
		}
	}
	return true
}

func (o *Project) DeriveLogicalProperties(inputs []*LogicalProperties) *LogicalProperties {
	in := inputs[0]
	uc := make(map[catalog.Ref]int64, len(o.Columns))
	for _, c := range o.Columns {
		uc[c] = in.UniqueCardOf(c)
	}
	return &LogicalProperties{
		Cardinality:       in.Cardinality,
		Width:             len(o.Columns) * 8,
		UniqueCardinality: uc,
		Columns:           append([]catalog.Ref(nil), o.Columns...),
	}
}

// AggSpec is one aggregate function applied over a column.
type AggSpec struct {
	Func   string
	Column catalog.Ref
}

// Aggregation groups its input by GroupBy and computes Aggs per group.
type Aggregation struct {
	GroupBy []catalog.Ref
	Aggs    []AggSpec
}

func (o *Aggregation) Name() string       { return "Aggregation" }
func (o *Aggregation) Arity() int         { return 1 }
func (o *Aggregation) Category() Category { return CategoryLogical }

func (o *Aggregation) HashContent(children []GroupID) uint64 {
	h := xxhash.New()
	hashString(h, "Aggregation")
	hashRefs(h, o.GroupBy)
	for _, a := range o.Aggs {
		hashString(h, a.Func+":"+a.Column.Table+"."+a.Column.Column)
	}
	hashChildren(h, children)
	return h.Sum64()
}

func (o *Aggregation) Equals(other Operator) bool {
	oo, ok := other.(*Aggregation)
	if !ok || len(oo.GroupBy) != len(o.GroupBy) || len(oo.Aggs) != len(o.Aggs) {
		return false
	}
	for i := range o.GroupBy {
		if o.GroupBy[i] != oo.GroupBy[i] {
			return false
		}
	}
	for i := range o.Aggs {
		if o.Aggs[i] != oo.Aggs[i] {
			return false
		}
	}
	return true
}

func (o *Aggregation) DeriveLogicalProperties(inputs []*LogicalProperties) *LogicalProperties {
	in := inputs[0]
	card := int64(1)
	for _, c := range o.GroupBy {
		if uc := in.UniqueCardOf(c); uc > card {
			card = uc
		}
	}
	if card > in.Cardinality {
		card = in.Cardinality
	}
	return &LogicalProperties{
		Cardinality:       card,
		Width:             len(o.GroupBy)*8 + len(o.Aggs)*8,
		UniqueCardinality: map[catalog.Ref]int64{},
		Columns:           append([]catalog.Ref(nil), o.GroupBy...),
	}
}

// OrderBy sorts its input by Columns ascending.
type OrderBy struct {
	Columns []catalog.Ref
}

func (o *OrderBy) Name() string       { return "OrderBy" }
func (o *OrderBy) Arity() int         { return 1 }
func (o *OrderBy) Category() Category { return CategoryLogical }

func (o *OrderBy) HashContent(children []GroupID) uint64 {
	h := xxhash.New()
	hashString(h, "OrderBy")
	hashRefs(h, o.Columns)
	hashChildren(h, children)
	return h.Sum64()
}

func (o *OrderBy) Equals(other Operator) bool {
	oo, ok := other.(*OrderBy)
	if !ok || len(oo.Columns) != len(o.Columns) {
		return false
	}
	for i := range o.Columns {
		if o.Columns[i] != oo.Columns[i] {
			return false
		}
	}
	return true
}

func (o *OrderBy) DeriveLogicalProperties(inputs []*LogicalProperties) *LogicalProperties {
	return inputs[0]
}

// ---- Physical operators -------------------------------------------------

// FileScan is GetTable's physical implementation: a sequential scan of
// the table's heap file.
type FileScan struct {
	Table *catalog.Table
}

func (o *FileScan) Name() string       { return "FileScan(" + o.Table.Name + ")" }
func (o *FileScan) Arity() int         { return 0 }
func (o *FileScan) Category() Category { return CategoryPhysical }

func (o *FileScan) HashContent(children []GroupID) uint64 {
	h := xxhash.New()
	hashString(h, "FileScan")
	hashString(h, o.Table.Name)
	return h.Sum64()
}

func (o *FileScan) Equals(other Operator) bool {
	oo, ok := other.(*FileScan)
	return ok && oo.Table.Name == o.Table.Name
}

func (o *FileScan) DeriveLocalCost(local *LogicalProperties, inputs []*LogicalProperties, cc config.CostConfig) Cost {
	pages := float64(local.Cardinality*int64(local.Width)) / 1024.0
	if pages < 1 {
		pages = 1
	}
	return Cost{IO: pages * cc.SeqIOConstant, CPU: float64(local.Cardinality) * cc.CPUTupleConstant}
}

func (o *FileScan) SatisfyRequiredProperties(required PhysicalProperties, inputIdx int) (bool, PhysicalProperties) {
	return required.Order.IsAny(), AnyProperties()
}

// Filter is Select's physical implementation: a pass-over-input
// evaluation with no I/O of its own.
type Filter struct {
	Predicate Predicate
}

func (o *Filter) Name() string       { return "Filter(" + o.Predicate.Text + ")" }
func (o *Filter) Arity() int         { return 1 }
func (o *Filter) Category() Category { return CategoryPhysical }

func (o *Filter) HashContent(children []GroupID) uint64 {
	h := xxhash.New()
	hashString(h, "Filter")
	hashRefs(h, o.Predicate.Columns)
	hashChildren(h, children)
	return h.Sum64()
}

func (o *Filter) Equals(other Operator) bool {
	oo, ok := other.(*Filter)
	return ok && oo.Predicate.Text == o.Predicate.Text
}

func (o *Filter) DeriveLocalCost(local *LogicalProperties, inputs []*LogicalProperties, cc config.CostConfig) Cost {
	return Cost{CPU: float64(inputs[0].Cardinality) * cc.CPUTupleConstant}
}

func (o *Filter) SatisfyRequiredProperties(required PhysicalProperties, inputIdx int) (bool, PhysicalProperties) {
	return true, required
}

func pagesOf(p *LogicalProperties, pageSize int) float64 {
	if pageSize <= 0 {
		pageSize = 1024
	}
	pages := float64(p.Cardinality*int64(p.Width)) / float64(pageSize)
	if pages < 1 {
		pages = 1
	}
	return pages
}

// HashJoin implements EquiJoin by building a hash table over the
// smaller (right) input and probing with the left.
type HashJoin struct {
	LeftKeys, RightKeys []catalog.Ref
}

func (o *HashJoin) Name() string       { return "HashJoin" }
func (o *HashJoin) Arity() int         { return 2 }
func (o *HashJoin) Category() Category { return CategoryPhysical }

func (o *HashJoin) HashContent(children []GroupID) uint64 {
	h := xxhash.New()
	hashString(h, "HashJoin")
	hashRefs(h, o.LeftKeys)
	hashRefs(h, o.RightKeys)
	hashChildren(h, children)
	return h.Sum64()
}

func (o *HashJoin) Equals(other Operator) bool {
	oo, ok := other.(*HashJoin)
	if !ok || len(oo.LeftKeys) != len(o.LeftKeys) {
		return false
	}
	for i := range o.LeftKeys {
		if o.LeftKeys[i] != oo.LeftKeys[i] || o.RightKeys[i] != oo.RightKeys[i] {
			return false
		}
	}
	return true
}

// DeriveLocalCost follows spec §4.9's example: CPU proportional to
// |L|+|R|, I/O to two full writes plus reads for bucket spill.
func (o *HashJoin) DeriveLocalCost(local *LogicalProperties, inputs []*LogicalProperties, cc config.CostConfig) Cost {
	l, r := inputs[0], inputs[1]
	pagesL, pagesR := pagesOf(l, 1024), pagesOf(r, 1024)
	return Cost{
		IO:  (2*pagesL + 2*pagesR) * cc.SeqIOConstant,
		CPU: float64(l.Cardinality+r.Cardinality) * cc.HashCostConstant,
	}
}

func (o *HashJoin) SatisfyRequiredProperties(required PhysicalProperties, inputIdx int) (bool, PhysicalProperties) {
	return required.Order.IsAny(), AnyProperties()
}

// SortMergeJoin implements EquiJoin by sorting both inputs on their join
// keys and merging, delivering the join key order for free.
type SortMergeJoin struct {
	LeftKeys, RightKeys []catalog.Ref
}

func (o *SortMergeJoin) Name() string       { return "SortMergeJoin" }
func (o *SortMergeJoin) Arity() int         { return 2 }
func (o *SortMergeJoin) Category() Category { return CategoryPhysical }

func (o *SortMergeJoin) HashContent(children []GroupID) uint64 {
	h := xxhash.New()
	hashString(h, "SortMergeJoin")
	hashRefs(h, o.LeftKeys)
	hashRefs(h, o.RightKeys)
	hashChildren(h, children)
	return h.Sum64()
}

func (o *SortMergeJoin) Equals(other Operator) bool {
	oo, ok := other.(*SortMergeJoin)
	if !ok || len(oo.LeftKeys) != len(o.LeftKeys) {
		return false
	}
	for i := range o.LeftKeys {
		if o.LeftKeys[i] != oo.LeftKeys[i] || o.RightKeys[i] != oo.RightKeys[i] {
			return false
		}
	}
	return true
}

func (o *SortMergeJoin) DeriveLocalCost(local *LogicalProperties, inputs []*LogicalProperties, cc config.CostConfig) Cost {
	l, r := inputs[0], inputs[1]
	return Cost{CPU: float64(l.Cardinality+r.Cardinality) * cc.CPUTupleConstant}
}

func (o *SortMergeJoin) SatisfyRequiredProperties(required PhysicalProperties, inputIdx int) (bool, PhysicalProperties) {
	if !required.Order.Satisfies(Order{Columns: o.LeftKeys}) && !required.Order.Satisfies(Order{Columns: o.RightKeys}) {
		return false, AnyProperties()
	}
	var keys []catalog.Ref
	if inputIdx == 0 {
		keys = o.LeftKeys
	} else {
		keys = o.RightKeys
	}
	return true, PhysicalProperties{Order: Order{Columns: keys}}
}

// HashAggregation implements Aggregation by hashing on the group-by
// columns.
type HashAggregation struct {
	GroupBy []catalog.Ref
	Aggs    []AggSpec
}

func (o *HashAggregation) Name() string       { return "HashAggregation" }
func (o *HashAggregation) Arity() int         { return 1 }
func (o *HashAggregation) Category() Category { return CategoryPhysical }

func (o *HashAggregation) HashContent(children []GroupID) uint64 {
	h := xxhash.New()
	hashString(h, "HashAggregation")
	hashRefs(h, o.GroupBy)
	hashChildren(h, children)
	return h.Sum64()
}

func (o *HashAggregation) Equals(other Operator) bool {
	oo, ok := other.(*HashAggregation)
	if !ok || len(oo.GroupBy) != len(o.GroupBy) {
		return false
	}
	for i := range o.GroupBy {
		if o.GroupBy[i] != oo.GroupBy[i] {
			return false
		}
	}
	return true
}

// DeriveLocalCost follows spec §4.9's example exactly:
// |input|*(hashCostConstant + cpuApplyConstant*#aggs) + |output|*touchCopyConstant.
func (o *HashAggregation) DeriveLocalCost(local *LogicalProperties, inputs []*LogicalProperties, cc config.CostConfig) Cost {
	in := inputs[0]
	cpu := float64(in.Cardinality)*(cc.HashCostConstant+cc.CPUApplyConstant*float64(len(o.Aggs))) +
		float64(local.Cardinality)*cc.TouchCopyConstant
	return Cost{CPU: cpu}
}

func (o *HashAggregation) SatisfyRequiredProperties(required PhysicalProperties, inputIdx int) (bool, PhysicalProperties) {
	return required.Order.IsAny(), AnyProperties()
}

// Sort is OrderBy's physical implementation and also the sort enforcer
// the optimizer inserts when a group otherwise has no plan delivering a
// required order; it is built on the external sort operator (§4.7).
type Sort struct {
	Columns []catalog.Ref
}

func (o *Sort) Name() string       { return fmt.Sprintf("Sort%v", o.Columns) }
func (o *Sort) Arity() int         { return 1 }
func (o *Sort) Category() Category { return CategoryPhysical }

func (o *Sort) HashContent(children []GroupID) uint64 {
	h := xxhash.New()
	hashString(h, "Sort")
	hashRefs(h, o.Columns)
	hashChildren(h, children)
	return h.Sum64()
}

func (o *Sort) Equals(other Operator) bool {
	oo, ok := other.(*Sort)
	if !ok || len(oo.Columns) != len(o.Columns) {
		return false
	}
	for i := range o.Columns {
		if o.Columns[i] != oo.Columns[i] {
			return false
		}
	}
	return true
}

// DeriveLocalCost charges an external-sort-shaped cost: one pass to
// build initial runs, roughly log(pages) merge passes.
func (o *Sort) DeriveLocalCost(local *LogicalProperties, inputs []*LogicalProperties, cc config.CostConfig) Cost {
	in := inputs[0]
	pages := pagesOf(in, 1024)
	passes := 1.0
	for p := pages; p > 1; p /= 8 {
		passes++
	}
	return Cost{
		IO:  2 * pages * passes * cc.SeqIOConstant,
		CPU: float64(in.Cardinality) * passes * cc.CPUTupleConstant,
	}
}

func (o *Sort) SatisfyRequiredProperties(required PhysicalProperties, inputIdx int) (bool, PhysicalProperties) {
	return required.Order.Satisfies(Order{Columns: o.Columns}), AnyProperties()
}
