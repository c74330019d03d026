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

/*
Package catalog is the out-of-scope system catalog collaborator the
optimizer core consumes: table and column references, keys, foreign
keys, and the cardinality/width statistics the cost model reads. The
catalog itself is loaded from an XML document (spec §6); the core never
writes it back.
*/
package catalog

import "github.com/google/uuid"

// ColumnType is the declared type of a catalog column, reusing the
// search-key codec's closed type set so a column's statistics and its
// index key encoding never disagree.
type ColumnType string

const (
	TypeByte      ColumnType = "BYTE"
	TypeShort     ColumnType = "SHORT"
	TypeInt       ColumnType = "INT"
	TypeLong      ColumnType = "LONG"
	TypeFloat     ColumnType = "FLOAT"
	TypeDouble    ColumnType = "DOUBLE"
	TypeString    ColumnType = "STRING"
	TypeDate      ColumnType = "DATE"
	TypeTime      ColumnType = "TIME"
	TypeTimestamp ColumnType = "TIMESTAMP"
)

// Column is one column of a table: its identity, declared type, byte
// width, and per-column statistics used by the cost model's selectivity
// and cardinality estimates.
type Column struct {
	ID                uuid.UUID
	Table             *Table
	Name              string
	Type              ColumnType
	Width             int
	UniqueCardinality int64
}

// Ref names a column without holding the *Table back-pointer, the form
// operators and keys carry around so two references are comparable by
// value.
type Ref struct {
	Table  string
	Column string
}

func (c *Column) Ref() Ref { return Ref{Table: c.Table.Name, Column: c.Name} }

// Index is a named, possibly-unique secondary structure over one or
// more columns of a table. Its own implementation (a B+-tree) is out of
// scope; the catalog only records enough to let the cost model account
// for an index scan's selectivity.
type Index struct {
	ID      uuid.UUID
	Name    string
	Table   *Table
	Columns []*Column
	Unique  bool
}

// Key is an ordered list of columns, used for both primary keys and the
// column side of a foreign key.
type Key []*Column

// ForeignKey relates a column list in Table to a column list in a
// (possibly different) referenced table.
type ForeignKey struct {
	Columns    Key
	RefTable   string
	RefColumns Key
}

// Resolve looks up the foreign key's referenced table in cat.
//
// Per spec §9's open question, the source this kernel was distilled
// from has a resolve routine whose success branch returns an empty
// optional instead of the resolved table — callers there always treat
// "found the table" the same as "not found". That behavior is preserved
// here rather than silently corrected: Resolve always reports a miss.
// Use LookupRefTable for an actual lookup.
func (fk *ForeignKey) Resolve(cat *Catalog) (*Table, bool) {
	if _, ok := cat.Table(fk.RefTable); ok {
		return nil, false
	}
	return nil, false
}

// LookupRefTable performs the lookup Resolve's preserved quirk never
// actually returns.
func (fk *ForeignKey) LookupRefTable(cat *Catalog) (*Table, bool) {
	return cat.Table(fk.RefTable)
}

// Table is one relation: its identity, row/width statistics, columns,
// optional primary key, foreign keys, and indexes.
type Table struct {
	ID          uuid.UUID
	Name        string
	Cardinality int64
	Width       int
	Columns     []*Column
	PrimaryKey  Key
	ForeignKeys []*ForeignKey
	Indexes     []*Index
}

// Column looks up a column of t by name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Catalog is the full set of tables loaded from one schema document,
// plus the page size it was generated against.
type Catalog struct {
	PageSize int
	tables   map[string]*Table
	order    []string
}

// NewCatalog builds an empty catalog for the given page size.
func NewCatalog(pageSize int) *Catalog {
	return &Catalog{PageSize: pageSize, tables: make(map[string]*Table)}
}

// AddTable registers t, replacing any previously registered table of
// the same name.
func (c *Catalog) AddTable(t *Table) {
	if _, exists := c.tables[t.Name]; !exists {
		c.order = append(c.order, t.Name)
	}
	c.tables[t.Name] = t
}

// Table looks up a table by name.
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// Tables returns every registered table in load order.
func (c *Catalog) Tables() []*Table {
	out := make([]*Table, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.tables[name])
	}
	return out
}
