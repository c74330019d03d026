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

package catalog

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	kerrors "cascadedb/internal/errors"
)

type xmlSchema struct {
	XMLName  xml.Name   `xml:"schema"`
	PageSize int        `xml:"pageSize,attr"`
	Tables   []xmlTable `xml:"table"`
}

type xmlTable struct {
	Name        string        `xml:"name,attr"`
	Cardinality int64         `xml:"cardinality,attr"`
	Width       int           `xml:"width,attr"`
	Columns     []xmlColumn   `xml:"column"`
	Indexes     []xmlIndex    `xml:"index"`
	PrimaryKey  *xmlKey       `xml:"primaryKey"`
	ForeignKeys []xmlForeignKey `xml:"foreignKey"`
}

type xmlColumn struct {
	Name              string `xml:"name,attr"`
	Type              string `xml:"type,attr"`
	Width             int    `xml:"width,attr"`
	UniqueCardinality int64  `xml:"uniqueCardinality,attr"`
}

type xmlIndex struct {
	Name    string   `xml:"name,attr"`
	Unique  bool     `xml:"unique,attr"`
	Columns []string `xml:"column"`
}

type xmlKey struct {
	Columns []string `xml:"column"`
}

type xmlForeignKey struct {
	RefTable   string   `xml:"refTable,attr"`
	Columns    []string `xml:"column"`
	RefColumns []string `xml:"refColumn"`
}

// LoadFile reads and parses the XML schema document at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, kerrors.NewIOError(fmt.Sprintf("opening catalog schema %q: %v", path, err))
	}
	defer f.Close()
	return Load(f)
}

// Load parses an XML schema document of the shape described in spec §6:
// {pageSize, tables{table{name, cardinality, width, columns, indexes?,
// primaryKey?, foreignKey*}}}.
func Load(r io.Reader) (*Catalog, error) {
	var doc xmlSchema
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, kerrors.NewInvalidInputError(fmt.Sprintf("parsing catalog schema: %v", err))
	}

	cat := NewCatalog(doc.PageSize)
	for _, xt := range doc.Tables {
		table := &Table{
			ID:          uuid.New(),
			Name:        xt.Name,
			Cardinality: xt.Cardinality,
			Width:       xt.Width,
		}
		for _, xc := range xt.Columns {
			table.Columns = append(table.Columns, &Column{
				ID:                uuid.New(),
				Table:             table,
				Name:              xc.Name,
				Type:              ColumnType(xc.Type),
				Width:             xc.Width,
				UniqueCardinality: xc.UniqueCardinality,
			})
		}
		cat.AddTable(table)
	}

	// Second pass: indexes, primary keys and foreign keys may reference
	// columns by name across the whole document, so resolve them only
	// once every table's column list exists.
	for i, xt := range doc.Tables {
		table, _ := cat.Table(xt.Name)
		_ = i
		if xt.PrimaryKey != nil {
			key, err := resolveColumns(table, xt.PrimaryKey.Columns)
			if err != nil {
				return nil, err
			}
			table.PrimaryKey = key
		}
		for _, xfk := range xt.ForeignKeys {
			cols, err := resolveColumns(table, xfk.Columns)
			if err != nil {
				return nil, err
			}
			refTable, ok := cat.Table(xfk.RefTable)
			if !ok {
				return nil, kerrors.NewInvalidInputError(fmt.Sprintf("foreign key on %q references unknown table %q", table.Name, xfk.RefTable))
			}
			refCols, err := resolveColumns(refTable, xfk.RefColumns)
			if err != nil {
				return nil, err
			}
			table.ForeignKeys = append(table.ForeignKeys, &ForeignKey{
				Columns:    cols,
				RefTable:   xfk.RefTable,
				RefColumns: refCols,
			})
		}
		for _, xi := range xt.Indexes {
			cols, err := resolveColumns(table, xi.Columns)
			if err != nil {
				return nil, err
			}
			table.Indexes = append(table.Indexes, &Index{
				ID:      uuid.New(),
				Name:    xi.Name,
				Table:   table,
				Columns: cols,
				Unique:  xi.Unique,
			})
		}
	}
	return cat, nil
}

func resolveColumns(t *Table, names []string) (Key, error) {
	key := make(Key, 0, len(names))
	for _, name := range names {
		col, ok := t.Column(name)
		if !ok {
			return nil, kerrors.NewInvalidInputError(fmt.Sprintf("table %q has no column %q", t.Name, name))
		}
		key = append(key, col)
	}
	return key, nil
}
