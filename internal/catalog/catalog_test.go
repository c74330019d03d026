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
	"strings"
	"testing"
)

const sailorsReservesXML = `
<schema pageSize="4096">
  <table name="Sailors" cardinality="10000" width="50">
    <column name="sid" type="INT" width="4" uniqueCardinality="10000"/>
    <column name="sname" type="STRING" width="30" uniqueCardinality="9000"/>
    <index name="sid_idx" unique="true">
      <column>sid</column>
    </index>
    <primaryKey>
      <column>sid</column>
    </primaryKey>
  </table>
  <table name="Reserves" cardinality="100000" width="12">
    <column name="sid" type="INT" width="4" uniqueCardinality="9500"/>
    <column name="bid" type="INT" width="4" uniqueCardinality="2000"/>
    <foreignKey refTable="Sailors">
      <column>sid</column>
      <refColumn>sid</refColumn>
    </foreignKey>
  </table>
</schema>`

func TestLoadSailorsReserves(t *testing.T) {
	cat, err := Load(strings.NewReader(sailorsReservesXML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cat.PageSize != 4096 {
		t.Fatalf("page size: want 4096 got %d", cat.PageSize)
	}
	sailors, ok := cat.Table("Sailors")
	if !ok {
		t.Fatal("missing Sailors table")
	}
	if sailors.Cardinality != 10000 {
		t.Fatalf("Sailors cardinality: got %d", sailors.Cardinality)
	}
	if len(sailors.PrimaryKey) != 1 || sailors.PrimaryKey[0].Name != "sid" {
		t.Fatalf("Sailors primary key: got %v", sailors.PrimaryKey)
	}
	if len(sailors.Indexes) != 1 || !sailors.Indexes[0].Unique {
		t.Fatalf("Sailors index: got %+v", sailors.Indexes)
	}

	reserves, ok := cat.Table("Reserves")
	if !ok {
		t.Fatal("missing Reserves table")
	}
	if len(reserves.ForeignKeys) != 1 {
		t.Fatalf("Reserves foreign keys: got %d", len(reserves.ForeignKeys))
	}
	fk := reserves.ForeignKeys[0]
	if fk.RefTable != "Sailors" || len(fk.Columns) != 1 || fk.Columns[0].Name != "sid" {
		t.Fatalf("foreign key mismatch: %+v", fk)
	}

	// Resolve's preserved quirk (spec §9) always reports a miss, even
	// though the referenced table exists.
	if _, ok := fk.Resolve(cat); ok {
		t.Fatal("Resolve was expected to preserve its always-miss quirk")
	}
	if _, ok := fk.LookupRefTable(cat); !ok {
		t.Fatal("LookupRefTable should find the real referenced table")
	}
}

func TestLoadUnknownForeignTable(t *testing.T) {
	const badXML = `
<schema pageSize="1024">
  <table name="Orders" cardinality="1" width="1">
    <column name="id" type="INT" width="4" uniqueCardinality="1"/>
    <foreignKey refTable="Missing">
      <column>id</column>
      <refColumn>id</refColumn>
    </foreignKey>
  </table>
</schema>`
	if _, err := Load(strings.NewReader(badXML)); err == nil {
		t.Fatal("expected error for unknown foreign table")
	}
}
