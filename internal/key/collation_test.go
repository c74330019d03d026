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

package key

import "testing"

func TestBinaryCollator(t *testing.T) {
	c := &BinaryCollator{}
	if c.Compare("Alice", "alice") >= 0 {
		t.Error("expected uppercase to sort before lowercase under binary collation")
	}
	if c.Equal("Alice", "alice") {
		t.Error("expected binary collation to treat case as distinct")
	}
	if !c.Equal("Bob", "Bob") {
		t.Error("expected identical strings to be equal")
	}
}

func TestNocaseCollator(t *testing.T) {
	c := &NocaseCollator{}
	if !c.Equal("Alice", "alice") {
		t.Error("expected nocase collation to treat case as equal")
	}
	if c.Compare("alice", "bob") >= 0 {
		t.Error("expected alice < bob under nocase collation")
	}
}

func TestGetCollator(t *testing.T) {
	tests := []struct {
		collation Collation
		want      string
	}{
		{CollationBinary, "binary"},
		{CollationCaseInsensitive, "nocase"},
		{CollationUnicode, "unicode"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if tt.collation.String() != tt.want {
				t.Errorf("expected name %s, got %s", tt.want, tt.collation.String())
			}
			if GetCollator(tt.collation, "en") == nil {
				t.Error("expected non-nil collator")
			}
		})
	}
}

func TestNormalizeForCollation(t *testing.T) {
	if got := NormalizeForCollation("ALICE", CollationCaseInsensitive); got != "alice" {
		t.Errorf("expected lowercase normalization, got %s", got)
	}
	if got := NormalizeForCollation("Alice", CollationBinary); got != "Alice" {
		t.Errorf("expected binary normalization to be identity, got %s", got)
	}
}
