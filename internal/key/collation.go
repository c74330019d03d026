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
Collation controls how the STRING atom of a search key orders against
other STRING atoms. The wire encoding (see WriteAtom in key.go) is always
a plain 16-bit-length-prefixed UTF-8 byte sequence; collation only changes how two
decoded strings compare once the key has been read back, so an index
built under one collation must be queried under the same one or its
ordering invariant breaks.

Three collations are supported:

  - Binary (default): byte-wise comparison, matching Go's native string
    ordering. Cheapest, and what GetCollator falls back to for an
    unrecognised collation value.
  - CaseInsensitive: folds case before comparing, so "Smith" and "smith"
    collate equal.
  - Unicode: locale-aware ordering via golang.org/x/text/collate, for
    columns holding natural-language text where byte order would put
    accented characters in the wrong place.
*/
package key

import (
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collation names the comparison rule applied to a STRING atom.
type Collation int

const (
	CollationBinary Collation = iota
	CollationCaseInsensitive
	CollationUnicode
)

// String renders the collation's short name; an unknown value renders
// as "binary".
func (c Collation) String() string {
	switch c {
	case CollationBinary:
		return "binary"
	case CollationCaseInsensitive:
		return "nocase"
	case CollationUnicode:
		return "unicode"
	default:
		return "binary"
	}
}

// Collator compares and tests equality of decoded string atoms.
type Collator interface {
	// Compare returns -1, 0, or 1 as a orders before, equal to, or after b.
	Compare(a, b string) int
	// Equal reports whether a and b collate equal.
	Equal(a, b string) bool
}

// BinaryCollator compares strings byte-wise, the same order Go's < and >
// operators give native strings.
type BinaryCollator struct{}

func (c *BinaryCollator) Compare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (c *BinaryCollator) Equal(a, b string) bool { return a == b }

// NocaseCollator folds case before comparing.
type NocaseCollator struct{}

func (c *NocaseCollator) Compare(a, b string) int {
	aLower, bLower := strings.ToLower(a), strings.ToLower(b)
	switch {
	case aLower < bLower:
		return -1
	case aLower > bLower:
		return 1
	default:
		return 0
	}
}

func (c *NocaseCollator) Equal(a, b string) bool { return strings.EqualFold(a, b) }

// UnicodeCollator orders strings using golang.org/x/text/collate under a
// fixed locale tag.
type UnicodeCollator struct {
	collator *collate.Collator
	locale   string
}

// NewUnicodeCollator builds a Unicode collator for the given BCP-47 locale
// tag, falling back to English if the tag doesn't parse.
func NewUnicodeCollator(locale string) *UnicodeCollator {
	tag := language.Make(locale)
	if tag == language.Und {
		tag = language.English
	}
	return &UnicodeCollator{collator: collate.New(tag, collate.Loose), locale: locale}
}

func (c *UnicodeCollator) Compare(a, b string) int { return c.collator.CompareString(a, b) }
func (c *UnicodeCollator) Equal(a, b string) bool  { return c.collator.CompareString(a, b) == 0 }

// GetCollator returns the Collator for a collation and, for CollationUnicode,
// a locale tag. locale is ignored by the other collations.
func GetCollator(collation Collation, locale string) Collator {
	switch collation {
	case CollationCaseInsensitive:
		return &NocaseCollator{}
	case CollationUnicode:
		return NewUnicodeCollator(locale)
	default:
		return &BinaryCollator{}
	}
}

// NormalizeForCollation maps a string to a form that can be used as a map
// key or hashed for a multi-expression content hash without re-running
// Collator.Compare. For CollationBinary it is the identity and for
// CollationCaseInsensitive it lower-cases, matching what those collators
// compare. For CollationUnicode it only maps whitespace to a plain space:
// strings the Unicode collator treats as equal (for example ones that
// differ only in case or accents) can still normalize differently.
func NormalizeForCollation(s string, collation Collation) string {
	switch collation {
	case CollationCaseInsensitive:
		return strings.ToLower(s)
	case CollationUnicode:
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return ' '
			}
			return r
		}, s)
	default:
		return s
	}
}
