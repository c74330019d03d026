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

import (
	"testing"
	"time"
)

func TestAtomRoundTrip(t *testing.T) {
	cases := []Atom{
		Byte(-12),
		Short(-3000),
		Int(123456789),
		Long(-9000000000),
		Float(3.5),
		Double(-2.71828),
		String("sailors"),
		String(""),
		Date(time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)),
		Time(3600_000),
		Timestamp(time.Date(2026, 7, 31, 12, 30, 0, 0, time.UTC)),
	}

	for _, a := range cases {
		buf := make([]byte, EncodedLen(a)+8)
		n := WriteAtom(buf, 2, a)
		if n != EncodedLen(a) {
			t.Fatalf("%s: WriteAtom returned %d, EncodedLen says %d", a.Type, n, EncodedLen(a))
		}
		got, used, err := ReadAtom(buf, 2)
		if err != nil {
			t.Fatalf("%s: ReadAtom: %v", a.Type, err)
		}
		if used != n {
			t.Fatalf("%s: ReadAtom consumed %d, wrote %d", a.Type, used, n)
		}
		if got.Type != a.Type {
			t.Fatalf("type mismatch: wrote %s, read %s", a.Type, got.Type)
		}
		switch a.Type {
		case AtomByte:
			if got.AsByte() != a.AsByte() {
				t.Errorf("byte mismatch: %d != %d", got.AsByte(), a.AsByte())
			}
		case AtomShort:
			if got.AsShort() != a.AsShort() {
				t.Errorf("short mismatch: %d != %d", got.AsShort(), a.AsShort())
			}
		case AtomInt:
			if got.AsInt() != a.AsInt() {
				t.Errorf("int mismatch: %d != %d", got.AsInt(), a.AsInt())
			}
		case AtomLong:
			if got.AsLong() != a.AsLong() {
				t.Errorf("long mismatch: %d != %d", got.AsLong(), a.AsLong())
			}
		case AtomFloat:
			if got.AsFloat() != a.AsFloat() {
				t.Errorf("float mismatch: %v != %v", got.AsFloat(), a.AsFloat())
			}
		case AtomDouble:
			if got.AsDouble() != a.AsDouble() {
				t.Errorf("double mismatch: %v != %v", got.AsDouble(), a.AsDouble())
			}
		case AtomString:
			if got.AsString() != a.AsString() {
				t.Errorf("string mismatch: %q != %q", got.AsString(), a.AsString())
			}
		case AtomDate:
			if !got.AsDate().Equal(a.AsDate()) {
				t.Errorf("date mismatch: %v != %v", got.AsDate(), a.AsDate())
			}
		case AtomTime:
			if got.AsTimeMillis() != a.AsTimeMillis() {
				t.Errorf("time mismatch: %d != %d", got.AsTimeMillis(), a.AsTimeMillis())
			}
		case AtomTimestamp:
			if !got.AsTimestamp().Equal(a.AsTimestamp()) {
				t.Errorf("timestamp mismatch: %v != %v", got.AsTimestamp(), a.AsTimestamp())
			}
		}
	}
}

func TestCompositeKeyRoundTrip(t *testing.T) {
	k := Key{Int(42), String("reserves"), Date(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))}
	buf := make([]byte, KeyEncodedLen(k)+4)
	n, err := WriteKey(buf, 1, k)
	if err != nil {
		t.Fatalf("WriteKey: %v", err)
	}
	got, used, err := ReadKey(buf, 1)
	if err != nil {
		t.Fatalf("ReadKey: %v", err)
	}
	if used != n {
		t.Fatalf("ReadKey consumed %d, wrote %d", used, n)
	}
	if len(got) != len(k) {
		t.Fatalf("expected %d atoms, got %d", len(k), len(got))
	}
	if got[0].AsInt() != 42 || got[1].AsString() != "reserves" {
		t.Errorf("composite key atoms did not round-trip: %+v", got)
	}
}

func TestCompareAtomsNumeric(t *testing.T) {
	if CompareAtoms(Int(1), Int(2), CollationBinary) >= 0 {
		t.Error("expected 1 < 2")
	}
	if CompareAtoms(Long(5), Long(5), CollationBinary) != 0 {
		t.Error("expected 5 == 5")
	}
	if CompareAtoms(Double(2.5), Double(1.5), CollationBinary) <= 0 {
		t.Error("expected 2.5 > 1.5")
	}
}

func TestCompareAtomsString(t *testing.T) {
	if CompareAtoms(String("Smith"), String("smith"), CollationBinary) == 0 {
		t.Error("expected binary collation to distinguish case")
	}
	if CompareAtoms(String("Smith"), String("smith"), CollationCaseInsensitive) != 0 {
		t.Error("expected nocase collation to equate case")
	}
}

func TestCompareKeysLexicographic(t *testing.T) {
	a := Key{Int(1), String("a")}
	b := Key{Int(1), String("b")}
	c := Key{Int(2), String("a")}

	if Compare(a, b, CollationBinary) >= 0 {
		t.Error("expected (1,a) < (1,b)")
	}
	if Compare(a, c, CollationBinary) >= 0 {
		t.Error("expected (1,a) < (2,a)")
	}
	if Compare(a, a, CollationBinary) != 0 {
		t.Error("expected equal keys to compare equal")
	}
}

func TestCompareKeysDifferentLength(t *testing.T) {
	short := Key{Int(1)}
	long := Key{Int(1), Int(2)}
	if Compare(short, long, CollationBinary) >= 0 {
		t.Error("expected shorter key with equal prefix to sort first")
	}
}
