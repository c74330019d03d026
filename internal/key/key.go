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
Package key implements the self-describing search-key codec: a tagged
atomic value or a composite of atomic values that writes and reads
itself from page bytes. Every atom starts with a one-byte type
discriminator (and, for strings, a 16-bit length) so a key can be
decoded without any external schema, which is what lets an index page
store keys from different column types side by side.
*/
package key

import (
	"fmt"
	"time"

	"cascadedb/internal/codec"
	kerrors "cascadedb/internal/errors"
)

// AtomType is the one-byte discriminator written ahead of every atomic
// value.
type AtomType byte

const (
	AtomByte AtomType = iota + 1
	AtomShort
	AtomInt
	AtomLong
	AtomFloat
	AtomDouble
	AtomString
	AtomDate
	AtomTime
	AtomTimestamp
)

func (t AtomType) String() string {
	switch t {
	case AtomByte:
		return "byte"
	case AtomShort:
		return "short"
	case AtomInt:
		return "int"
	case AtomLong:
		return "long"
	case AtomFloat:
		return "float"
	case AtomDouble:
		return "double"
	case AtomString:
		return "string"
	case AtomDate:
		return "date"
	case AtomTime:
		return "time"
	case AtomTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("atom(%d)", byte(t))
	}
}

// Atom is one tagged value from the closed set the search-key codec
// supports. Exactly one of the typed fields is meaningful, selected by
// Type.
type Atom struct {
	Type AtomType

	i8  int8
	i16 int16
	i32 int32
	i64 int64
	f32 float32
	f64 float64
	str string
}

func Byte(v int8) Atom      { return Atom{Type: AtomByte, i8: v} }
func Short(v int16) Atom    { return Atom{Type: AtomShort, i16: v} }
func Int(v int32) Atom      { return Atom{Type: AtomInt, i32: v} }
func Long(v int64) Atom     { return Atom{Type: AtomLong, i64: v} }
func Float(v float32) Atom  { return Atom{Type: AtomFloat, f32: v} }
func Double(v float64) Atom { return Atom{Type: AtomDouble, f64: v} }
func String(v string) Atom  { return Atom{Type: AtomString, str: v} }

// Date truncates t to a day and stores it as days since the Unix epoch.
func Date(t time.Time) Atom { return Atom{Type: AtomDate, i32: codec.DateToDays(t)} }

// Time stores a time-of-day offset as milliseconds since midnight.
func Time(millis int64) Atom { return Atom{Type: AtomTime, i64: millis} }

// Timestamp stores t as milliseconds since the Unix epoch.
func Timestamp(t time.Time) Atom {
	return Atom{Type: AtomTimestamp, i64: t.UnixMilli()}
}

func (a Atom) AsByte() int8       { return a.i8 }
func (a Atom) AsShort() int16     { return a.i16 }
func (a Atom) AsInt() int32       { return a.i32 }
func (a Atom) AsLong() int64      { return a.i64 }
func (a Atom) AsFloat() float32   { return a.f32 }
func (a Atom) AsDouble() float64  { return a.f64 }
func (a Atom) AsString() string   { return a.str }
func (a Atom) AsDate() time.Time  { return codec.DaysToDate(a.i32) }
func (a Atom) AsTimeMillis() int64 { return a.i64 }
func (a Atom) AsTimestamp() time.Time {
	return time.UnixMilli(a.i64).UTC()
}

// EncodedLen returns the number of bytes WriteAtom will write for a.
func EncodedLen(a Atom) int {
	switch a.Type {
	case AtomByte:
		return 1 + 1
	case AtomShort:
		return 1 + 2
	case AtomInt, AtomDate:
		return 1 + 4
	case AtomLong, AtomTime, AtomTimestamp:
		return 1 + 8
	case AtomFloat:
		return 1 + 4
	case AtomDouble:
		return 1 + 8
	case AtomString:
		return 1 + 2 + len(a.str)
	default:
		return 0
	}
}

// WriteAtom writes a's discriminator and body at buf[off:] and returns
// the number of bytes written.
func WriteAtom(buf []byte, off int, a Atom) int {
	buf[off] = byte(a.Type)
	body := off + 1
	switch a.Type {
	case AtomByte:
		codec.WriteByte(buf, body, a.i8)
		return 2
	case AtomShort:
		codec.WriteInt16(buf, body, a.i16)
		return 3
	case AtomInt:
		codec.WriteInt32(buf, body, a.i32)
		return 5
	case AtomLong:
		codec.WriteInt64(buf, body, a.i64)
		return 9
	case AtomFloat:
		codec.WriteFloat32(buf, body, a.f32)
		return 5
	case AtomDouble:
		codec.WriteFloat64(buf, body, a.f64)
		return 9
	case AtomString:
		codec.WriteInt16(buf, body, int16(len(a.str)))
		copy(buf[body+2:], a.str)
		return 1 + 2 + len(a.str)
	case AtomDate:
		codec.WriteInt32(buf, body, a.i32)
		return 5
	case AtomTime:
		codec.WriteInt64(buf, body, a.i64)
		return 9
	case AtomTimestamp:
		codec.WriteInt64(buf, body, a.i64)
		return 9
	default:
		panic(fmt.Sprintf("key: unknown atom type %d", byte(a.Type)))
	}
}

// ReadAtom reads one tagged atom from buf[off:] and returns it along
// with the number of bytes consumed.
func ReadAtom(buf []byte, off int) (Atom, int, error) {
	if off >= len(buf) {
		return Atom{}, 0, kerrors.NewInvalidInputError("read atom past end of buffer")
	}
	t := AtomType(buf[off])
	body := off + 1
	switch t {
	case AtomByte:
		return Atom{Type: t, i8: codec.ReadByte(buf, body)}, 2, nil
	case AtomShort:
		return Atom{Type: t, i16: codec.ReadInt16(buf, body)}, 3, nil
	case AtomInt:
		return Atom{Type: t, i32: codec.ReadInt32(buf, body)}, 5, nil
	case AtomLong:
		return Atom{Type: t, i64: codec.ReadInt64(buf, body)}, 9, nil
	case AtomFloat:
		return Atom{Type: t, f32: codec.ReadFloat32(buf, body)}, 5, nil
	case AtomDouble:
		return Atom{Type: t, f64: codec.ReadFloat64(buf, body)}, 9, nil
	case AtomString:
		n := int(codec.ReadInt16(buf, body))
		if n < 0 {
			return Atom{}, 0, kerrors.NewInvalidInputError("negative string length in key atom")
		}
		s := string(buf[body+2 : body+2+n])
		return Atom{Type: t, str: s}, 1 + 2 + n, nil
	case AtomDate:
		return Atom{Type: t, i32: codec.ReadInt32(buf, body)}, 5, nil
	case AtomTime:
		return Atom{Type: t, i64: codec.ReadInt64(buf, body)}, 9, nil
	case AtomTimestamp:
		return Atom{Type: t, i64: codec.ReadInt64(buf, body)}, 9, nil
	default:
		return Atom{}, 0, kerrors.NewInvalidInputError(fmt.Sprintf("unknown atom tag %d", byte(t)))
	}
}

// CompareAtoms orders two atoms of the same type. Strings are ordered
// by collation; every other type orders by numeric value. NaN ordering
// for float/double is left to Go's native < and > semantics: both are
// false when either operand is NaN, so cmpFloat64 returns 0 and a NaN
// compares equal to every value (including itself) — callers that need
// a total order over NaN must pre-filter it.
func CompareAtoms(a, b Atom, collation Collation) int {
	switch a.Type {
	case AtomByte:
		return cmpInt64(int64(a.i8), int64(b.i8))
	case AtomShort:
		return cmpInt64(int64(a.i16), int64(b.i16))
	case AtomInt, AtomDate:
		return cmpInt64(int64(a.i32), int64(b.i32))
	case AtomLong, AtomTime, AtomTimestamp:
		return cmpInt64(a.i64, b.i64)
	case AtomFloat:
		return cmpFloat64(float64(a.f32), float64(b.f32))
	case AtomDouble:
		return cmpFloat64(a.f64, b.f64)
	case AtomString:
		return GetCollator(collation, "").Compare(a.str, b.str)
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Key is a composite search key: a sequence of atomic values compared
// lexicographically. A single-atom key is simply a Key of length 1.
type Key []Atom

// KeyEncodedLen returns the number of bytes WriteKey will write for k,
// including the one-byte atom count header.
func KeyEncodedLen(k Key) int {
	n := 1
	for _, a := range k {
		n += EncodedLen(a)
	}
	return n
}

// WriteKey writes a length byte followed by each atom in order and
// returns the total bytes written.
func WriteKey(buf []byte, off int, k Key) (int, error) {
	if len(k) > 255 {
		return 0, kerrors.NewInvalidInputError("composite key has more than 255 atoms")
	}
	buf[off] = byte(len(k))
	n := 1
	for _, a := range k {
		n += WriteAtom(buf, off+n, a)
	}
	return n, nil
}

// ReadKey reads a composite key written by WriteKey.
func ReadKey(buf []byte, off int) (Key, int, error) {
	if off >= len(buf) {
		return nil, 0, kerrors.NewInvalidInputError("read key past end of buffer")
	}
	count := int(buf[off])
	k := make(Key, 0, count)
	n := 1
	for i := 0; i < count; i++ {
		a, used, err := ReadAtom(buf, off+n)
		if err != nil {
			return nil, 0, err
		}
		k = append(k, a)
		n += used
	}
	return k, n, nil
}

// Compare orders two composite keys lexicographically over their
// atomic comparisons. Keys of different length compare by their shared
// prefix first, shorter-is-less on a tie, matching a composite key's
// role as a prefix-comparable index key.
func Compare(a, b Key, collation Collation) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := CompareAtoms(a[i], b[i], collation); c != 0 {
			return c
		}
	}
	return cmpInt64(int64(len(a)), int64(len(b)))
}
