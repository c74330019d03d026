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

package sort

import (
	"encoding/binary"
	"math/rand"
	"path/filepath"
	"testing"

	"cascadedb/internal/compression"
	"cascadedb/internal/storage/buffer"
	"cascadedb/internal/storage/disk"
)

const testRecordWidth = 8 // 4-byte key + 4-byte payload

func encodeRecord(x int32, payload int32) []byte {
	buf := make([]byte, testRecordWidth)
	binary.BigEndian.PutUint32(buf[0:4], uint32(x))
	binary.BigEndian.PutUint32(buf[4:8], uint32(payload))
	return buf
}

func recordKey(rec []byte) int32 {
	return int32(binary.BigEndian.Uint32(rec[0:4]))
}

func intCmp(a, b []byte) int {
	ka, kb := recordKey(a), recordKey(b)
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return 0
	}
}

func newTestBufferManager(t *testing.T, numPages, numFrames int) *buffer.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db")
	dm, err := disk.Format(path, numPages, 256, 16)
	if err != nil {
		t.Fatalf("disk.Format: %v", err)
	}
	bm := buffer.NewManager(dm, numFrames, "clock")
	t.Cleanup(func() { bm.Close() })
	return bm
}

func drainRun(t *testing.T, bm *buffer.Manager, run Run, recordWidth int, spill spillOptions) [][]byte {
	t.Helper()
	scan, err := newRunScan(bm, run.First, recordWidth, true, spill)
	if err != nil {
		t.Fatalf("newRunScan: %v", err)
	}
	var out [][]byte
	for {
		rec, ok, err := scan.Next()
		if err != nil {
			t.Fatalf("scan.Next: %v", err)
		}
		if !ok {
			break
		}
		out = append(out, rec)
	}
	return out
}

func TestSortIsPermutationAndOrdered(t *testing.T) {
	bm := newTestBufferManager(t, 20000, 64)

	rng := rand.New(rand.NewSource(7))
	const n = 5000
	input := make([][]byte, n)
	seen := make(map[int32]int)
	for i := 0; i < n; i++ {
		x := int32(rng.Intn(20000) - 10000)
		input[i] = encodeRecord(x, int32(i))
		seen[x]++
	}

	run, err := Sort(bm, NewSliceIterator(input), intCmp, Config{
		RecordWidth:   testRecordWidth,
		HeapSize:      40,
		MaxMergeFanIn: 6,
	})
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}

	out := drainRun(t, bm, run, testRecordWidth, spillOptions{})
	if len(out) != n {
		t.Fatalf("expected %d records out, got %d", n, len(out))
	}
	for i := 1; i < len(out); i++ {
		if intCmp(out[i-1], out[i]) > 0 {
			t.Fatalf("output not sorted at %d: %d > %d", i, recordKey(out[i-1]), recordKey(out[i]))
		}
	}
	gotSeen := make(map[int32]int)
	for _, rec := range out {
		gotSeen[recordKey(rec)]++
	}
	for k, c := range seen {
		if gotSeen[k] != c {
			t.Fatalf("histogram mismatch for key %d: want %d got %d", k, c, gotSeen[k])
		}
	}

	if err := bm.FlushAllPages(); err != nil {
		t.Fatalf("FlushAllPages: %v", err)
	}
}

func TestSortEmptyInput(t *testing.T) {
	bm := newTestBufferManager(t, 2000, 16)
	run, err := Sort(bm, NewSliceIterator(nil), intCmp, Config{RecordWidth: testRecordWidth, HeapSize: 10, MaxMergeFanIn: 4})
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	if run.Count != 0 {
		t.Fatalf("expected empty run, got count %d", run.Count)
	}
}

func TestSortSingleInitialRun(t *testing.T) {
	bm := newTestBufferManager(t, 2000, 64)
	input := [][]byte{encodeRecord(3, 0), encodeRecord(1, 1), encodeRecord(2, 2)}
	run, err := Sort(bm, NewSliceIterator(input), intCmp, Config{RecordWidth: testRecordWidth, HeapSize: 50, MaxMergeFanIn: 4})
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	out := drainRun(t, bm, run, testRecordWidth, spillOptions{})
	want := []int32{1, 2, 3}
	for i, w := range want {
		if recordKey(out[i]) != w {
			t.Fatalf("position %d: want %d got %d", i, w, recordKey(out[i]))
		}
	}
}

func TestSortWithSpillCompressionRoundTrips(t *testing.T) {
	bm := newTestBufferManager(t, 20000, 48)

	rng := rand.New(rand.NewSource(11))
	const n = 4000
	input := make([][]byte, n)
	seen := make(map[int32]int)
	for i := 0; i < n; i++ {
		x := int32(rng.Intn(5000))
		input[i] = encodeRecord(x, int32(i))
		seen[x]++
	}

	cfg := Config{
		RecordWidth:   testRecordWidth,
		HeapSize:      32,
		MaxMergeFanIn: 4,
		Compression: compression.Config{
			Algorithm: compression.AlgorithmZstd,
			Level:     compression.LevelDefault,
			MinSize:   testRecordWidth,
		},
		SpillThreshold: 32, // well under a 256-byte page, so most pages seal compressed
	}
	run, err := Sort(bm, NewSliceIterator(input), intCmp, cfg)
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}

	out := drainRun(t, bm, run, testRecordWidth, newSpillOptions(cfg))
	if len(out) != n {
		t.Fatalf("expected %d records out, got %d", n, len(out))
	}
	for i := 1; i < len(out); i++ {
		if intCmp(out[i-1], out[i]) > 0 {
			t.Fatalf("output not sorted at %d: %d > %d", i, recordKey(out[i-1]), recordKey(out[i]))
		}
	}
	gotSeen := make(map[int32]int)
	for _, rec := range out {
		gotSeen[recordKey(rec)]++
	}
	for k, c := range seen {
		if gotSeen[k] != c {
			t.Fatalf("histogram mismatch for key %d: want %d got %d", k, c, gotSeen[k])
		}
	}
}
