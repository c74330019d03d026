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

package buffer

import (
	"path/filepath"
	"testing"

	"cascadedb/internal/storage/disk"
)

func newTestBufferManager(t *testing.T, numPages, numFrames int, policy string) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db")
	dm, err := disk.Format(path, numPages, 256, 16)
	if err != nil {
		t.Fatalf("disk.Format: %v", err)
	}
	bm := NewManager(dm, numFrames, policy)
	t.Cleanup(func() { bm.Close() })
	return bm
}

func TestRoundTripPage(t *testing.T) {
	bm := newTestBufferManager(t, 200000, 17, "clock")

	page, err := bm.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	for i := 0; i < 64; i++ {
		page.Data[i] = byte(i + 1)
	}
	id := page.ID
	if err := bm.UnpinPage(page, true); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
	if err := bm.FlushAllPages(); err != nil {
		t.Fatalf("FlushAllPages: %v", err)
	}

	reread, err := bm.PinPage(id)
	if err != nil {
		t.Fatalf("PinPage: %v", err)
	}
	for i := 0; i < 64; i++ {
		if reread.Data[i] != byte(i+1) {
			t.Fatalf("byte %d mismatch: got %d", i, reread.Data[i])
		}
	}
	bm.UnpinPage(reread, false)
}

func TestBalancedPinUnpinReturnsToZero(t *testing.T) {
	bm := newTestBufferManager(t, 1000, 10, "clock")

	var ids []disk.PageID
	for i := 0; i < 5; i++ {
		p, err := bm.NewPage()
		if err != nil {
			t.Fatalf("NewPage: %v", err)
		}
		ids = append(ids, p.ID)
		if err := bm.UnpinPage(p, false); err != nil {
			t.Fatalf("UnpinPage: %v", err)
		}
	}

	before, err := bm.disk.GetAllocCount()
	if err != nil {
		t.Fatalf("GetAllocCount: %v", err)
	}

	for _, id := range ids {
		p, err := bm.PinPage(id)
		if err != nil {
			t.Fatalf("PinPage: %v", err)
		}
		if err := bm.UnpinPage(p, false); err != nil {
			t.Fatalf("UnpinPage: %v", err)
		}
	}

	for frame, p := range bm.frames {
		if p != nil && p.PinCount != 0 {
			t.Errorf("expected frame %d to be fully unpinned, got pin count %d", frame, p.PinCount)
		}
	}

	after, err := bm.disk.GetAllocCount()
	if err != nil {
		t.Fatalf("GetAllocCount: %v", err)
	}
	if after != before {
		t.Errorf("expected alloc count unchanged by pin/unpin, got %d -> %d", before, after)
	}
}

func TestFreePageRequiresSinglePin(t *testing.T) {
	bm := newTestBufferManager(t, 1000, 10, "clock")
	p, err := bm.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if _, err := bm.PinPage(p.ID); err != nil {
		t.Fatalf("PinPage: %v", err)
	}
	if err := bm.FreePage(p); err == nil {
		t.Error("expected FreePage to fail with pin count 2")
	}
	bm.UnpinPage(p, false)
	if err := bm.FreePage(p); err != nil {
		t.Fatalf("FreePage with pin count 1: %v", err)
	}
}

func TestEvictionWritesBackDirtyPages(t *testing.T) {
	bm := newTestBufferManager(t, 1000, 4, "clock")

	var ids []disk.PageID
	for i := 0; i < 4; i++ {
		p, err := bm.NewPage()
		if err != nil {
			t.Fatalf("NewPage #%d: %v", i, err)
		}
		p.Data[0] = byte(10 + i)
		ids = append(ids, p.ID)
		if err := bm.UnpinPage(p, true); err != nil {
			t.Fatalf("UnpinPage #%d: %v", i, err)
		}
	}

	for i := 0; i < 3; i++ {
		p, err := bm.NewPage()
		if err != nil {
			t.Fatalf("NewPage (eviction round) #%d: %v", i, err)
		}
		bm.UnpinPage(p, false)
	}

	for i, id := range ids[:3] {
		p, err := bm.PinPage(id)
		if err != nil {
			t.Fatalf("PinPage evicted id #%d: %v", i, err)
		}
		if p.Data[0] != byte(10+i) {
			t.Errorf("evicted page %d lost its dirty write: got %d", id, p.Data[0])
		}
		bm.UnpinPage(p, false)
	}
}

func TestPinPageInvalidID(t *testing.T) {
	bm := newTestBufferManager(t, 1000, 10, "clock")
	if _, err := bm.PinPage(disk.PageID(999999)); err == nil {
		t.Error("expected error pinning an out-of-range page id")
	}
}
