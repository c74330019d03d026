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

package disk

import (
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T, numPages int) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db")
	m, err := Format(path, numPages, 256, 16)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestFormatMarksHeaderAndBitmapPagesAllocated(t *testing.T) {
	m := newTestManager(t, 200)
	for k := 0; k <= m.numBitmapPages; k++ {
		allocated, err := m.getBit(k)
		if err != nil {
			t.Fatalf("getBit(%d): %v", k, err)
		}
		if !allocated {
			t.Errorf("expected bit %d (header/bitmap page) to be allocated", k)
		}
	}
}

func TestAllocateAndDeallocatePage(t *testing.T) {
	m := newTestManager(t, 200)
	before, err := m.GetAllocCount()
	if err != nil {
		t.Fatalf("GetAllocCount: %v", err)
	}

	id, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	after, err := m.GetAllocCount()
	if err != nil {
		t.Fatalf("GetAllocCount: %v", err)
	}
	if after != before+1 {
		t.Fatalf("expected alloc count to grow by 1, got %d -> %d", before, after)
	}

	if err := m.DeallocatePage(id); err != nil {
		t.Fatalf("DeallocatePage: %v", err)
	}
	restored, err := m.GetAllocCount()
	if err != nil {
		t.Fatalf("GetAllocCount: %v", err)
	}
	if restored != before {
		t.Fatalf("expected alloc count to return to %d, got %d", before, restored)
	}
}

func TestAllocatePagesRunReuse(t *testing.T) {
	m := newTestManager(t, 500)

	runStart, err := m.AllocatePages(30)
	if err != nil {
		t.Fatalf("AllocatePages(30): %v", err)
	}
	if err := m.DeallocatePages(runStart+20, 10); err != nil {
		t.Fatalf("DeallocatePages: %v", err)
	}

	reused, err := m.AllocatePages(10)
	if err != nil {
		t.Fatalf("AllocatePages(10): %v", err)
	}
	if reused != runStart+20 {
		t.Errorf("expected reuse at %d, got %d", runStart+20, reused)
	}
}

func TestAllocatePagesRejectsNonPositive(t *testing.T) {
	m := newTestManager(t, 50)
	if _, err := m.AllocatePages(0); err == nil {
		t.Error("expected error for a zero-size run")
	}
	if _, err := m.AllocatePages(-1); err == nil {
		t.Error("expected error for a negative-size run")
	}
}

func TestReadWritePageRequiresAllocation(t *testing.T) {
	m := newTestManager(t, 50)
	buf := make([]byte, m.PageSize())

	id, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if err := m.WritePage(id, buf); err != nil {
		t.Fatalf("WritePage on allocated page: %v", err)
	}
	if err := m.DeallocatePage(id); err != nil {
		t.Fatalf("DeallocatePage: %v", err)
	}
	if err := m.ReadPage(id, buf); err == nil {
		t.Error("expected ReadPage on a deallocated page to fail")
	}
}

func TestFileDirectoryAddGetDelete(t *testing.T) {
	m := newTestManager(t, 50)

	p1, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if err := m.AddFileEntry("Sailors", p1); err != nil {
		t.Fatalf("AddFileEntry: %v", err)
	}

	got, ok, err := m.GetFileEntry("sailors")
	if err != nil {
		t.Fatalf("GetFileEntry: %v", err)
	}
	if !ok || got != p1 {
		t.Fatalf("expected case-insensitive lookup to find page %d, got %d (ok=%v)", p1, got, ok)
	}

	if err := m.AddFileEntry("SAILORS", p1); err == nil {
		t.Error("expected duplicate entry error")
	}

	if err := m.DeleteFileEntry("Sailors"); err != nil {
		t.Fatalf("DeleteFileEntry: %v", err)
	}
	if _, ok, err := m.GetFileEntry("Sailors"); err != nil || ok {
		t.Errorf("expected entry to be gone after delete, ok=%v err=%v", ok, err)
	}
}

func TestFileDirectoryRejectsOversizeName(t *testing.T) {
	m := newTestManager(t, 50)
	p1, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	long := make([]byte, NameMaxLen+1)
	for i := range long {
		long[i] = 'x'
	}
	if err := m.AddFileEntry(string(long), p1); err == nil {
		t.Error("expected oversize name error")
	}
}

func TestFileDirectorySpansMultiplePages(t *testing.T) {
	m := newTestManager(t, 2000)
	capacity := m.dirEntryCapacity(0)

	for i := 0; i < capacity+5; i++ {
		p, err := m.AllocatePage()
		if err != nil {
			t.Fatalf("AllocatePage #%d: %v", i, err)
		}
		name := "t" + string(rune('a'+i%26)) + string(rune('0'+(i/26)%10))
		if err := m.AddFileEntry(name, p); err != nil {
			t.Fatalf("AddFileEntry #%d: %v", i, err)
		}
	}
}
