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
	"container/list"
	"strings"

	"cascadedb/internal/codec"
	kerrors "cascadedb/internal/errors"
	"cascadedb/internal/logging"
)

// NameMaxLen bounds a file-directory entry's UTF-8 name in bytes.
const NameMaxLen = 50

const (
	dirEntrySize = 56 // 4-byte page ID + 52-byte name
	dirNameWidth = 52
	dirHeaderLen = 8 // next-page ID (4 bytes) + entry count (4 bytes)
)

// Manager owns a File and layers the allocation bitmap, file-entry
// directory and a small header-page cache on top of it.
type Manager struct {
	file     *File
	pageSize int

	numBitmapPages int
	lastAllocBit   int

	headerCache     map[PageID]*list.Element
	headerLRU       *list.List
	headerCacheSize int

	readCount  int64
	writeCount int64

	log *logging.Logger
}

type headerEntry struct {
	id    PageID
	bytes []byte
	dirty bool
}

func newManager(f *File, headerCacheEntries int) *Manager {
	pageSize := f.PageSize()
	bitsPerPage := pageSize * 8
	numPages := int(f.NumPages())
	numBitmapPages := (numPages + bitsPerPage - 1) / bitsPerPage
	if headerCacheEntries <= 0 {
		headerCacheEntries = 16
	}
	return &Manager{
		file:            f,
		pageSize:        pageSize,
		numBitmapPages:  numBitmapPages,
		headerCache:     make(map[PageID]*list.Element),
		headerLRU:       list.New(),
		headerCacheSize: headerCacheEntries,
		log:             logging.NewLogger("disk"),
	}
}

// Format creates a fresh file of numPages pages and bootstraps the
// allocation bitmap (page 0 and the bitmap pages themselves marked
// allocated) and an empty first directory page.
func Format(path string, numPages int, pageSize int, headerCacheEntries int) (*Manager, error) {
	f, err := CreateFile(path, numPages, pageSize)
	if err != nil {
		return nil, err
	}
	m := newManager(f, headerCacheEntries)

	for k := 0; k <= m.numBitmapPages; k++ {
		if err := m.setBit(k, true); err != nil {
			f.Close()
			return nil, err
		}
	}
	m.lastAllocBit = m.numBitmapPages + 1

	dir, err := m.getHeaderPage(0)
	if err != nil {
		f.Close()
		return nil, err
	}
	codec.WriteInt32(dir.bytes, 0, int32(InvalidPageID))
	codec.WriteInt32(dir.bytes, 4, 0)
	codec.WriteInt32(dir.bytes, pageSize-4, int32(numPages))
	dir.dirty = true

	if err := m.FlushAllPages(); err != nil {
		f.Close()
		return nil, err
	}
	return m, nil
}

// Open loads an existing formatted file.
func Open(path string, pageSize int, headerCacheEntries int) (*Manager, error) {
	f, err := OpenFile(path, pageSize)
	if err != nil {
		return nil, err
	}
	return newManager(f, headerCacheEntries), nil
}

// ---- header page cache --------------------------------------------------

func (m *Manager) getHeaderPage(id PageID) (*headerEntry, error) {
	if el, ok := m.headerCache[id]; ok {
		m.headerLRU.MoveToFront(el)
		return el.Value.(*headerEntry), nil
	}
	buf := make([]byte, m.pageSize)
	if err := m.file.ReadPage(id, buf); err != nil {
		return nil, err
	}
	m.readCount++
	entry := &headerEntry{id: id, bytes: buf}
	el := m.headerLRU.PushFront(entry)
	m.headerCache[id] = el
	if m.headerLRU.Len() > m.headerCacheSize {
		if err := m.evictOldestHeader(); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

func (m *Manager) evictOldestHeader() error {
	el := m.headerLRU.Back()
	if el == nil {
		return nil
	}
	entry := el.Value.(*headerEntry)
	if entry.dirty {
		if err := m.file.WritePage(entry.id, entry.bytes); err != nil {
			return err
		}
		m.writeCount++
	}
	m.headerLRU.Remove(el)
	delete(m.headerCache, entry.id)
	return nil
}

// FlushAllPages writes back every dirty header-cache entry.
func (m *Manager) FlushAllPages() error {
	for el := m.headerLRU.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*headerEntry)
		if entry.dirty {
			if err := m.file.WritePage(entry.id, entry.bytes); err != nil {
				return err
			}
			m.writeCount++
			entry.dirty = false
		}
	}
	return nil
}

// Close flushes the header cache and closes the underlying file.
func (m *Manager) Close() error {
	if err := m.FlushAllPages(); err != nil {
		return err
	}
	return m.file.Close()
}

// ---- allocation bitmap ---------------------------------------------------

func (m *Manager) bitLocation(k int) (page PageID, byteIdx int, bitIdx int) {
	bitsPerPage := m.pageSize * 8
	page = PageID(1 + k/bitsPerPage)
	within := k % bitsPerPage
	byteIdx = within / 8
	bitIdx = within % 8
	return
}

func (m *Manager) getBit(k int) (bool, error) {
	page, byteIdx, bitIdx := m.bitLocation(k)
	entry, err := m.getHeaderPage(page)
	if err != nil {
		return false, err
	}
	return entry.bytes[byteIdx]&(1<<uint(bitIdx)) != 0, nil
}

func (m *Manager) setBit(k int, val bool) error {
	page, byteIdx, bitIdx := m.bitLocation(k)
	entry, err := m.getHeaderPage(page)
	if err != nil {
		return err
	}
	if val {
		entry.bytes[byteIdx] |= 1 << uint(bitIdx)
	} else {
		entry.bytes[byteIdx] &^= 1 << uint(bitIdx)
	}
	entry.dirty = true
	return nil
}

// AllocatePage scans from the allocation cursor for the first clear bit
// and marks it allocated.
func (m *Manager) AllocatePage() (PageID, error) {
	numPages := int(m.file.NumPages())
	for i := 0; i < numPages; i++ {
		k := (m.lastAllocBit + i) % numPages
		allocated, err := m.getBit(k)
		if err != nil {
			return InvalidPageID, err
		}
		if !allocated {
			if err := m.setBit(k, true); err != nil {
				return InvalidPageID, err
			}
			m.lastAllocBit = (k + 1) % numPages
			return PageID(k), nil
		}
	}
	return InvalidPageID, kerrors.NoFreeRun(1)
}

// AllocatePages scans for the first clear run of at least runSize
// contiguous pages and marks it allocated, returning the run's first page.
func (m *Manager) AllocatePages(runSize int) (PageID, error) {
	if runSize <= 0 {
		return InvalidPageID, kerrors.NegativeRunSize(runSize)
	}
	numPages := int(m.file.NumPages())
	runStart, runLen := -1, 0
	for k := 0; k < numPages; k++ {
		allocated, err := m.getBit(k)
		if err != nil {
			return InvalidPageID, err
		}
		if allocated {
			runStart, runLen = -1, 0
			continue
		}
		if runStart == -1 {
			runStart = k
		}
		runLen++
		if runLen == runSize {
			for j := runStart; j < runStart+runSize; j++ {
				if err := m.setBit(j, true); err != nil {
					return InvalidPageID, err
				}
			}
			if runStart <= m.lastAllocBit && m.lastAllocBit < runStart+runSize {
				m.lastAllocBit = runStart + runSize
			}
			return PageID(runStart), nil
		}
	}
	return InvalidPageID, kerrors.NoFreeRun(runSize)
}

// DeallocatePage clears the bit for id and rewinds the allocation cursor
// if id precedes it.
func (m *Manager) DeallocatePage(id PageID) error {
	if err := m.setBit(int(id), false); err != nil {
		return err
	}
	if int(id) < m.lastAllocBit {
		m.lastAllocBit = int(id)
	}
	return nil
}

// DeallocatePages clears the bits for [start, start+count).
func (m *Manager) DeallocatePages(start PageID, count int) error {
	for k := int(start); k < int(start)+count; k++ {
		if err := m.setBit(k, false); err != nil {
			return err
		}
	}
	if int(start) < m.lastAllocBit {
		m.lastAllocBit = int(start)
	}
	return nil
}

// GetAllocCount counts set bits across the whole bitmap.
func (m *Manager) GetAllocCount() (int64, error) {
	numPages := int(m.file.NumPages())
	var count int64
	for k := 0; k < numPages; k++ {
		allocated, err := m.getBit(k)
		if err != nil {
			return 0, err
		}
		if allocated {
			count++
		}
	}
	return count, nil
}

// ---- raw page I/O with allocation validation -----------------------------

// ReadPage reads an allocated user-data page, failing if it isn't
// currently allocated.
func (m *Manager) ReadPage(id PageID, buf []byte) error {
	if err := m.checkAllocated(id); err != nil {
		return err
	}
	if err := m.file.ReadPage(id, buf); err != nil {
		return err
	}
	m.readCount++
	return nil
}

// WritePage writes an allocated user-data page, failing if it isn't
// currently allocated.
func (m *Manager) WritePage(id PageID, buf []byte) error {
	if err := m.checkAllocated(id); err != nil {
		return err
	}
	if err := m.file.WritePage(id, buf); err != nil {
		return err
	}
	m.writeCount++
	return nil
}

func (m *Manager) checkAllocated(id PageID) error {
	if !id.Valid() || int64(id) >= m.file.NumPages() {
		return kerrors.InvalidPageID(int32(id))
	}
	allocated, err := m.getBit(int(id))
	if err != nil {
		return err
	}
	if !allocated {
		return kerrors.PageNotAllocated(int32(id))
	}
	return nil
}

// ReadCount returns the number of page reads performed since open.
func (m *Manager) ReadCount() int64 { return m.readCount }

// WriteCount returns the number of page writes performed since open.
func (m *Manager) WriteCount() int64 { return m.writeCount }

// PageSize returns the manager's fixed page size.
func (m *Manager) PageSize() int { return m.pageSize }

// NumPages returns the total page count of the underlying file.
func (m *Manager) NumPages() int64 { return m.file.NumPages() }

// ---- file-entry directory -------------------------------------------------

func (m *Manager) dirEntryCapacity(page PageID) int {
	if page == 0 {
		return (m.pageSize - dirHeaderLen - 4) / dirEntrySize
	}
	return (m.pageSize - dirHeaderLen) / dirEntrySize
}

type freeSlot struct {
	entry  *headerEntry
	offset int
	append bool
}

// AddFileEntry appends a {name, firstPageID} entry into the first free
// directory slot, extending the directory chain with a newly allocated
// page when every existing page is full. Names collide case-insensitively.
func (m *Manager) AddFileEntry(name string, firstPageID PageID) error {
	if len(name) > NameMaxLen {
		return kerrors.OversizeName(name, NameMaxLen)
	}
	if !firstPageID.Valid() {
		return kerrors.InvalidPageID(int32(firstPageID))
	}

	var free *freeSlot
	var lastPage PageID = 0
	page := PageID(0)
	for page.Valid() {
		entry, err := m.getHeaderPage(page)
		if err != nil {
			return err
		}
		next := PageID(codec.ReadInt32(entry.bytes, 0))
		count := int(codec.ReadInt32(entry.bytes, 4))
		base := dirHeaderLen
		capacity := m.dirEntryCapacity(page)

		for i := 0; i < capacity; i++ {
			off := base + i*dirEntrySize
			if i >= count {
				if free == nil {
					free = &freeSlot{entry: entry, offset: off, append: true}
				}
				continue
			}
			entryPageID := PageID(codec.ReadInt32(entry.bytes, off))
			if entryPageID == InvalidPageID {
				if free == nil {
					free = &freeSlot{entry: entry, offset: off, append: false}
				}
				continue
			}
			entryName := codec.ReadString(entry.bytes, off+4, dirNameWidth)
			if strings.EqualFold(entryName, name) {
				return kerrors.DuplicateEntry(name)
			}
		}
		lastPage = page
		page = next
	}

	if free != nil {
		codec.WriteInt32(free.entry.bytes, free.offset, int32(firstPageID))
		codec.WriteString(free.entry.bytes, free.offset+4, dirNameWidth, name)
		if free.append {
			count := int(codec.ReadInt32(free.entry.bytes, 4))
			codec.WriteInt32(free.entry.bytes, 4, int32(count+1))
		}
		free.entry.dirty = true
		return nil
	}

	newPage, err := m.AllocatePage()
	if err != nil {
		return err
	}
	newEntry, err := m.getHeaderPage(newPage)
	if err != nil {
		return err
	}
	codec.WriteInt32(newEntry.bytes, 0, int32(InvalidPageID))
	codec.WriteInt32(newEntry.bytes, 4, 1)
	codec.WriteInt32(newEntry.bytes, dirHeaderLen, int32(firstPageID))
	codec.WriteString(newEntry.bytes, dirHeaderLen+4, dirNameWidth, name)
	newEntry.dirty = true

	lastEntry, err := m.getHeaderPage(lastPage)
	if err != nil {
		return err
	}
	codec.WriteInt32(lastEntry.bytes, 0, int32(newPage))
	lastEntry.dirty = true
	return nil
}

// GetFileEntry returns the first page of the named file, if present.
func (m *Manager) GetFileEntry(name string) (PageID, bool, error) {
	page := PageID(0)
	for page.Valid() {
		entry, err := m.getHeaderPage(page)
		if err != nil {
			return InvalidPageID, false, err
		}
		next := PageID(codec.ReadInt32(entry.bytes, 0))
		count := int(codec.ReadInt32(entry.bytes, 4))
		base := dirHeaderLen
		for i := 0; i < count; i++ {
			off := base + i*dirEntrySize
			entryPageID := PageID(codec.ReadInt32(entry.bytes, off))
			if entryPageID == InvalidPageID {
				continue
			}
			entryName := codec.ReadString(entry.bytes, off+4, dirNameWidth)
			if strings.EqualFold(entryName, name) {
				return entryPageID, true, nil
			}
		}
		page = next
	}
	return InvalidPageID, false, nil
}

// DeleteFileEntry marks the named entry's slot invalid. Deleting a name
// that is not present is a no-op.
func (m *Manager) DeleteFileEntry(name string) error {
	page := PageID(0)
	for page.Valid() {
		entry, err := m.getHeaderPage(page)
		if err != nil {
			return err
		}
		next := PageID(codec.ReadInt32(entry.bytes, 0))
		count := int(codec.ReadInt32(entry.bytes, 4))
		base := dirHeaderLen
		for i := 0; i < count; i++ {
			off := base + i*dirEntrySize
			entryPageID := PageID(codec.ReadInt32(entry.bytes, off))
			if entryPageID == InvalidPageID {
				continue
			}
			entryName := codec.ReadString(entry.bytes, off+4, dirNameWidth)
			if strings.EqualFold(entryName, name) {
				codec.WriteInt32(entry.bytes, off, int32(InvalidPageID))
				entry.dirty = true
				return nil
			}
		}
		page = next
	}
	return nil
}
