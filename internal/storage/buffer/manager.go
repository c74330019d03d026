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
	"fmt"

	"cascadedb/internal/storage/disk"

	kerrors "cascadedb/internal/errors"
	"cascadedb/internal/logging"
)

// Page is a disk page resident in a buffer frame: its ID, its bytes, an
// outstanding pin count, and a dirty flag. A Page is valid only between
// the pin that produced it and the matching unpin/freePage.
type Page struct {
	ID       disk.PageID
	Data     []byte
	PinCount int
	Dirty    bool

	frame int
}

// Manager is the fixed-size buffer pool sitting atop a disk.Manager.
type Manager struct {
	disk     *disk.Manager
	pageSize int

	frames    []*Page
	pageTable map[disk.PageID]int
	freeList  []int

	policy ReplacementPolicy
	log    *logging.Logger
}

// NewManager builds a buffer pool of numFrames frames over d, evicting
// under the named replacement policy ("random", "lru", "mru", "clock").
func NewManager(d *disk.Manager, numFrames int, policyName string) *Manager {
	freeList := make([]int, numFrames)
	for i := range freeList {
		freeList[i] = numFrames - 1 - i
	}
	return &Manager{
		disk:      d,
		pageSize:  d.PageSize(),
		frames:    make([]*Page, numFrames),
		pageTable: make(map[disk.PageID]int, numFrames),
		freeList:  freeList,
		policy:    NewPolicy(policyName, numFrames),
		log:       logging.NewLogger("buffer"),
	}
}

// NumFrames returns the size of the pool.
func (m *Manager) NumFrames() int { return len(m.frames) }

// PageSize returns the fixed page size of the underlying disk manager.
func (m *Manager) PageSize() int { return m.pageSize }

// acquireFrame returns an index into m.frames ready to receive a new
// resident page, evicting (and flushing, if dirty) an unpinned victim when
// no frame is free.
func (m *Manager) acquireFrame() (int, error) {
	if n := len(m.freeList); n > 0 {
		f := m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
		return f, nil
	}
	victim := m.policy.PickVictim()
	if victim == -1 {
		return -1, kerrors.PoolExhausted()
	}
	old := m.frames[victim]
	if old != nil {
		if old.Dirty {
			if err := m.disk.WritePage(old.ID, old.Data); err != nil {
				return -1, err
			}
			m.log.Debug("evicted dirty page", "page", fmt.Sprint(old.ID), "frame", fmt.Sprint(victim))
		}
		delete(m.pageTable, old.ID)
		m.frames[victim] = nil
	}
	return victim, nil
}

// NewPage allocates a fresh disk page, zeroes its buffer, pins it once
// and marks it dirty.
func (m *Manager) NewPage() (*Page, error) {
	id, err := m.disk.AllocatePage()
	if err != nil {
		return nil, err
	}
	frame, err := m.acquireFrame()
	if err != nil {
		_ = m.disk.DeallocatePage(id)
		return nil, err
	}
	page := &Page{ID: id, Data: make([]byte, m.pageSize), PinCount: 1, Dirty: true, frame: frame}
	m.frames[frame] = page
	m.pageTable[id] = frame
	m.policy.StateChanged(frame, StatePinned)
	return page, nil
}

// FreePage drops a page pinned exactly once from the page table,
// deallocates its disk page and returns the frame to the free list.
func (m *Manager) FreePage(p *Page) error {
	if p.PinCount != 1 {
		return kerrors.PinCountMismatch(int32(p.ID), p.PinCount)
	}
	frame := p.frame
	delete(m.pageTable, p.ID)
	m.frames[frame] = nil
	if err := m.disk.DeallocatePage(p.ID); err != nil {
		return err
	}
	m.policy.StateChanged(frame, StateFree)
	m.freeList = append(m.freeList, frame)
	return nil
}

// PinPage returns the page for id, incrementing its pin count if already
// resident or reading it from disk into a free/evicted frame otherwise.
func (m *Manager) PinPage(id disk.PageID) (*Page, error) {
	if frame, ok := m.pageTable[id]; ok {
		page := m.frames[frame]
		if page.PinCount == 0 {
			m.policy.StateChanged(frame, StatePinned)
		}
		page.PinCount++
		return page, nil
	}

	frame, err := m.acquireFrame()
	if err != nil {
		return nil, err
	}
	data := make([]byte, m.pageSize)
	if err := m.disk.ReadPage(id, data); err != nil {
		m.freeList = append(m.freeList, frame)
		return nil, err
	}
	page := &Page{ID: id, Data: data, PinCount: 1, Dirty: false, frame: frame}
	m.frames[frame] = page
	m.pageTable[id] = frame
	m.policy.StateChanged(frame, StatePinned)
	return page, nil
}

// UnpinPage decrements p's pin count, optionally marking it dirty, and
// informs the replacement policy once the count reaches zero.
func (m *Manager) UnpinPage(p *Page, markDirty bool) error {
	if p.PinCount <= 0 {
		return kerrors.NewInvalidInputError(fmt.Sprintf("unpin on page %d with pin count 0", p.ID))
	}
	if markDirty {
		p.Dirty = true
	}
	p.PinCount--
	if p.PinCount == 0 {
		m.policy.StateChanged(p.frame, StateUnpinned)
	}
	return nil
}

// FlushPage writes p's bytes to disk if dirty and clears the dirty flag.
func (m *Manager) FlushPage(p *Page) error {
	if !p.Dirty {
		return nil
	}
	if err := m.disk.WritePage(p.ID, p.Data); err != nil {
		return err
	}
	p.Dirty = false
	return nil
}

// FlushAllPages flushes every resident page.
func (m *Manager) FlushAllPages() error {
	for _, p := range m.frames {
		if p == nil {
			continue
		}
		if err := m.FlushPage(p); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes every dirty page and closes the underlying disk manager.
func (m *Manager) Close() error {
	if err := m.FlushAllPages(); err != nil {
		return err
	}
	return m.disk.Close()
}
