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
Package sort implements the external sort operator: replacement
selection over an input iterator to produce initial runs, and a
tournament (loser) tree to merge those runs into one, spilling through
the buffer manager's page pool rather than main memory.
*/
package sort

import (
	"cascadedb/internal/codec"
	"cascadedb/internal/compression"
	kerrors "cascadedb/internal/errors"
	"cascadedb/internal/storage/buffer"
	"cascadedb/internal/storage/disk"
)

// runHeaderSize is the byte width of a run page's header: a 4-byte
// next-page ID, a 2-byte record count, a 1-byte compression algorithm
// tag, and a 2-byte compressed payload length (meaningful only when the
// algorithm tag is not compression.AlgorithmNone).
const runHeaderSize = 9

// Run is a materialized, append-only-then-read-only chain of run pages.
type Run struct {
	First disk.PageID
	Count int64
}

func recordsPerPage(pageSize, recordWidth int) int {
	return (pageSize - runHeaderSize) / recordWidth
}

func writeRunHeader(buf []byte, next disk.PageID, count int16, algo compression.Algorithm, compLen int16) {
	codec.WriteInt32(buf, 0, int32(next))
	codec.WriteInt16(buf, 4, count)
	codec.WriteByte(buf, 6, int8(algo))
	codec.WriteInt16(buf, 7, compLen)
}

func readRunHeader(buf []byte) (next disk.PageID, count int16, algo compression.Algorithm, compLen int16) {
	next = disk.PageID(codec.ReadInt32(buf, 0))
	count = codec.ReadInt16(buf, 4)
	algo = compression.Algorithm(codec.ReadByte(buf, 6))
	compLen = codec.ReadInt16(buf, 7)
	return next, count, algo, compLen
}

// runWriter appends fixed-width records to a chain of run pages,
// allocating pages from the buffer pool on demand. When comp is
// non-nil and a page's raw record bytes exceed spillThreshold, the
// page is sealed through the compression layer instead of spooled
// verbatim whenever the compressed form is smaller. Compression only
// shrinks the bytes a page carries; a page still holds at most the
// uncompressed layout's record capacity.
type runWriter struct {
	bm          *buffer.Manager
	recordWidth int
	capacity    int

	comp           *compression.Compressor
	algo           compression.Algorithm
	spillThreshold int

	first    disk.PageID
	cur      *buffer.Page
	curCount int16
	total    int64
}

func newRunWriter(bm *buffer.Manager, recordWidth int, spill spillOptions) (*runWriter, error) {
	capacity := recordsPerPage(bm.PageSize(), recordWidth)
	if capacity < 1 {
		return nil, kerrors.NewInvalidInputError("record width too large for a run page")
	}
	w := &runWriter{bm: bm, recordWidth: recordWidth, capacity: capacity, first: disk.InvalidPageID}
	if spill.Compressor != nil {
		w.comp = spill.Compressor
		w.algo = spill.Algorithm
		w.spillThreshold = spill.Threshold
	}
	return w, nil
}

// sealPage writes the current page's header, compressing its record
// bytes in place when they exceed spillThreshold, and unpins it dirty.
func (w *runWriter) sealPage(next disk.PageID) error {
	algo := compression.AlgorithmNone
	var compLen int16
	if w.comp != nil && int(w.curCount)*w.recordWidth > w.spillThreshold {
		raw := w.cur.Data[runHeaderSize : runHeaderSize+int(w.curCount)*w.recordWidth]
		framed, err := w.comp.Compress(raw)
		if err != nil {
			return err
		}
		if len(framed) < len(raw) {
			copy(w.cur.Data[runHeaderSize:], framed)
			algo = w.algo
			compLen = int16(len(framed))
		}
	}
	writeRunHeader(w.cur.Data, next, w.curCount, algo, compLen)
	return w.bm.UnpinPage(w.cur, true)
}

// append writes rec to the current run page, rolling over to a newly
// allocated page (and linking the old page's next-page field) once the
// current page is full.
func (w *runWriter) append(rec []byte) error {
	if w.cur == nil {
		page, err := w.bm.NewPage()
		if err != nil {
			return err
		}
		w.cur = page
		w.first = page.ID
		w.curCount = 0
	} else if int(w.curCount) >= w.capacity {
		next, err := w.bm.NewPage()
		if err != nil {
			return err
		}
		if err := w.sealPage(next.ID); err != nil {
			return err
		}
		w.cur = next
		w.curCount = 0
	}
	off := runHeaderSize + int(w.curCount)*w.recordWidth
	copy(w.cur.Data[off:off+w.recordWidth], rec)
	w.curCount++
	w.total++
	return nil
}

// finish closes the run, writing the final page's header, and returns
// the completed Run descriptor.
func (w *runWriter) finish() (Run, error) {
	if w.cur != nil {
		if err := w.sealPage(disk.InvalidPageID); err != nil {
			return Run{}, err
		}
		w.cur = nil
	}
	return Run{First: w.first, Count: w.total}, nil
}

// runScan iterates the records of a Run in page order. When freeConsumed
// is set, each page is deallocated as soon as it has been fully read,
// so that scanning a run to completion leaves no pages behind.
type runScan struct {
	bm           *buffer.Manager
	recordWidth  int
	freeConsumed bool
	comp         *compression.Compressor

	cur     *buffer.Page
	records []byte // the page's record bytes, decompressed if the page was sealed compressed
	pos     int
	count   int16
	next    disk.PageID
	started bool
}

func newRunScan(bm *buffer.Manager, first disk.PageID, recordWidth int, freeConsumed bool, spill spillOptions) (*runScan, error) {
	return &runScan{bm: bm, recordWidth: recordWidth, freeConsumed: freeConsumed, comp: spill.Compressor, next: first}, nil
}

func (s *runScan) advancePage() error {
	if s.cur != nil {
		if s.freeConsumed {
			if err := s.bm.FreePage(s.cur); err != nil {
				return err
			}
		} else if err := s.bm.UnpinPage(s.cur, false); err != nil {
			return err
		}
		s.cur = nil
		s.records = nil
	}
	if s.next == disk.InvalidPageID {
		return nil
	}
	page, err := s.bm.PinPage(s.next)
	if err != nil {
		return err
	}
	next, count, algo, compLen := readRunHeader(page.Data)
	if algo == compression.AlgorithmNone {
		s.records = page.Data[runHeaderSize : runHeaderSize+int(count)*s.recordWidth]
	} else {
		if s.comp == nil {
			return kerrors.NewInvariantError("run page is compressed but no decompressor was configured for this scan")
		}
		framed := page.Data[runHeaderSize : runHeaderSize+int(compLen)]
		raw, err := s.comp.Decompress(framed, algo)
		if err != nil {
			return err
		}
		s.records = raw
	}
	s.cur = page
	s.pos = 0
	s.count = count
	s.next = next
	return nil
}

// Next returns the run's next record, or ok=false once exhausted.
func (s *runScan) Next() ([]byte, bool, error) {
	if !s.started {
		s.started = true
		if err := s.advancePage(); err != nil {
			return nil, false, err
		}
	}
	for s.cur != nil && s.pos >= int(s.count) {
		if err := s.advancePage(); err != nil {
			return nil, false, err
		}
	}
	if s.cur == nil {
		return nil, false, nil
	}
	off := s.pos * s.recordWidth
	rec := make([]byte, s.recordWidth)
	copy(rec, s.records[off:off+s.recordWidth])
	s.pos++
	return rec, true, nil
}

// Close releases any page still held by the scan without consuming it.
func (s *runScan) Close() error {
	if s.cur == nil {
		return nil
	}
	if s.freeConsumed {
		return s.bm.FreePage(s.cur)
	}
	return s.bm.UnpinPage(s.cur, false)
}
