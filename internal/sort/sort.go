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
	"container/heap"
	"strconv"

	"cascadedb/internal/compression"
	kerrors "cascadedb/internal/errors"
	"cascadedb/internal/logging"
	"cascadedb/internal/storage/buffer"
)

// Comparator orders two fixed-width records, returning <0, 0 or >0 the
// way bytes.Compare does.
type Comparator func(a, b []byte) int

// Iterator yields fixed-width records until exhausted. Implementations
// are expected to wrap a heap-file scan or similar upstream operator;
// the external sort only ever calls Next.
type Iterator interface {
	Next() ([]byte, bool, error)
}

// SliceIterator adapts an in-memory slice of records to Iterator, used
// by callers (and tests) that already have their input materialized.
type SliceIterator struct {
	records [][]byte
	pos     int
}

// NewSliceIterator wraps records for sequential consumption.
func NewSliceIterator(records [][]byte) *SliceIterator {
	return &SliceIterator{records: records}
}

// Next returns the iterator's records in order.
func (s *SliceIterator) Next() ([]byte, bool, error) {
	if s.pos >= len(s.records) {
		return nil, false, nil
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, true, nil
}

// Config parameterizes one Sort call.
type Config struct {
	// RecordWidth is the fixed byte width of every record.
	RecordWidth int

	// HeapSize is M, the replacement-selection heap capacity in records.
	// Expected initial-run length is ~2*HeapSize.
	HeapSize int

	// MaxMergeFanIn bounds how many runs are merged concurrently in one
	// pass, matching the number of run scans the buffer pool can hold
	// open simultaneously (pool size minus the output writer's frame and
	// a small reserve).
	MaxMergeFanIn int

	// Compression, when its Algorithm is not compression.AlgorithmNone
	// and SpillThreshold is positive, seals a run page through the
	// compression layer instead of spooling it verbatim once the page's
	// raw record bytes exceed SpillThreshold. The zero value disables
	// spill compression entirely.
	Compression    compression.Config
	SpillThreshold int
}

// spillOptions is the resolved, ready-to-use form of Config's
// compression fields, threaded down to the run writers and scans that
// actually touch page bytes.
type spillOptions struct {
	Compressor *compression.Compressor
	Algorithm  compression.Algorithm
	Threshold  int
}

func newSpillOptions(cfg Config) spillOptions {
	if cfg.Compression.Algorithm == compression.AlgorithmNone || cfg.SpillThreshold <= 0 {
		return spillOptions{}
	}
	return spillOptions{
		Compressor: compression.NewCompressor(cfg.Compression),
		Algorithm:  cfg.Compression.Algorithm,
		Threshold:  cfg.SpillThreshold,
	}
}

var log = logging.NewLogger("sort")

// Sort drains input through replacement selection into a set of sorted
// initial runs, then merges them down to a single run via a tournament
// (tree-of-losers) multi-way merge, spilling through bm throughout. The
// returned Run's pages are owned by the caller, who must consume them to
// completion (freeing each page as it is read) to avoid leaking frames.
func Sort(bm *buffer.Manager, input Iterator, cmp Comparator, cfg Config) (Run, error) {
	if cfg.RecordWidth <= 0 {
		return Run{}, kerrors.NewInvalidInputError("sort record width must be positive")
	}
	if cfg.HeapSize < 1 {
		return Run{}, kerrors.NewInvalidInputError("replacement-selection heap must hold at least one record")
	}
	if cfg.MaxMergeFanIn < 2 {
		cfg.MaxMergeFanIn = 2
	}

	spill := newSpillOptions(cfg)
	if spill.Compressor != nil {
		log.Debug("spill compression enabled", "algorithm", spill.Algorithm.String(), "threshold", strconv.Itoa(spill.Threshold))
	}

	runs, err := buildInitialRuns(bm, input, cfg.RecordWidth, cmp, cfg.HeapSize, spill)
	if err != nil {
		return Run{}, err
	}
	log.Debug("replacement selection produced initial runs", "count", strconv.Itoa(len(runs)))
	if len(runs) == 0 {
		return Run{First: -1, Count: 0}, nil
	}
	if len(runs) == 1 {
		return runs[0], nil
	}
	return mergeRuns(bm, runs, cfg.RecordWidth, cmp, cfg.MaxMergeFanIn, spill)
}

// buildInitialRuns implements the replacement-selection algorithm of
// spec §4.7(1): a heap of capacity heapSize is kept full from input for
// as long as input has records; records that would break the current
// run's non-decreasing order are frozen for the next run instead of
// being emitted early.
func buildInitialRuns(bm *buffer.Manager, input Iterator, recordWidth int, cmp Comparator, heapSize int, spill spillOptions) ([]Run, error) {
	h := &rsHeap{cmp: cmp}
	for h.Len() < heapSize {
		rec, ok, err := input.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		heap.Push(h, rsEntry{tag: 0, rec: rec})
	}

	var runs []Run
	var writer *runWriter
	currentRun := int64(0)
	var lastEmitted []byte

	for h.Len() > 0 {
		top := heap.Pop(h).(rsEntry)
		if writer == nil || top.tag != currentRun {
			if writer != nil {
				run, err := writer.finish()
				if err != nil {
					return nil, err
				}
				runs = append(runs, run)
			}
			currentRun = top.tag
			var err error
			writer, err = newRunWriter(bm, recordWidth, spill)
			if err != nil {
				return nil, err
			}
		}
		if err := writer.append(top.rec); err != nil {
			return nil, err
		}
		lastEmitted = top.rec

		rec, ok, err := input.Next()
		if err != nil {
			return nil, err
		}
		if ok {
			tag := currentRun
			if cmp(rec, lastEmitted) < 0 {
				tag = currentRun + 1
			}
			heap.Push(h, rsEntry{tag: tag, rec: rec})
		}
	}

	if writer != nil {
		run, err := writer.finish()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}
