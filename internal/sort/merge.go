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
	"strconv"

	"cascadedb/internal/storage/buffer"
)

// mergeSource is one leaf of the tournament tree: a run scan and its
// current head record, primed by advance.
type mergeSource struct {
	scan *runScan
	cur  []byte
	done bool
}

func (s *mergeSource) advance() error {
	rec, ok, err := s.scan.Next()
	if err != nil {
		return err
	}
	if !ok {
		s.cur = nil
		s.done = true
		return nil
	}
	s.cur = rec
	return nil
}

// sourceLess reports whether source a should win (emit before) source b.
// A finished source compares as +infinity so it never wins until every
// other source is also finished.
func sourceLess(sources []*mergeSource, a, b int, cmp Comparator) bool {
	sa, sb := sources[a], sources[b]
	if sa.done {
		return false
	}
	if sb.done {
		return true
	}
	return cmp(sa.cur, sb.cur) <= 0
}

// loserNode is one node of the tree-of-losers: a leaf holds a fixed
// source index, an internal node caches the index of the losing source
// from its last play so that next() only needs to replay the path from
// the previous winner's leaf up to the root.
type loserNode struct {
	parent      *loserNode
	left, right *loserNode
	leafIdx     int // >= 0 for leaves, -1 for internal nodes
	winner      int
	loser       int
}

// loserTree drives a k-way merge of mergeSources using a balanced binary
// tournament: each next() call re-plays only the O(log k) nodes on the
// path from the previously-returned leaf to the root.
type loserTree struct {
	root    *loserNode
	leaves  []*loserNode
	sources []*mergeSource
	cmp     Comparator
}

func buildLoserTree(sources []*mergeSource, cmp Comparator) *loserTree {
	leaves := make([]*loserNode, len(sources))
	for i := range sources {
		leaves[i] = &loserNode{leafIdx: i, winner: i}
	}
	t := &loserTree{leaves: leaves, sources: sources, cmp: cmp}
	t.root = buildBalanced(leaves)
	t.playAll(t.root)
	return t
}

// buildBalanced pairs off nodes two at a time until one remains, giving
// a tree whose leaf depths differ by at most one regardless of k.
func buildBalanced(nodes []*loserNode) *loserNode {
	level := nodes
	for len(level) > 1 {
		var next []*loserNode
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			parent := &loserNode{leafIdx: -1}
			level[i].parent = parent
			level[i+1].parent = parent
			parent.left, parent.right = level[i], level[i+1]
			next = append(next, parent)
		}
		level = next
	}
	return level[0]
}

func (t *loserTree) playAll(n *loserNode) {
	if n.leafIdx >= 0 {
		return
	}
	t.playAll(n.left)
	t.playAll(n.right)
	t.play(n)
}

func (t *loserTree) play(n *loserNode) {
	lw, rw := n.left.winner, n.right.winner
	if sourceLess(t.sources, lw, rw, t.cmp) {
		n.winner, n.loser = lw, rw
	} else {
		n.winner, n.loser = rw, lw
	}
}

// next returns the current overall winner's record, advances that
// source, and replays the path from its leaf to the root. Returns
// ok=false once every source is exhausted.
func (t *loserTree) next() ([]byte, bool, error) {
	winIdx := t.root.winner
	if t.sources[winIdx].done {
		return nil, false, nil
	}
	rec := t.sources[winIdx].cur
	if err := t.sources[winIdx].advance(); err != nil {
		return nil, false, err
	}
	for n := t.leaves[winIdx].parent; n != nil; n = n.parent {
		t.play(n)
	}
	return rec, true, nil
}

// mergeOnce merges the given runs into a single run in one streaming
// pass, freeing each input page as it is consumed.
func mergeOnce(bm *buffer.Manager, runs []Run, recordWidth int, cmp Comparator, spill spillOptions) (Run, error) {
	sources := make([]*mergeSource, len(runs))
	for i, r := range runs {
		scan, err := newRunScan(bm, r.First, recordWidth, true, spill)
		if err != nil {
			return Run{}, err
		}
		sources[i] = &mergeSource{scan: scan}
		if err := sources[i].advance(); err != nil {
			return Run{}, err
		}
	}
	tree := buildLoserTree(sources, cmp)

	writer, err := newRunWriter(bm, recordWidth, spill)
	if err != nil {
		return Run{}, err
	}
	for {
		rec, ok, err := tree.next()
		if err != nil {
			return Run{}, err
		}
		if !ok {
			break
		}
		if err := writer.append(rec); err != nil {
			return Run{}, err
		}
	}
	return writer.finish()
}

// mergeRuns reduces runs to a single sorted run, merging at most maxFanIn
// runs at a time so the number of concurrently open run scans never
// exceeds what the buffer pool can hold pinned.
func mergeRuns(bm *buffer.Manager, runs []Run, recordWidth int, cmp Comparator, maxFanIn int, spill spillOptions) (Run, error) {
	for len(runs) > 1 {
		var next []Run
		for i := 0; i < len(runs); i += maxFanIn {
			end := i + maxFanIn
			if end > len(runs) {
				end = len(runs)
			}
			group := runs[i:end]
			if len(group) == 1 {
				next = append(next, group[0])
				continue
			}
			merged, err := mergeOnce(bm, group, recordWidth, cmp, spill)
			if err != nil {
				return Run{}, err
			}
			next = append(next, merged)
		}
		log.Debug("merge pass complete", "runsIn", strconv.Itoa(len(runs)), "runsOut", strconv.Itoa(len(next)))
		runs = next
	}
	return runs[0], nil
}
