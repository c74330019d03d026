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

// rsEntry is one record resident in the replacement-selection heap,
// tagged with the run number it belongs to: the active run (tag ==
// currentRun) or the frozen run-in-waiting (tag == currentRun+1).
type rsEntry struct {
	tag int64
	rec []byte
}

// rsHeap orders entries first by run tag (active before frozen) and,
// within a tag, by the caller's record comparator. container/heap always
// pops the lowest tag with the smallest record first, which is exactly
// replacement selection's "drain the active run in sorted order, then
// roll over to the frozen run" behavior.
type rsHeap struct {
	entries []rsEntry
	cmp     Comparator
}

func (h *rsHeap) Len() int { return len(h.entries) }

func (h *rsHeap) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	if a.tag != b.tag {
		return a.tag < b.tag
	}
	return h.cmp(a.rec, b.rec) < 0
}

func (h *rsHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

func (h *rsHeap) Push(x any) {
	h.entries = append(h.entries, x.(rsEntry))
}

func (h *rsHeap) Pop() any {
	n := len(h.entries)
	e := h.entries[n-1]
	h.entries = h.entries[:n-1]
	return e
}
