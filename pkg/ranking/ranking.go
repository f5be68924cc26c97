// Package ranking provides a bounded top-K accumulator over (key, weight)
// pairs. Tables live for a single aggregation batch; there is no
// cross-batch state.
package ranking

import (
	"container/heap"
)

// Entry is one ranked key with its accumulated weight and an optional
// secondary byte total.
type Entry struct {
	Key    string `json:"key"`
	Weight uint64 `json:"weight"`
	Bytes  uint64 `json:"bytes,omitempty"`

	seen int
}

// Table accumulates weights per key.
type Table struct {
	entries map[string]*Entry
	seq     int
}

func New() *Table {
	return &Table{entries: make(map[string]*Entry)}
}

// Add folds one observation into the table: weight is added to the key's
// accumulated weight and size to its byte total. The first observation of a
// key records its position for tie-breaking.
func (t *Table) Add(key string, weight, size uint64) {
	e, ok := t.entries[key]
	if !ok {
		e = &Entry{Key: key, seen: t.seq}
		t.seq++
		t.entries[key] = e
	}
	e.Weight += weight
	e.Bytes += size
}

// Len returns the number of distinct keys seen.
func (t *Table) Len() int {
	return len(t.entries)
}

// Top returns the k entries with the greatest accumulated weight in
// descending order. Ties go to the key observed first, so the result is
// deterministic regardless of map iteration order. Selection runs in
// O(n log k) via a k-sized min-heap.
func (t *Table) Top(k int) []Entry {
	if k <= 0 || len(t.entries) == 0 {
		return nil
	}
	h := make(entryHeap, 0, k)
	for _, e := range t.entries {
		if len(h) < k {
			heap.Push(&h, e)
			continue
		}
		if beats(e, h[0]) {
			h[0] = e
			heap.Fix(&h, 0)
		}
	}
	res := make([]Entry, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		res[i] = *heap.Pop(&h).(*Entry)
	}
	return res
}

// beats reports whether a outranks b.
func beats(a, b *Entry) bool {
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	return a.seen < b.seen
}

// entryHeap is a min-heap by rank: the root is the lowest-ranked entry,
// the eviction candidate.
type entryHeap []*Entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return beats(h[j], h[i]) }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(*Entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
