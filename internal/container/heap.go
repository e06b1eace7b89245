package container

import "container/heap"

// Entry is a single heap entry: a key, the priority it was pushed with, and
// the version stamp of the authoritative index at push time. Callers must
// treat an entry as stale once the index's current version for Key no
// longer matches Version, and discard it rather than trust Priority.
type Entry[K comparable] struct {
	Key      K
	Priority float64
	Version  uint64
}

// VersionedHeap is a binary heap over Entry values, ordered by Priority
// (max-heap or min-heap depending on construction). It never removes or
// updates entries in place — staleness is always detected lazily by the
// caller comparing Entry.Version against the authoritative index after a
// Pop, as the BPE trainer does against its pair index.
//
// This mirrors the container/heap.Interface pattern used for BPE-style
// merge candidate queues (see the teacher's sibling repos' use of
// container/heap for pair merging), generalized with a Version tag and a
// max/min switch so one implementation serves both orderings.
type VersionedHeap[K comparable] struct {
	items []Entry[K]
	max   bool
}

// NewMaxHeap builds an empty heap that pops the highest-priority entry
// first, used by BPE to rank pairs by frequency.
func NewMaxHeap[K comparable]() *VersionedHeap[K] {
	h := &VersionedHeap[K]{max: true}
	heap.Init(h)
	return h
}

// NewMinHeap builds an empty heap that pops the lowest-priority entry
// first. The Unigram trainer does not use it; it prunes by sorting.
func NewMinHeap[K comparable]() *VersionedHeap[K] {
	h := &VersionedHeap[K]{max: false}
	heap.Init(h)
	return h
}

func (h *VersionedHeap[K]) Len() int { return len(h.items) }

func (h *VersionedHeap[K]) Less(i, j int) bool {
	if h.items[i].Priority == h.items[j].Priority {
		return false
	}
	if h.max {
		return h.items[i].Priority > h.items[j].Priority
	}
	return h.items[i].Priority < h.items[j].Priority
}

func (h *VersionedHeap[K]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

// Push implements heap.Interface; use PushEntry from outside this package.
func (h *VersionedHeap[K]) Push(x any) {
	h.items = append(h.items, x.(Entry[K]))
}

// Pop implements heap.Interface; use PopEntry from outside this package.
func (h *VersionedHeap[K]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// PushEntry adds e to the heap.
func (h *VersionedHeap[K]) PushEntry(e Entry[K]) {
	heap.Push(h, e)
}

// PopEntry removes and returns the top entry. ok is false if the heap was
// empty.
func (h *VersionedHeap[K]) PopEntry() (e Entry[K], ok bool) {
	if h.Len() == 0 {
		return Entry[K]{}, false
	}
	return heap.Pop(h).(Entry[K]), true
}

// Peek returns the top entry without removing it.
func (h *VersionedHeap[K]) Peek() (e Entry[K], ok bool) {
	if h.Len() == 0 {
		return Entry[K]{}, false
	}
	return h.items[0], true
}

// IsEmpty reports whether the heap has no entries.
func (h *VersionedHeap[K]) IsEmpty() bool {
	return h.Len() == 0
}
