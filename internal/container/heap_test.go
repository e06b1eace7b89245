package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxHeapPopsHighestPriorityFirst(t *testing.T) {
	h := NewMaxHeap[string]()
	h.PushEntry(Entry[string]{Key: "ab", Priority: 5, Version: 1})
	h.PushEntry(Entry[string]{Key: "cd", Priority: 20, Version: 1})
	h.PushEntry(Entry[string]{Key: "ef", Priority: 10, Version: 1})

	e, ok := h.PopEntry()
	assert.True(t, ok)
	assert.Equal(t, "cd", e.Key)

	e, ok = h.PopEntry()
	assert.True(t, ok)
	assert.Equal(t, "ef", e.Key)

	e, ok = h.PopEntry()
	assert.True(t, ok)
	assert.Equal(t, "ab", e.Key)

	_, ok = h.PopEntry()
	assert.False(t, ok)
}

func TestMinHeapPopsLowestPriorityFirst(t *testing.T) {
	h := NewMinHeap[string]()
	h.PushEntry(Entry[string]{Key: "hi", Priority: 5})
	h.PushEntry(Entry[string]{Key: "lo", Priority: -2})
	h.PushEntry(Entry[string]{Key: "mid", Priority: 1})

	e, _ := h.PopEntry()
	assert.Equal(t, "lo", e.Key)
	e, _ = h.PopEntry()
	assert.Equal(t, "mid", e.Key)
	e, _ = h.PopEntry()
	assert.Equal(t, "hi", e.Key)
}

func TestHeapPeekDoesNotRemove(t *testing.T) {
	h := NewMaxHeap[int]()
	h.PushEntry(Entry[int]{Key: 1, Priority: 3})
	top, ok := h.Peek()
	assert.True(t, ok)
	assert.Equal(t, 1, top.Key)
	assert.Equal(t, 1, h.Len())
}

func TestHeapIsEmpty(t *testing.T) {
	h := NewMaxHeap[int]()
	assert.True(t, h.IsEmpty())
	h.PushEntry(Entry[int]{Key: 1, Priority: 1})
	assert.False(t, h.IsEmpty())
}

// Staleness is the caller's responsibility (comparing Entry.Version against
// the authoritative index after Pop); the heap itself just preserves
// whatever Version each entry was pushed with.
func TestHeapPreservesVersionAcrossPops(t *testing.T) {
	h := NewMaxHeap[string]()
	h.PushEntry(Entry[string]{Key: "ab", Priority: 100, Version: 7})
	e, _ := h.PopEntry()
	assert.Equal(t, uint64(7), e.Version)
}
