package bpe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatticeHeadNextPrevWalkLiveNodes(t *testing.T) {
	var keepSet [256]bool
	for i := range keepSet {
		keepSet[i] = true
	}
	l := NewLattice("abc", keepSet, -1)

	head := l.Head()
	assert.Equal(t, int32('a'), l.ID(head))
	mid := l.Next(head)
	assert.Equal(t, int32('b'), l.ID(mid))
	tail := l.Next(mid)
	assert.Equal(t, int32('c'), l.ID(tail))
	assert.Equal(t, noIndex, l.Next(tail))
	assert.Equal(t, mid, l.Prev(tail))
	assert.Equal(t, noIndex, l.Prev(head))
}

func TestLatticeUnkeptByteBecomesUnkID(t *testing.T) {
	var keepSet [256]bool
	keepSet['a'] = true
	l := NewLattice("ab", keepSet, -1)

	assert.Equal(t, int32('a'), l.ID(l.Head()))
	assert.Equal(t, int32(-1), l.ID(l.Next(l.Head())))
}

func TestLatticeMergeFlagsRightDeletedAndRelinks(t *testing.T) {
	var keepSet [256]bool
	for i := range keepSet {
		keepSet[i] = true
	}
	l := NewLattice("abc", keepSet, -1)

	head := l.Head()
	right := l.Next(head)
	tail := l.Next(right)

	l.Merge(head, right, 256)
	assert.True(t, l.Deleted(right))
	assert.False(t, l.Deleted(head))
	assert.Equal(t, int32(256), l.ID(head))
	assert.Equal(t, tail, l.Next(head))
	assert.Equal(t, head, l.Prev(tail))
}

func TestLatticeLenCountsOnlyLiveNodes(t *testing.T) {
	var keepSet [256]bool
	for i := range keepSet {
		keepSet[i] = true
	}
	l := NewLattice("abc", keepSet, -1)
	assert.Equal(t, 3, l.Len())

	head := l.Head()
	right := l.Next(head)
	l.Merge(head, right, 256)
	assert.Equal(t, 2, l.Len())
}

func TestLatticeSweepCompactsDeletedNodesWithoutChangingLen(t *testing.T) {
	var keepSet [256]bool
	for i := range keepSet {
		keepSet[i] = true
	}
	l := NewLattice("abcd", keepSet, -1)

	head := l.Head()
	right := l.Next(head)
	l.Merge(head, right, 256) // "ab" -> one node; "c","d" remain

	beforeLen := l.Len()
	l.Sweep()
	assert.Equal(t, beforeLen, l.Len())
	assert.False(t, l.Deleted(l.Head()))

	var ids []int32
	for i := l.Head(); i != noIndex; i = l.Next(i) {
		ids = append(ids, l.ID(i))
	}
	assert.Equal(t, []int32{256, 'c', 'd'}, ids)
}

func TestLatticeForEachAdjacentVisitsEveryPairInOrder(t *testing.T) {
	var keepSet [256]bool
	for i := range keepSet {
		keepSet[i] = true
	}
	l := NewLattice("abc", keepSet, -1)

	var pairs [][2]int32
	l.ForEachAdjacent(func(left, right int) {
		pairs = append(pairs, [2]int32{l.ID(left), l.ID(right)})
	})
	assert.Equal(t, [][2]int32{{'a', 'b'}, {'b', 'c'}}, pairs)
}

func TestLatticeEmptyWordHasNoHead(t *testing.T) {
	var keepSet [256]bool
	l := NewLattice("", keepSet, -1)
	assert.Equal(t, noIndex, l.Head())
	assert.Equal(t, 0, l.Len())
}
