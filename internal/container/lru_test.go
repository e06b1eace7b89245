package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntLRUMissReturnsSentinel(t *testing.T) {
	c := NewIntLRU(2)
	assert.Equal(t, Miss, c.Get(1))
}

func TestIntLRUPutGet(t *testing.T) {
	c := NewIntLRU(2)
	c.Put(1, 100)
	assert.Equal(t, int64(100), c.Get(1))
}

func TestIntLRULenReflectsEntryCountUpToCapacity(t *testing.T) {
	c := NewIntLRU(2)
	assert.Equal(t, 0, c.Len())
	c.Put(1, 10)
	assert.Equal(t, 1, c.Len())
	c.Put(2, 20)
	assert.Equal(t, 2, c.Len())
	c.Put(3, 30) // evicts 1, capacity holds steady
	assert.Equal(t, 2, c.Len())
}

func TestIntLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewIntLRU(2)
	c.Put(1, 10)
	c.Put(2, 20)
	// Touch 1 so it's more recently used than 2.
	c.Get(1)
	c.Put(3, 30)
	assert.Equal(t, Miss, c.Get(2))
	assert.Equal(t, int64(10), c.Get(1))
	assert.Equal(t, int64(30), c.Get(3))
}
