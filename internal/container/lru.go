package container

import (
	lru "github.com/hashicorp/golang-lru"
)

// Miss is the sentinel value IntLRU.Get returns on a cache miss, matching
// the -1-means-absent convention used throughout the training engines'
// caches (see the teacher's Cache field on GPTEncoder, which wraps the
// same library's ARC variant for string decoding; this cache uses the
// library's plain LRU policy instead, since per-sentence loss memoization
// needs only recency, not the ARC ghost-list frequency tracking).
const Miss int64 = -1

// IntLRU is a fixed-capacity, integer-keyed, integer-valued LRU cache. It
// is used to memoize per-sentence segmentation loss during Unigram
// training.
type IntLRU struct {
	cache *lru.Cache
}

// NewIntLRU builds a cache holding at most capacity entries.
func NewIntLRU(capacity int) *IntLRU {
	c, err := lru.New(capacity)
	if err != nil {
		// Only returns an error for capacity <= 0.
		c, _ = lru.New(1)
	}
	return &IntLRU{cache: c}
}

// Get returns the cached value for key, or Miss if absent. A hit refreshes
// key's recency.
func (l *IntLRU) Get(key uint64) int64 {
	v, ok := l.cache.Get(key)
	if !ok {
		return Miss
	}
	return v.(int64)
}

// Put inserts or updates the value for key, evicting the least-recently-used
// entry first if the cache is at capacity.
func (l *IntLRU) Put(key uint64, value int64) {
	l.cache.Add(key, value)
}

// Len reports the number of entries currently cached.
func (l *IntLRU) Len() int {
	return l.cache.Len()
}
