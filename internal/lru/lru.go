// Package lru is a fixed-capacity, array-backed least-recently-used
// cache. It favors O(n) linear scans over a doubly-linked list because
// the entry counts it is sized for in this codebase (cindexd's cache of
// recent symbol-search results) are small enough that a linked list's
// pointer-chasing is slower in practice.
//
// Grounded on original_source/src/lru_cache.h: a monotonic score
// counter stamps the most recently touched entry, eviction picks the
// lowest score, and a uint32 score overflow triggers a renumbering
// pass rather than wrapping.
package lru

import "sort"

type entry[K comparable, V any] struct {
	score uint32
	key   K
	value V
}

// Cache is a generic LRU cache bounded to maxEntries.
type Cache[K comparable, V any] struct {
	entries    []entry[K, V]
	maxEntries int
	nextScore  uint32
}

// New returns an empty Cache holding at most maxEntries entries.
// maxEntries must be positive.
func New[K comparable, V any](maxEntries int) *Cache[K, V] {
	if maxEntries <= 0 {
		panic("lru: maxEntries must be positive")
	}
	return &Cache[K, V]{maxEntries: maxEntries}
}

// Get returns the cached value for key, calling allocate and inserting
// its result if key is not already present.
func (c *Cache[K, V]) Get(key K, allocate func() V) V {
	if v, ok := c.TryGet(key); ok {
		return v
	}
	v := allocate()
	c.Insert(key, v)
	return v
}

// TryGet returns the cached value for key and bumps its score, without
// allocating a new entry on a miss.
func (c *Cache[K, V]) TryGet(key K) (V, bool) {
	for i := range c.entries {
		if c.entries[i].key == key {
			c.incrementScore()
			// A renumber inside incrementScore may have reordered entries.
			if c.entries[i].key != key {
				for i = range c.entries {
					if c.entries[i].key == key {
						break
					}
				}
			}
			c.entries[i].score = c.nextScore
			return c.entries[i].value, true
		}
	}
	var zero V
	return zero, false
}

// TryTake removes and returns the cached value for key, if present.
func (c *Cache[K, V]) TryTake(key K) (V, bool) {
	for i := range c.entries {
		if c.entries[i].key == key {
			v := c.entries[i].value
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return v, true
		}
	}
	var zero V
	return zero, false
}

// Insert adds key/value, evicting the lowest-scored entry first if the
// cache is already at capacity.
func (c *Cache[K, V]) Insert(key K, value V) {
	if len(c.entries) >= c.maxEntries {
		lowestIdx := 0
		lowestScore := c.entries[0].score
		for i, e := range c.entries {
			if e.score < lowestScore {
				lowestIdx, lowestScore = i, e.score
			}
		}
		c.entries = append(c.entries[:lowestIdx], c.entries[lowestIdx+1:]...)
	}

	c.incrementScore()
	c.entries = append(c.entries, entry[K, V]{score: c.nextScore, key: key, value: value})
}

// Len reports the number of entries currently cached.
func (c *Cache[K, V]) Len() int { return len(c.entries) }

// incrementScore bumps the monotonic counter. On uint32 overflow it
// sorts the entries by ascending score and renumbers them from zero, so
// relative recency survives the wrap.
func (c *Cache[K, V]) incrementScore() {
	c.nextScore++
	if c.nextScore != 0 {
		return
	}
	sort.Slice(c.entries, func(i, j int) bool {
		return c.entries[i].score < c.entries[j].score
	})
	for i := range c.entries {
		c.entries[i].score = c.nextScore
		c.nextScore++
	}
}
