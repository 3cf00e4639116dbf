package cache

import (
	"sync"
	"time"
)

// Cache is a TTL-bounded cache with lazy expiry.
//
// Entries expire ttl after they were stored; expired entries are
// dropped on access. A zero or negative ttl disables storage, so every
// lookup misses.
type Cache[K comparable, V any] struct {
	mu sync.Mutex

	ttl     time.Duration
	entries map[K]entry[V]
}

type entry[V any] struct {
	value   V
	expires time.Time
}

// New creates a cache whose entries live for ttl.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		ttl:     ttl,
		entries: make(map[K]entry[V]),
	}
}

// Get returns the cached value for key if present and not expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores value under key. It is a no-op when the cache is disabled.
func (c *Cache[K, V]) Put(key K, value V) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{
		value:   value,
		expires: time.Now().Add(c.ttl),
	}
}

// Delete removes key from the cache.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Purge removes all entries.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]entry[V])
}

// Len returns the number of stored entries, including any that have
// expired but not yet been swept by a lookup.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
