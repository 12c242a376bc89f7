// Package cache memoizes answer payloads keyed by normalized query text.
// Entries live for the process lifetime; the pipeline invalidates the whole
// cache whenever the knowledge base mutates, since stale answers referencing
// removed content are a correctness bug.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// QueryCache is a mutex-guarded map from normalized query keys to payloads.
// Safe for concurrent use by multiple request goroutines.
type QueryCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
}

// New creates an empty QueryCache.
func New[V any]() *QueryCache[V] {
	return &QueryCache[V]{entries: make(map[string]V)}
}

// Get returns the cached payload for query, if any. Queries differing only
// in case or surrounding whitespace share an entry.
func (c *QueryCache[V]) Get(query string) (V, bool) {
	key := Key(query)

	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores the payload for query.
func (c *QueryCache[V]) Put(query string, payload V) {
	key := Key(query)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = payload
}

// InvalidateAll drops every entry. Must be called on any knowledge-base
// mutation (ingest, delete, reset).
func (c *QueryCache[V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]V)
}

// Len returns the number of cached entries.
func (c *QueryCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Key derives the fixed-width cache key: SHA-256 of the lowercased, trimmed
// query.
func Key(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
