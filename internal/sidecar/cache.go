// Package sidecar implements the read-side co-process: an in-memory view of
// a parameter manifest, refreshed in the background and served over a local
// HTTP API so applications can read parameters without store credentials.
package sidecar

import (
	"sort"
	"sync"
	"time"
)

// Cache is a concurrency-safe snapshot of resolved parameter values.
// Readers see the last successful refresh; a failed refresh leaves the
// previous snapshot in place (serve-stale).
type Cache struct {
	mu          sync.RWMutex
	values      map[string]string
	refreshedAt time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		values: make(map[string]string),
	}
}

// SetAll atomically replaces the snapshot and stamps the refresh time.
// The input map is copied; the caller may keep mutating it.
func (c *Cache) SetAll(values map[string]string) {
	copied := make(map[string]string, len(values))
	for name, value := range values {
		copied[name] = value
	}

	c.mu.Lock()
	c.values = copied
	c.refreshedAt = time.Now().UTC()
	c.mu.Unlock()
}

// Value returns the cached value for name.
func (c *Cache) Value(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.values[name]
	return value, ok
}

// Names returns the cached parameter names, sorted.
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of cached parameters.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// RefreshedAt returns the time of the last successful refresh, zero if none
// has completed yet.
func (c *Cache) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}
