// Package querycache is a small keyed query cache with an explicit
// dependency table. Invalidating a root marks its registered dependents stale
// without touching the root itself.
package querycache

import (
	"sync"
)

// Invalidator is anything the cache can mark stale.
type Invalidator interface {
	Invalidate()
}

// Cache tracks queries by key and the dependents of each root key.
type Cache struct {
	mu      sync.Mutex
	queries map[string]Invalidator
	deps    map[string][]string
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{
		queries: make(map[string]Invalidator),
		deps:    make(map[string][]string),
	}
}

// Register adds q under key, replacing any previous query with that key.
func (c *Cache) Register(key string, q Invalidator) {
	c.mu.Lock()
	c.queries[key] = q
	c.mu.Unlock()
}

// Unregister removes the query under key. Dependency edges are kept.
func (c *Cache) Unregister(key string) {
	c.mu.Lock()
	delete(c.queries, key)
	c.mu.Unlock()
}

// DependOn records that each dependent must be invalidated when root
// changes. Duplicate edges are ignored and a key never depends on itself.
func (c *Cache) DependOn(root string, dependents ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing := c.deps[root]
	for _, d := range dependents {
		if d == root || contains(existing, d) {
			continue
		}
		existing = append(existing, d)
	}
	c.deps[root] = existing
}

// Dependents returns the dependents of root in registration order.
func (c *Cache) Dependents(root string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.deps[root]))
	copy(out, c.deps[root])
	return out
}

// Invalidate marks the query under key stale. It reports whether a query
// was registered under key.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	q, ok := c.queries[key]
	c.mu.Unlock()
	if ok {
		q.Invalidate()
	}
	return ok
}

// InvalidateDependents invalidates every registered dependent of root and
// returns their keys in order. Dependents without a registered query are
// skipped. Root is never invalidated.
func (c *Cache) InvalidateDependents(root string) []string {
	c.mu.Lock()
	keys := c.deps[root]
	targets := make([]Invalidator, 0, len(keys))
	invalidated := make([]string, 0, len(keys))
	for _, k := range keys {
		if q, ok := c.queries[k]; ok {
			targets = append(targets, q)
			invalidated = append(invalidated, k)
		}
	}
	c.mu.Unlock()

	for _, q := range targets {
		q.Invalidate()
	}
	return invalidated
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
