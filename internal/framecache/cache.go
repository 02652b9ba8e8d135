// Package framecache holds loaded frame images for a viewing session and
// answers nearest-frame fallback queries against them.
package framecache

import (
	"sort"
	"sync"
)

// Cache maps resource identifiers to loaded image handles.
//
// Entries are never evicted: presence is the only "is loaded" signal and it is
// monotonic for the lifetime of the session. The cache also records
// identifiers whose load terminally failed and the runs confirmed fully loaded.
type Cache[T any] struct {
	mu         sync.RWMutex
	entries    map[string]T
	failed     map[string]struct{}
	loadedRuns map[int]struct{}
}

// Stats is a point-in-time summary of cache contents.
type Stats struct {
	Entries    int
	Failed     int
	LoadedRuns int
}

// New returns an empty cache.
func New[T any]() *Cache[T] {
	return &Cache[T]{
		entries:    make(map[string]T),
		failed:     make(map[string]struct{}),
		loadedRuns: make(map[int]struct{}),
	}
}

// Has reports whether id has a loaded handle.
func (c *Cache[T]) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[id]
	return ok
}

// Get returns the handle for id.
func (c *Cache[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.entries[id]
	return value, ok
}

// Put stores a handle. The first write wins; later writes for the same id are
// no-ops so a handle never changes once observed. Reports whether it stored.
func (c *Cache[T]) Put(id string, value T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; ok {
		return false
	}
	c.entries[id] = value
	delete(c.failed, id)
	return true
}

// MarkFailed records that id could not be loaded.
func (c *Cache[T]) MarkFailed(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; ok {
		return
	}
	c.failed[id] = struct{}{}
}

// Failed reports whether a load for id terminally failed.
func (c *Cache[T]) Failed(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.failed[id]
	return ok
}

// Settled reports whether id is either loaded or known to have failed.
func (c *Cache[T]) Settled(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.entries[id]; ok {
		return true
	}
	_, ok := c.failed[id]
	return ok
}

// Len returns the number of loaded handles.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// MarkRunLoaded adds a run index to the loaded-runs set.
func (c *Cache[T]) MarkRunLoaded(run int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadedRuns[run] = struct{}{}
}

// RunLoaded reports whether every frame of the run is confirmed present.
func (c *Cache[T]) RunLoaded(run int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.loadedRuns[run]
	return ok
}

// LoadedRuns returns the loaded run indices in ascending order.
func (c *Cache[T]) LoadedRuns() []int {
	c.mu.RLock()
	out := make([]int, 0, len(c.loadedRuns))
	for run := range c.loadedRuns {
		out = append(out, run)
	}
	c.mu.RUnlock()
	sort.Ints(out)
	return out
}

// Stats summarizes the cache.
func (c *Cache[T]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Entries:    len(c.entries),
		Failed:     len(c.failed),
		LoadedRuns: len(c.loadedRuns),
	}
}
