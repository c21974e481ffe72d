package resolve

import (
	"sync"

	"media-datesync/internal/extract"
)

// DateCache holds resolved dates for the directory currently on screen.
// Reads run concurrently; a later write for the same path replaces the
// earlier one. Tool errors are never stored so they are retried on the next
// pass.
type DateCache struct {
	mu      sync.RWMutex
	dir     string
	entries map[string]extract.Result
}

// NewDateCache creates an empty cache
func NewDateCache() *DateCache {
	return &DateCache{entries: make(map[string]extract.Result)}
}

// Get returns the cached result for path
func (c *DateCache) Get(path string) (extract.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[path]
	return r, ok
}

// Put stores r unless it is a tool error
func (c *DateCache) Put(r extract.Result) {
	if r.Outcome == extract.OutcomeToolError {
		return
	}
	c.mu.Lock()
	c.entries[r.Path] = r
	c.mu.Unlock()
}

// Invalidate drops every entry
func (c *DateCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]extract.Result)
	c.mu.Unlock()
}

// SetDirectory switches the cache to dir, dropping entries when the
// directory changes
func (c *DateCache) SetDirectory(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if dir == c.dir {
		return
	}
	c.dir = dir
	c.entries = make(map[string]extract.Result)
}

// Directory returns the directory the cache currently belongs to
func (c *DateCache) Directory() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dir
}

// Len returns the number of cached entries
func (c *DateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
