package live

import (
	"sync"
	"time"
)

// Cache holds the most recent completed poll cycle's result. It is a single
// slot: there is no per-streamer entry, the whole aggregation is replaced at
// once.
type Cache struct {
	mu          sync.RWMutex
	lastUpdated time.Time
	entries     []Stream
}

// Get returns a copy of the cached entries when the cache was updated within
// ttl AND holds at least one stream. An all-empty result is never considered
// fresh: a transient all-providers-down cycle must retry on the next call
// rather than pin an empty page for the whole window.
func (c *Cache) Get(ttl time.Duration) ([]Stream, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 || time.Since(c.lastUpdated) >= ttl {
		return nil, false
	}
	out := make([]Stream, len(c.entries))
	copy(out, c.entries)
	return out, true
}

// Set replaces the cached result with the given entries, stamped now.
// Concurrent refreshes are allowed; the last writer wins.
func (c *Cache) Set(entries []Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastUpdated = time.Now()
	c.entries = entries
}
