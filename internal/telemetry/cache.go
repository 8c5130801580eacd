// internal/telemetry/cache.go
package telemetry

import (
	"sync"

	"hwrelay/internal/snapshot"
)

// Cache holds the single most recent snapshot. The collector writes it
// and the channel server reads it; neither ever blocks on a sensor read
// in flight, because only complete snapshots are stored.
type Cache struct {
	mu     sync.RWMutex
	last   snapshot.Snapshot
	stored bool
}

func NewCache() *Cache {
	return &Cache{}
}

// Store replaces the cached snapshot wholesale.
func (c *Cache) Store(s snapshot.Snapshot) {
	c.mu.Lock()
	c.last = s
	c.stored = true
	c.mu.Unlock()
}

// Latest returns the cached snapshot and whether one has been stored.
func (c *Cache) Latest() (snapshot.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last, c.stored
}
