package scan

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// DedupCache is the process-lifetime set of members already confirmed.
// Entries are never evicted and survive across scans.
type DedupCache interface {
	Contains(ctx context.Context, id snowflake.ID) (bool, error)
	Add(ctx context.Context, id snowflake.ID) error
	Len(ctx context.Context) (int64, error)
}

// MemoryCache is an in-memory DedupCache.
type MemoryCache struct {
	ids map[snowflake.ID]struct{}
	mu  sync.RWMutex
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		ids: make(map[snowflake.ID]struct{}),
	}
}

// Contains reports whether the id was added before.
func (c *MemoryCache) Contains(_ context.Context, id snowflake.ID) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.ids[id]

	return ok, nil
}

// Add inserts the id. Adding an existing id is a no-op.
func (c *MemoryCache) Add(_ context.Context, id snowflake.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ids[id] = struct{}{}

	return nil
}

// Len returns the number of cached ids.
func (c *MemoryCache) Len(_ context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return int64(len(c.ids)), nil
}
