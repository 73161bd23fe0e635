package species

import (
	"sync"

	"github.com/aviantrail/tripplanner/internal/model"
)

// Cache is the name->TargetSpecies lookup spec §4.1/§9 describes as a
// process-lifetime, thread-safe cache. Expressed as an interface so the
// default in-memory map can be swapped for a shared backing store
// (rediscache.go) without changing Validator's logic.
type Cache interface {
	Get(key string) (model.TargetSpecies, bool)
	Set(key string, ts model.TargetSpecies)
}

// memoryCache is a mutex-guarded map, grounded on the teacher's
// core/mock_discovery.go caching idiom. The zero-value default for
// Validator when no shared cache is configured.
type memoryCache struct {
	mu    sync.RWMutex
	items map[string]model.TargetSpecies
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string]model.TargetSpecies)}
}

func (c *memoryCache) Get(key string) (model.TargetSpecies, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ts, ok := c.items[key]
	return ts, ok
}

func (c *memoryCache) Set(key string, ts model.TargetSpecies) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = ts
}
