package cache

import (
	"bytes"
	"sync"

	"github.com/ShoshinNikita/camoview/camoview"
)

type InMemoryCache struct {
	mu    sync.RWMutex
	cache map[camoview.ResourceKey][]byte
}

var _ camoview.ByteCache = (*InMemoryCache)(nil)

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		cache: make(map[camoview.ResourceKey][]byte),
	}
}

func (c *InMemoryCache) Lookup(key camoview.ResourceKey) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, ok := c.cache[key]
	return data, ok
}

func (c *InMemoryCache) Store(key camoview.ResourceKey, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[key] = bytes.Clone(data)
	return nil
}

func (c *InMemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.cache)
	return nil
}

func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.cache)
}
