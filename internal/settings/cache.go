package settings

import "sync"

// Cache is the in-process value cache owned by the settings store. Writes to
// the store invalidate the touched key explicitly; there is no TTL.
type Cache struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewCache builds an empty settings cache.
func NewCache() *Cache {
	return &Cache{values: make(map[string]string)}
}

// Get returns the cached value for key if present.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.values[key]
	return value, ok
}

// Put stores the value for key.
func (c *Cache) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Invalidate drops the cached value for key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}
