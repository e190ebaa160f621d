package embed

import (
	"context"
	"sync"
)

// MemoryCache is an in-memory LRU embedding cache.
type MemoryCache struct {
	mu      sync.RWMutex
	cache   map[string][]float32
	maxSize int
	order   []string // LRU order
}

// NewMemoryCache creates a new in-memory embedding cache.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 10000
	}

	return &MemoryCache{
		cache:   make(map[string][]float32),
		maxSize: maxSize,
		order:   make([]string, 0, maxSize),
	}
}

// Get retrieves an embedding from cache.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]float32, bool) {
	c.mu.RLock()
	emb, ok := c.cache[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	// Move to end of LRU (most recently used)
	c.mu.Lock()
	c.moveToEnd(key)
	c.mu.Unlock()

	// Return a copy to prevent external mutation
	embCopy := make([]float32, len(emb))
	copy(embCopy, emb)
	return embCopy, true
}

// Set stores an embedding in cache.
func (c *MemoryCache) Set(ctx context.Context, key string, embedding []float32) {
	// Copy embedding to avoid external mutations
	embCopy := make([]float32, len(embedding))
	copy(embCopy, embedding)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Check if already exists
	if _, exists := c.cache[key]; exists {
		c.cache[key] = embCopy
		c.moveToEnd(key)
		return
	}

	// Evict if at capacity
	for len(c.cache) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.cache, oldest)
	}

	// Add new entry
	c.cache[key] = embCopy
	c.order = append(c.order, key)
}

// moveToEnd moves a key to the end of the LRU order (must hold lock).
func (c *MemoryCache) moveToEnd(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}

// Size returns the current cache size.
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Clear clears the cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string][]float32)
	c.order = make([]string, 0, c.maxSize)
}
