package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	apperrors "story-content-gateway/errors"
)

// CacheService is the shared cache backend behind the tree cache. The
// in-memory implementation below is the default; a remote backend slots in
// behind the same interface. Get reports a miss as (false, nil); a non-nil
// error means the backend itself failed and callers should fail open.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
	Clear(ctx context.Context) error
	GetStats() CacheStats
}

// CacheStats provides cache performance metrics
type CacheStats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	HitRate     float64   `json:"hit_rate"`
	Size        int       `json:"size"`
	MaxSize     int       `json:"max_size"`
	Evictions   int64     `json:"evictions"`
	LastCleared time.Time `json:"last_cleared"`
}

// CacheEntry represents a cached item
type CacheEntry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// InMemoryCache implements CacheService using in-memory storage
type InMemoryCache struct {
	mu       sync.RWMutex
	data     map[string]*CacheEntry
	maxSize  int
	stats    CacheStats
	janitor  *time.Ticker
	stopChan chan struct{}
}

// NewInMemoryCache creates a new in-memory cache
func NewInMemoryCache(maxSize int, cleanupInterval time.Duration) *InMemoryCache {
	cache := &InMemoryCache{
		data:     make(map[string]*CacheEntry),
		maxSize:  maxSize,
		stats:    CacheStats{MaxSize: maxSize, LastCleared: time.Now()},
		janitor:  time.NewTicker(cleanupInterval),
		stopChan: make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// Get retrieves a value from cache
func (c *InMemoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.data[key]
	if !exists {
		c.stats.Misses++
		c.updateHitRate()
		return false, nil
	}

	if time.Now().After(entry.ExpiresAt) {
		c.stats.Misses++
		delete(c.data, key)
		c.stats.Size = len(c.data)
		c.updateHitRate()
		return false, nil
	}

	c.stats.Hits++
	c.updateHitRate()

	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return false, apperrors.NewCacheBackendError(apperrors.ErrCodeCacheSerialize,
			"failed to deserialize cached value", err)
	}

	return true, nil
}

// Set stores a value in cache
func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewCacheBackendError(apperrors.ErrCodeCacheSerialize,
			"failed to serialize cache value", err)
	}

	// Overwriting an existing key does not grow the map, so it never
	// needs to evict.
	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxSize {
		c.evictOldest()
	}

	entry := &CacheEntry{
		Value:     data,
		ExpiresAt: time.Now().Add(ttl),
		CreatedAt: time.Now(),
	}

	c.data[key] = entry
	c.stats.Size = len(c.data)

	return nil
}

// Delete removes a key from cache
func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	c.stats.Size = len(c.data)

	return nil
}

// DeletePattern removes all keys matching a pattern from cache.
// Supports a trailing * wildcard; anything else is an exact match.
func (c *InMemoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "*" {
		c.data = make(map[string]*CacheEntry)
		c.stats.Size = 0
		return nil
	}

	if strings.HasSuffix(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		for key := range c.data {
			if strings.HasPrefix(key, prefix) {
				delete(c.data, key)
			}
		}
	} else {
		delete(c.data, pattern)
	}

	c.stats.Size = len(c.data)
	return nil
}

// Clear removes all entries from cache
func (c *InMemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]*CacheEntry)
	c.stats.Size = 0
	c.stats.LastCleared = time.Now()

	return nil
}

// GetStats returns cache statistics
func (c *InMemoryCache) GetStats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Size = len(c.data)
	return stats
}

// Stop stops the cache cleanup goroutine
func (c *InMemoryCache) Stop() {
	close(c.stopChan)
	c.janitor.Stop()
}

// cleanup removes expired entries periodically
func (c *InMemoryCache) cleanup() {
	for {
		select {
		case <-c.janitor.C:
			c.removeExpired()
		case <-c.stopChan:
			return
		}
	}
}

// removeExpired removes all expired entries
func (c *InMemoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.data {
		if now.After(entry.ExpiresAt) {
			delete(c.data, key)
		}
	}
	c.stats.Size = len(c.data)
}

// evictOldest removes the oldest entry to make room for new ones
func (c *InMemoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.data {
		if oldestKey == "" || entry.CreatedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.CreatedAt
		}
	}

	if oldestKey != "" {
		delete(c.data, oldestKey)
		c.stats.Evictions++
	}
}

// updateHitRate calculates the current hit rate
func (c *InMemoryCache) updateHitRate() {
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		c.stats.HitRate = float64(c.stats.Hits) / float64(total)
	}
}
