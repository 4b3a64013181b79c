package integrations

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
)

// cacheEntry represents a single cache entry with TTL
type cacheEntry struct {
	orgID     uuid.UUID
	settings  models.IntegrationSettings
	expiresAt time.Time
	element   *list.Element // For LRU tracking
}

// SettingsCache is an in-memory LRU cache with TTL for tenant settings.
// Thread-safe implementation using sync.Mutex.
type SettingsCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*cacheEntry
	lruList *list.List
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
	now     func() time.Time
}

// NewSettingsCache creates a new SettingsCache with specified max size and TTL
func NewSettingsCache(maxSize int, ttl time.Duration) *SettingsCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &SettingsCache{
		entries: make(map[uuid.UUID]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// TTL returns the entry lifetime
func (c *SettingsCache) TTL() time.Duration {
	return c.ttl
}

// Get retrieves settings from cache.
// The second result is false if not found or expired.
func (c *SettingsCache) Get(orgID uuid.UUID) (models.IntegrationSettings, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[orgID]
	if !exists || c.now().After(entry.expiresAt) {
		c.misses++
		if exists {
			c.removeEntry(orgID)
		}
		return models.IntegrationSettings{}, false
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++
	return entry.settings.Clone(), true
}

// Set stores settings in cache for the full TTL
func (c *SettingsCache) Set(orgID uuid.UUID, settings models.IntegrationSettings) {
	c.SetWithTTL(orgID, settings, c.ttl)
}

// SetWithTTL stores settings that must expire sooner than the cache TTL,
// such as a copy of an entry that is already ageing in another tier.
// A ttl that is not positive or exceeds the cache TTL is capped to it.
func (c *SettingsCache) SetWithTTL(orgID uuid.UUID, settings models.IntegrationSettings, ttl time.Duration) {
	if ttl <= 0 || ttl > c.ttl {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if entry, exists := c.entries[orgID]; exists {
		entry.settings = settings.Clone()
		entry.expiresAt = expiresAt
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{
		orgID:     orgID,
		settings:  settings.Clone(),
		expiresAt: expiresAt,
	}
	entry.element = c.lruList.PushFront(orgID)
	c.entries[orgID] = entry
}

// Invalidate removes a tenant's entry
func (c *SettingsCache) Invalidate(orgID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeEntry(orgID)
}

// Clear removes all entries from the cache
func (c *SettingsCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[uuid.UUID]*cacheEntry)
	c.lruList.Init()
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// Stats returns cache statistics
func (c *SettingsCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// CleanupExpired removes all expired entries and returns how many were dropped
func (c *SettingsCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var expired []uuid.UUID
	for orgID, entry := range c.entries {
		if now.After(entry.expiresAt) {
			expired = append(expired, orgID)
		}
	}
	for _, orgID := range expired {
		c.removeEntry(orgID)
	}
	return len(expired)
}

// removeEntry removes an entry from the cache (must be called with lock held)
func (c *SettingsCache) removeEntry(orgID uuid.UUID) {
	if entry, exists := c.entries[orgID]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, orgID)
	}
}

// evictLRU evicts the least recently used entry (must be called with lock held)
func (c *SettingsCache) evictLRU() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	orgID := back.Value.(uuid.UUID)
	c.lruList.Remove(back)
	delete(c.entries, orgID)
}
