package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory Cache with lazy expiry and an optional entry
// limit.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	maxEntries int
}

type entry struct {
	resp      *Response
	expiresAt time.Time
}

// NewMemoryCache creates an in-memory cache holding at most maxEntries
// responses; zero means unlimited. When full, expired entries are swept
// and, failing that, the entry closest to expiry is evicted.
func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
	}
}

// Get retrieves a response. Returns (nil, false) on miss or expiry.
func (c *MemoryCache) Get(_ context.Context, key string) (*Response, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.resp, true
}

// Set stores a response for ttl.
func (c *MemoryCache) Set(_ context.Context, key string, resp *Response, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := ValidateKey(key); err != nil {
		return err
	}

	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.entries[key] = &entry{resp: resp, expiresAt: now.Add(ttl)}
	return nil
}

// Delete removes a response. Idempotent: no error on miss.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			continue
		}
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey, oldest = k, e.expiresAt
		}
	}
	if len(c.entries) >= c.maxEntries && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

var _ Cache = (*MemoryCache)(nil)
