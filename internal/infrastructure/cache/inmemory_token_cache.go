package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	appdelivery "github.com/orderbridge/backend/internal/application/delivery"
)

type tokenEntry struct {
	accessToken string
	expiresAt   time.Time
}

// InMemoryTokenCache implements TokenCache using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemoryTokenCache struct {
	mu        sync.RWMutex
	entries   map[uuid.UUID]tokenEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryTokenCache creates a new in-memory token cache
// It starts a background goroutine to clean up expired entries
func NewInMemoryTokenCache() *InMemoryTokenCache {
	cache := &InMemoryTokenCache{
		entries:  make(map[uuid.UUID]tokenEntry),
		stopChan: make(chan struct{}),
	}

	cache.wg.Add(1)
	go cache.cleanupLoop()

	return cache
}

// Get returns the cached token for a configuration, or nil on a miss.
// An expired entry is a miss.
func (c *InMemoryTokenCache) Get(ctx context.Context, configID uuid.UUID) (*appdelivery.CachedToken, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[configID]
	if !exists {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		return nil, nil
	}

	return &appdelivery.CachedToken{
		AccessToken: e.accessToken,
		ExpiresAt:   e.expiresAt,
	}, nil
}

// Set stores a token until its expiry.
func (c *InMemoryTokenCache) Set(ctx context.Context, configID uuid.UUID, token string, expiresAt time.Time) error {
	if !time.Now().Before(expiresAt) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[configID] = tokenEntry{
		accessToken: token,
		expiresAt:   expiresAt,
	}
	return nil
}

// Delete drops the cached token for a configuration.
func (c *InMemoryTokenCache) Delete(ctx context.Context, configID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, configID)
	return nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (c *InMemoryTokenCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (c *InMemoryTokenCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired entries from the cache
func (c *InMemoryTokenCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for configID, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, configID)
		}
	}
}

// Size returns the number of entries in the cache (for testing/monitoring)
func (c *InMemoryTokenCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemoryTokenCache implements TokenCache
var _ appdelivery.TokenCache = (*InMemoryTokenCache)(nil)
