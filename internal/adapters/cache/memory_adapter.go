package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/pakkapols/techfinder/internal/domain/providers"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryAdapter is an in-process CacheProvider used when Redis is not
// available. Entries expire per key; a janitor purges them every 10 minutes.
type MemoryAdapter struct {
	cache *gocache.Cache
}

// NewMemoryAdapter creates a new in-memory cache adapter.
func NewMemoryAdapter() providers.CacheProvider {
	return &MemoryAdapter{
		cache: gocache.New(1*time.Hour, 10*time.Minute),
	}
}

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(_ context.Context, key string) ([]byte, error) {
	if v, found := a.cache.Get(key); found {
		return v.([]byte), nil
	}
	return nil, fmt.Errorf("key not found: %s", key)
}

// Set stores a value in cache with expiration
func (a *MemoryAdapter) Set(_ context.Context, key string, value []byte, expirationSeconds int) error {
	ttl := time.Duration(expirationSeconds) * time.Second
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	a.cache.Set(key, value, ttl)
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(_ context.Context, key string) error {
	a.cache.Delete(key)
	return nil
}

// Exists checks if a key exists in cache
func (a *MemoryAdapter) Exists(_ context.Context, key string) (bool, error) {
	_, found := a.cache.Get(key)
	return found, nil
}
