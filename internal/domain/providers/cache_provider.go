package providers

import (
	"context"
)

// CacheProvider abstracts the cache used for interpretation results and
// hot catalog reads. Implementations must be safe for concurrent use.
type CacheProvider interface {
	// Get retrieves a value; implementations return an error on miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL in seconds.
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Exists checks whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
