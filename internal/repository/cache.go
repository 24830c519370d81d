package repository

import (
	"context"
	"time"
)

// Cache is a byte-oriented TTL store. The memory implementation serves a
// single node; the Redis one is shared by every server instance.
type Cache interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value for ttl. A zero ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// CacheKeys builds the cache keys used across services.
var CacheKeys cacheKeys

type cacheKeys struct{}

// SessionToken keys the user id resolved from a session token hash.
func (cacheKeys) SessionToken(tokenHash string) string {
	return "session:" + tokenHash
}
