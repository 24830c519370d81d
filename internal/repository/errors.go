package repository

import "errors"

// Cache errors. Entity lookups report the domain not-found sentinels instead.
var (
	// ErrCacheMiss is returned by Cache.Get for absent or expired keys.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable wraps backend failures. Callers treat it as a miss.
	ErrCacheUnavailable = errors.New("cache unavailable")
)
