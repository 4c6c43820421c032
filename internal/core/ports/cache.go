package ports

import (
	"context"
	"errors"
	"time"
)

// ErrPatternDeleteUnsupported is returned by backends that cannot delete by pattern.
var ErrPatternDeleteUnsupported = errors.New("cache: delete by pattern not supported")

// CacheBackend is the key-value contract the product cache is built on.
// Implementations report failures as errors; the cache layer decides to fail open.
type CacheBackend interface {
	// Get returns the raw bytes for key. ok=false if not found or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value for key with TTL (0 means no expiration).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the keys; absent keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPattern removes every key matching a glob pattern and returns how many were removed.
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
