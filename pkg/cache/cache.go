// Package cache stores pipeline results so repeated runs over the same
// document and options skip the geometry work.
//
// # Backends
//
//   - [NullCache] never stores anything
//   - [FileCache] keeps entries as JSON files on disk, for the CLI
//   - [RedisCache] shares entries between server instances
//
// # Keys
//
// A [Keyer] builds keys from a document hash and the options that affect the
// result, so changing any option produces a different key:
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.SeparationKey(cache.Hash(svg), cache.SeparationKeyOpts{Threshold: 50})
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry. Implementations must be safe
// for concurrent use. A miss is reported as (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	Close() error
}
