// Package cache provides pluggable byte caches and deterministic cache keys
// for the layout pipeline.
//
// # Architecture
//
// The pipeline caches the output of each stage so that repeated runs over the
// same table and options skip straight to the first stage whose inputs
// changed. Three backends implement the same Cache interface:
//
//   - FileCache: entries on disk under a sharded directory, for CLI usage
//   - RedisCache: shared cache for server deployments
//   - NullCache: caching disabled
//
// Keys are built by a Keyer from content hashes plus the options that affect
// the stage's output. Two runs produce the same key exactly when they would
// produce the same bytes.
package cache

import (
	"context"
	"time"
)

// TTLs per stage. Source tables and aggregated groups are cheap to rebuild
// and keyed by content hash, so they keep long TTLs. Exported artifacts are
// larger and expire sooner.
const (
	// TTLSource is the TTL for parsed source tables.
	TTLSource = 7 * 24 * time.Hour

	// TTLGroups is the TTL for aggregated group data.
	TTLGroups = 7 * 24 * time.Hour

	// TTLLayout is the TTL for computed layouts.
	TTLLayout = 24 * time.Hour

	// TTLExport is the TTL for exported artifacts (JSON, GeoJSON).
	TTLExport = 6 * time.Hour
)

// Cache is the interface for caching stage outputs.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the key
	// was present; a miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. A zero TTL means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}
