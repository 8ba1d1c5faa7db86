// Package cache provides the key-value cache used for derived per-user
// statistics. Values are JSON-serialized by the caller; keys follow the
// platform convention user:{userId}:generation-stats.
package cache

import (
	"context"
	"time"
)

// Cache is the contract the orchestrator's stats layer depends on.
type Cache interface {
	// Get returns the value for key. The second return value is false on
	// a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores the value with a time-to-live.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
