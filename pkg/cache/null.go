package cache

import (
	"context"
	"time"
)

// NullCache discards every report. It backs --no-cache and the tests:
// with it in place the pipeline re-runs all five stages on every call,
// which is exactly what a cache-bypassing run should do.
type NullCache struct{}

// NewNullCache returns a cache that never hits.
func NewNullCache() Cache {
	return NullCache{}
}

// Get always misses.
func (NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set discards the report.
func (NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Delete has nothing to delete.
func (NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Close has nothing to release.
func (NullCache) Close() error {
	return nil
}

var _ Cache = NullCache{}
