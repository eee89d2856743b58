// Package cache provides result caching for the analysis pipeline.
//
// Analysis of a given image is deterministic: the same pixels and the same
// tuning constants always produce the same composite report. Caching is
// therefore keyed on the SHA-256 of the image bytes plus a hash of the
// active configuration, and a hit can replay a finished report without
// re-running any stage.
//
// Three backends are provided:
//   - FileCache: directory-backed, for CLI usage
//   - RedisCache: shared cache for multi-instance server deployments
//   - NullCache: disables caching (testing, --no-cache)
package cache

import (
	"context"
	"time"
)

// TTLs for cached values.
const (
	// TTLReport is how long a composite analysis report stays cached.
	// Reports are pure functions of image bytes + config, so the TTL
	// exists only to bound disk usage.
	TTLReport = 30 * 24 * time.Hour
)

// Cache is the storage interface shared by all backends.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. A zero TTL means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// ReportKeyOpts are the inputs that, besides the image itself, change the
// analysis outcome and therefore participate in the cache key.
type ReportKeyOpts struct {
	ConfigHash string // hash of the tuning configuration in effect
}

// Keyer generates cache keys.
type Keyer interface {
	// ReportKey generates a key for a composite report, from the SHA-256
	// hex digest of the image bytes and the options that affect analysis.
	ReportKey(imageHash string, opts ReportKeyOpts) string
}

// DefaultKeyer generates unscoped cache keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ReportKey generates a key for a composite report.
func (k *DefaultKeyer) ReportKey(imageHash string, opts ReportKeyOpts) string {
	return hashKey("report", imageHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation. The
// CLI and server scope keys by build version so an upgraded binary never
// replays reports produced by older analysis code; per-user scopes work
// the same way if the server ever runs multi-tenant.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ReportKey generates a prefixed report key.
func (k *ScopedKeyer) ReportKey(imageHash string, opts ReportKeyOpts) string {
	return k.prefix + k.inner.ReportKey(imageHash, opts)
}
