package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hash returns the full SHA-256 hex digest (64 characters) of data. The
// pipeline hashes raw image bytes with this to anchor report cache keys,
// so two paths to the same file share one cache entry.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey derives a key of the form "prefix:sha256(parts)". Parts are
// JSON-marshaled before hashing so structured inputs like ReportKeyOpts
// contribute field by field and field order stays stable.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}
