package pipeline

import (
	"encoding/json"

	"github.com/BurntSushi/toml"

	"github.com/kolamlabs/kolamscan/pkg/cache"
	"github.com/kolamlabs/kolamscan/pkg/errors"
	"github.com/kolamlabs/kolamscan/pkg/stages"
)

// FileConfig is the on-disk TOML configuration shared by the CLI and the
// server. Everything has a working default; an absent file is not an
// error.
type FileConfig struct {
	// CacheDir enables the file-backed report cache when non-empty.
	CacheDir string `toml:"cache_dir"`

	// RedisURL enables the Redis-backed report cache when non-empty. It
	// takes precedence over CacheDir.
	RedisURL string `toml:"redis_url"`

	// MongoURI enables report persistence when non-empty.
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`

	// Listen is the server bind address.
	Listen string `toml:"listen"`

	// Stages holds the analysis tuning constants.
	Stages stages.Config `toml:"stages"`
}

// DefaultFileConfig returns the built-in defaults.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		MongoDatabase:   "kolamscan",
		MongoCollection: "reports",
		Listen:          ":8080",
		Stages:          stages.DefaultConfig(),
	}
}

// LoadConfig reads a TOML config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (FileConfig, error) {
	cfg := DefaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load config %s", path)
	}
	return cfg, nil
}

// ConfigHash fingerprints the tuning constants for cache keys, so a
// configuration change never replays a stale report.
func ConfigHash(c stages.Config) string {
	b, _ := json.Marshal(c)
	return cache.Hash(b)
}
