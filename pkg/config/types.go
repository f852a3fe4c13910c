package config

import (
	"fmt"
	"strconv"

	"github.com/chataize/semantic-index/pkg/semantic"
)

// Config represents the persistent semidx configuration stored as config.toml
// in the .semidx/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Database  DatabaseConfig  `toml:"database"`
	Index     IndexConfig     `toml:"index"`
	Embedding EmbeddingConfig `toml:"embedding"`
	API       APIConfig       `toml:"api"`
}

// DatabaseConfig holds settings for the in-memory record store and its snapshot.
type DatabaseConfig struct {
	DuplicatePolicy string `toml:"duplicate_policy,omitempty"`

	// SnapshotPath is relative to the .semidx/ directory unless absolute.
	SnapshotPath    string `toml:"snapshot_path,omitempty"`
	SnapshotBackend string `toml:"snapshot_backend,omitempty"`
}

// IndexConfig holds settings for the append-only tag index.
type IndexConfig struct {
	// Path is relative to the .semidx/ directory unless absolute.
	Path string `toml:"path,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	CacheDir   string `toml:"cache_dir,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen        string `toml:"listen,omitempty"`
	WatchSnapshot bool   `toml:"watch_snapshot,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"database.duplicate_policy": {
		get: func(c *Config) string { return c.Database.DuplicatePolicy },
		set: func(c *Config, v string) error {
			p, err := semantic.ParseDuplicatePolicy(v)
			if err != nil {
				return fmt.Errorf("invalid value for database.duplicate_policy: %w", err)
			}
			c.Database.DuplicatePolicy = p.String()
			return nil
		},
	},
	"database.snapshot_path": {
		get: func(c *Config) string { return c.Database.SnapshotPath },
		set: func(c *Config, v string) error { c.Database.SnapshotPath = v; return nil },
	},
	"database.snapshot_backend": {
		get: func(c *Config) string { return c.Database.SnapshotBackend },
		set: func(c *Config, v string) error {
			if err := ValidateSnapshotBackend(v); err != nil {
				return err
			}
			c.Database.SnapshotBackend = v
			return nil
		},
	},
	"index.path": {
		get: func(c *Config) string { return c.Index.Path },
		set: func(c *Config, v string) error { c.Index.Path = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.api_key": {
		get: func(c *Config) string { return c.Embedding.APIKey },
		set: func(c *Config, v string) error { c.Embedding.APIKey = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"embedding.cache_dir": {
		get: func(c *Config) string { return c.Embedding.CacheDir },
		set: func(c *Config, v string) error { c.Embedding.CacheDir = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"api.watch_snapshot": {
		get: func(c *Config) string { return strconv.FormatBool(c.API.WatchSnapshot) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for api.watch_snapshot: %w", err)
			}
			c.API.WatchSnapshot = b
			return nil
		},
	},
}

const (
	SnapshotBackendJSON   = "json"
	SnapshotBackendSQLite = "sqlite"
)

// ValidateSnapshotBackend reports whether name is a supported snapshot backend.
func ValidateSnapshotBackend(name string) error {
	switch name {
	case SnapshotBackendJSON, SnapshotBackendSQLite:
		return nil
	default:
		return fmt.Errorf("unknown snapshot backend: %q (valid: json, sqlite)", name)
	}
}
