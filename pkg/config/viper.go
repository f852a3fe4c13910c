package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/chataize/semantic-index/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the SEMIDX_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (SEMIDX_API_LISTEN, SEMIDX_EMBEDDING_API_KEY, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: SEMIDX_API_LISTEN, SEMIDX_INDEX_PATH, etc.
	v.SetEnvPrefix("SEMIDX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes the effective configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Version: v.GetInt("version"),
		Database: DatabaseConfig{
			DuplicatePolicy: v.GetString("database.duplicate_policy"),
			SnapshotPath:    v.GetString("database.snapshot_path"),
			SnapshotBackend: v.GetString("database.snapshot_backend"),
		},
		Index: IndexConfig{
			Path: v.GetString("index.path"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			APIKey:     v.GetString("embedding.api_key"),
			Dimensions: v.GetUint("embedding.dimensions"),
			CacheDir:   v.GetString("embedding.cache_dir"),
		},
		API: APIConfig{
			Listen:        v.GetString("api.listen"),
			WatchSnapshot: v.GetBool("api.watch_snapshot"),
		},
	}

	if err := ValidateSnapshotBackend(cfg.Database.SnapshotBackend); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Database
	v.SetDefault("database.duplicate_policy", d.Database.DuplicatePolicy)
	v.SetDefault("database.snapshot_path", d.Database.SnapshotPath)
	v.SetDefault("database.snapshot_backend", d.Database.SnapshotBackend)

	// Index
	v.SetDefault("index.path", d.Index.Path)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.cache_dir", d.Embedding.CacheDir)

	// API
	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("api.watch_snapshot", d.API.WatchSnapshot)
}
