package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --snapshot
// on both "semidx add" and "semidx serve").
type Flag struct {
	// Name is the long flag name (e.g. "snapshot").
	Name string

	// Shorthand is the one-letter short flag (e.g. "s"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "database.snapshot_path").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddBoolFlag
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagDuplicatePolicy = "duplicate-policy"
	FlagSnapshot        = "snapshot"
	FlagSnapshotBackend = "snapshot-backend"
	FlagIndexPath       = "index"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingKey    = "embedding-api-key"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagEmbeddingCache  = "embedding-cache-dir"
	FlagAPIListen       = "listen"
	FlagWatchSnapshot   = "watch-snapshot"
)

// Registry holds every flag shared across semidx commands.
var Registry = FlagSet{
	FlagDuplicatePolicy: {Name: "duplicate-policy", Shorthand: "p", ViperKey: "database.duplicate_policy", Description: "Duplicate policy: allow, update, skip or reject"},
	FlagSnapshot:        {Name: "snapshot", Shorthand: "s", ViperKey: "database.snapshot_path", Description: "Snapshot file (relative paths resolve inside the .semidx dir)"},
	FlagSnapshotBackend: {Name: "snapshot-backend", ViperKey: "database.snapshot_backend", Description: "Snapshot backend: json or sqlite"},
	FlagIndexPath:       {Name: "index", Shorthand: "i", ViperKey: "index.path", Description: "Tag index log file (relative paths resolve inside the .semidx dir)"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider: ollama, openai or gemini"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingKey:    {Name: "embedding-api-key", ViperKey: "embedding.api_key", Description: "Embedding provider API key"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality (0 learns it from the first record)"},
	FlagEmbeddingCache:  {Name: "embedding-cache-dir", ViperKey: "embedding.cache_dir", Description: "Directory for the on-disk embedding cache (empty disables it)"},
	FlagAPIListen:       {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for API server to listen on"},
	FlagWatchSnapshot:   {Name: "watch-snapshot", ViperKey: "api.watch_snapshot", Description: "Reload the database when the snapshot file changes"},
}

// StoreFlags are the flags every command that opens the stores registers.
var StoreFlags = []string{
	FlagDuplicatePolicy,
	FlagSnapshot,
	FlagSnapshotBackend,
	FlagIndexPath,
	FlagEmbeddingProv,
	FlagEmbeddingTgt,
	FlagEmbeddingModel,
	FlagEmbeddingKey,
	FlagEmbeddingDims,
	FlagEmbeddingCache,
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
