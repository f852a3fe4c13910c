package config

const (
	defaultDuplicatePolicy = "allow"
	defaultSnapshotPath    = "snapshot.json"
	defaultSnapshotBackend = SnapshotBackendJSON

	defaultIndexPath = "index.log"

	// Target and model stay empty so each provider applies its own default.
	defaultEmbeddingProvider = "ollama"

	defaultAPIListen = ":8081"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Database: DatabaseConfig{
			DuplicatePolicy: defaultDuplicatePolicy,
			SnapshotPath:    defaultSnapshotPath,
			SnapshotBackend: defaultSnapshotBackend,
		},
		Index: IndexConfig{
			Path: defaultIndexPath,
		},
		Embedding: EmbeddingConfig{
			Provider: defaultEmbeddingProvider,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
	}
}
