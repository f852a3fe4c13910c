// Package stores opens the record database, its snapshot backend, and the
// tag index described by a semidx configuration.
package stores

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/chataize/semantic-index/pkg/config"
	"github.com/chataize/semantic-index/pkg/embeddings"
	embeddingutils "github.com/chataize/semantic-index/pkg/embeddings/utils"
	"github.com/chataize/semantic-index/pkg/logger"
	"github.com/chataize/semantic-index/pkg/semantic"
	"github.com/chataize/semantic-index/pkg/snapshot/sqlite"
	"github.com/chataize/semantic-index/pkg/tagindex"
)

// Options configures Open.
type Options struct {
	Config *config.Config

	// Resolve maps configured relative paths onto the .semidx/ directory.
	// Nil leaves paths untouched.
	Resolve func(string) string

	// Embedder overrides the provider described by Config.Embedding.
	Embedder embeddings.Embedder

	Logger *slog.Logger
}

// Stores bundles everything a semidx command operates on.
type Stores struct {
	DB       *semantic.Database[string]
	Index    *tagindex.Index
	Snapshot semantic.Snapshotter[string]

	// SnapshotPath is the resolved snapshot location.
	SnapshotPath string
	Backend      string

	embedder embeddings.Embedder
	sqlite   *sqlite.Driver[string]
	logger   *slog.Logger
}

// Open builds the stores. The snapshot is not read until Load is called.
func Open(ctx context.Context, o Options) (*Stores, error) {
	if o.Config == nil {
		return nil, errors.New("stores require a config")
	}
	cfg := o.Config

	log := o.Logger
	if log == nil {
		log = logger.Nop()
	}
	resolve := o.Resolve
	if resolve == nil {
		resolve = func(p string) string { return p }
	}

	policy, err := semantic.ParseDuplicatePolicy(cfg.Database.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	if err := config.ValidateSnapshotBackend(cfg.Database.SnapshotBackend); err != nil {
		return nil, err
	}
	if cfg.Database.SnapshotPath == "" {
		return nil, fmt.Errorf("%w: snapshot path is required", semantic.ErrValidation)
	}

	embedder := o.Embedder
	if embedder == nil {
		embedder, err = embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
			ProviderType: cfg.Embedding.Provider,
			TargetURL:    cfg.Embedding.Target,
			Model:        cfg.Embedding.Model,
			APIKey:       cfg.Embedding.APIKey,
			Dimensions:   cfg.Embedding.Dimensions,
			CacheDir:     resolve(cfg.Embedding.CacheDir),
			Logger:       log,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedder: %w", err)
		}
	}

	s := &Stores{
		SnapshotPath: resolve(cfg.Database.SnapshotPath),
		Backend:      cfg.Database.SnapshotBackend,
		embedder:     embedder,
		logger:       log,
	}

	dims := int(cfg.Embedding.Dimensions)
	s.DB, err = semantic.New[string](embedder,
		semantic.WithDuplicatePolicy[string](policy),
		semantic.WithDimensions[string](dims),
		semantic.WithLogger[string](log),
	)
	if err != nil {
		s.Close()
		return nil, err
	}

	switch s.Backend {
	case config.SnapshotBackendSQLite:
		s.sqlite, err = sqlite.New[string](sqlite.Config{DBPath: s.SnapshotPath}, log)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("opening sqlite snapshot: %w", err)
		}
		s.Snapshot = s.sqlite
	default:
		s.Snapshot = semantic.NewFileSnapshot[string](s.SnapshotPath)
	}

	if cfg.Index.Path != "" {
		s.Index, err = tagindex.Open(tagindex.Config{
			Path:       resolve(cfg.Index.Path),
			Dimensions: dims,
		}, embedder, log)
		if err != nil {
			s.Close()
			return nil, err
		}
	}

	return s, nil
}

// Load reads the snapshot into the database. A JSON snapshot that does not
// exist yet leaves the database empty.
func (s *Stores) Load(ctx context.Context) error {
	if s.Backend != config.SnapshotBackendSQLite {
		if _, err := os.Stat(s.SnapshotPath); errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("no snapshot yet", "path", s.SnapshotPath)
			return nil
		}
	}

	if err := s.DB.LoadFrom(ctx, s.Snapshot); err != nil {
		return err
	}

	s.logger.Debug("snapshot loaded", "path", s.SnapshotPath, "records", s.DB.Count())
	return nil
}

// Persist writes the database to its snapshot backend.
func (s *Stores) Persist(ctx context.Context) error {
	return s.DB.SaveTo(ctx, s.Snapshot)
}

// Close releases the snapshot backend and the embedder. The database and
// index share the embedder, so neither is closed on its own.
func (s *Stores) Close() error {
	var errs []error
	if s.sqlite != nil {
		errs = append(errs, s.sqlite.Close())
	}
	if s.embedder != nil {
		errs = append(errs, s.embedder.Close())
	}
	return errors.Join(errs...)
}
