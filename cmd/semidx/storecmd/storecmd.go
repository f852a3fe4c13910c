// Package storecmd wires the shared store flags into cobra commands and opens
// the stores they describe.
package storecmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/chataize/semantic-index/pkg/config"
	"github.com/chataize/semantic-index/pkg/logger"
	"github.com/chataize/semantic-index/pkg/stores"
)

// Flags holds the targets of the registered store flags. Values are read
// back through viper so env and config.toml apply when a flag is unset.
type Flags struct {
	duplicatePolicy string
	snapshot        string
	snapshotBackend string
	index           string
	provider        string
	target          string
	model           string
	apiKey          string
	dimensions      uint
	cacheDir        string
}

// Register adds every store flag to cmd.
func Register(cmd *cobra.Command) *Flags {
	f := &Flags{}
	config.AddStringFlag(cmd, config.Registry, config.FlagDuplicatePolicy, &f.duplicatePolicy)
	config.AddStringFlag(cmd, config.Registry, config.FlagSnapshot, &f.snapshot)
	config.AddStringFlag(cmd, config.Registry, config.FlagSnapshotBackend, &f.snapshotBackend)
	config.AddStringFlag(cmd, config.Registry, config.FlagIndexPath, &f.index)
	config.AddStringFlag(cmd, config.Registry, config.FlagEmbeddingProv, &f.provider)
	config.AddStringFlag(cmd, config.Registry, config.FlagEmbeddingTgt, &f.target)
	config.AddStringFlag(cmd, config.Registry, config.FlagEmbeddingModel, &f.model)
	config.AddStringFlag(cmd, config.Registry, config.FlagEmbeddingKey, &f.apiKey)
	config.AddUintFlag(cmd, config.Registry, config.FlagEmbeddingDims, &f.dimensions)
	config.AddStringFlag(cmd, config.Registry, config.FlagEmbeddingCache, &f.cacheDir)
	return f
}

// Env is the resolved configuration of a command invocation.
type Env struct {
	Config   *config.Config
	Configer *config.Configer
	Logger   *slog.Logger
}

// Load resolves the effective config for cmd: flags, then SEMIDX_ env vars,
// then config.toml, then defaults. extra names additional registry flags
// the command registered beyond the store flags.
func Load(cmd *cobra.Command, extra ...string) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Registry, append(append([]string{}, config.StoreFlags...), extra...))

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	debug, _ := cmd.Flags().GetBool("debug")

	return &Env{
		Config:   cfg,
		Configer: cfger,
		Logger:   NewLogger(cmd.ErrOrStderr(), debug),
	}, nil
}

// NewLogger returns the CLI logger: pretty output, Warn level unless debug.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return logger.New(logger.WithWriter(w), logger.WithPretty(true), logger.WithLevel(level))
}

// Open opens and loads the stores described by env.
func (e *Env) Open(ctx context.Context) (*stores.Stores, error) {
	s, err := stores.Open(ctx, stores.Options{
		Config:  e.Config,
		Resolve: e.Configer.ResolvePath,
		Logger:  e.Logger,
	})
	if err != nil {
		return nil, err
	}

	if err := s.Load(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
