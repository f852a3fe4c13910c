// Package servecmder provides the serve command that runs the semidx HTTP API.
package servecmder

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chataize/semantic-index/api"
	"github.com/chataize/semantic-index/cmd/semidx/storecmd"
	"github.com/chataize/semantic-index/pkg/config"
	"github.com/chataize/semantic-index/pkg/worker"
)

type serveCommander struct {
	listen        string
	watchSnapshot bool
	workers       uint

	env *storecmd.Env
}

const serveLongDesc string = `Run the semidx HTTP API.

The database snapshot is loaded at startup and written back on shutdown and on
POST /v1/snapshot. With --watch-snapshot, the database reloads whenever another
process rewrites the JSON snapshot file.

Routes:
  GET    /ping
  POST   /v1/items            {"text": "..."}
  DELETE /v1/items            {"text": "..."}
  GET    /v1/items/count
  GET    /v1/search?query=&top_k=
  POST   /v1/refresh
  POST   /v1/snapshot
  POST   /v1/index            {"text": "...", "tags": [...], "async": false}
  GET    /v1/index/find?query=&tags=a,b&top_k=
  DELETE /v1/index            {"text": "..."} or {"tags": [...]}`

const serveShortDesc string = "Run the semidx HTTP API"

var serveFlags = []string{config.FlagAPIListen, config.FlagWatchSnapshot}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.env, err = storecmd.Load(cmd, serveFlags...)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.listen = cmder.env.Config.API.Listen
			cmder.watchSnapshot = cmder.env.Config.API.WatchSnapshot
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Registry, config.FlagAPIListen, &cmder.listen)
	config.AddBoolFlag(cmd, config.Registry, config.FlagWatchSnapshot, &cmder.watchSnapshot)
	cmd.Flags().UintVar(&cmder.workers, "workers", 3, "Number of async index workers")
	storecmd.Register(cmd)

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	log := c.env.Logger

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := c.env.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var pool *worker.Pool
	if s.Index != nil {
		pool, err = worker.NewPool(&worker.Config{
			Index:      s.Index,
			NumWorkers: c.workers,
			Logger:     log,
		})
		if err != nil {
			return fmt.Errorf("creating worker pool: %w", err)
		}
		defer pool.Close()
	}

	errChan := make(chan error, 2)

	// Writes of this process go through the watcher so they are not
	// reloaded over newer records.
	snapshot := s.Snapshot
	if c.watchSnapshot {
		if s.Backend != config.SnapshotBackendJSON {
			log.Warn("snapshot watching requires the json backend, ignoring", "backend", s.Backend)
		} else {
			w, err := api.NewSnapshotWatcher(s.SnapshotPath, s.DB, log)
			if err != nil {
				return err
			}
			snapshot = w.Snapshot()
			go func() {
				if err := w.Run(ctx); err != nil {
					errChan <- fmt.Errorf("snapshot watcher: %w", err)
				}
			}()
		}
	}

	server, err := api.NewServer(api.Config{
		ListenAddr: c.listen,
		Snapshot:   snapshot,
	}, s.DB, s.Index, pool, log)
	if err != nil {
		return err
	}

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
	}

	if err := server.Shutdown(); err != nil {
		log.Warn("API server shutdown failed", "error", err)
	}

	// ctx is cancelled by now.
	return s.DB.SaveTo(context.WithoutCancel(ctx), snapshot)
}
