package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/chataize/semantic-index/pkg/logger"
	"github.com/chataize/semantic-index/pkg/semantic"
)

// SnapshotLoader replaces its contents with the snapshot at path.
type SnapshotLoader interface {
	Load(ctx context.Context, path string) error
}

// SnapshotWatcher reloads a database whenever its JSON snapshot file is
// rewritten by another process.
type SnapshotWatcher struct {
	path    string
	loader  SnapshotLoader
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	// mu serializes tracked writes with the event check, so the own-write
	// stamp is recorded before the watcher inspects the file.
	mu  sync.Mutex
	own os.FileInfo
}

// NewSnapshotWatcher starts watching the directory holding path. Snapshots
// are replaced by rename, so the file itself cannot be watched directly.
func NewSnapshotWatcher(path string, loader SnapshotLoader, log *slog.Logger) (*SnapshotWatcher, error) {
	if path == "" {
		return nil, errors.New("snapshot path is required")
	}
	if loader == nil {
		return nil, errors.New("snapshot loader is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving snapshot path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating snapshot watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching snapshot directory: %w", err)
	}

	return &SnapshotWatcher{
		path:    filepath.Clean(abs),
		loader:  loader,
		watcher: watcher,
		logger:  log,
	}, nil
}

// Run reloads the snapshot on every write until ctx is done. Failed reloads
// are logged and leave the loaded contents unchanged.
func (w *SnapshotWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if w.isOwnWrite() {
				w.logger.Debug("skipping reload of own snapshot write", "path", w.path)
				continue
			}
			if err := w.loader.Load(ctx, w.path); err != nil {
				w.logger.Warn("snapshot reload failed", "path", w.path, "error", err)
				continue
			}
			w.logger.Info("snapshot reloaded", "path", w.path)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("snapshot watcher error", "error", err)
		}
	}
}

// Snapshot returns a JSON snapshot of the watched file. Writes made through
// it do not trigger a reload, so records committed after the write survive.
func (w *SnapshotWatcher) Snapshot() semantic.Snapshotter[string] {
	return &trackedSnapshot{
		watcher: w,
		file:    semantic.NewFileSnapshot[string](w.path),
	}
}

// isOwnWrite reports whether the file is still the one last written through
// Snapshot. Every write renames a fresh file into place, so a replacement by
// another writer is never the same file.
func (w *SnapshotWatcher) isOwnWrite() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.own == nil {
		return false
	}
	fi, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	return os.SameFile(w.own, fi) &&
		fi.Size() == w.own.Size() &&
		fi.ModTime().Equal(w.own.ModTime())
}

type trackedSnapshot struct {
	watcher *SnapshotWatcher
	file    *semantic.FileSnapshot[string]
}

func (t *trackedSnapshot) WriteSnapshot(ctx context.Context, recs []semantic.Record[string]) error {
	t.watcher.mu.Lock()
	defer t.watcher.mu.Unlock()

	if err := t.file.WriteSnapshot(ctx, recs); err != nil {
		return err
	}
	fi, err := os.Stat(t.watcher.path)
	if err != nil {
		return fmt.Errorf("stat snapshot: %w", err)
	}
	t.watcher.own = fi
	return nil
}

func (t *trackedSnapshot) ReadSnapshot(ctx context.Context) ([]semantic.Record[string], error) {
	return t.file.ReadSnapshot(ctx)
}

// WatchSnapshot blocks, reloading loader from path until ctx is done.
func WatchSnapshot(ctx context.Context, path string, loader SnapshotLoader, log *slog.Logger) error {
	w, err := NewSnapshotWatcher(path, loader, log)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
