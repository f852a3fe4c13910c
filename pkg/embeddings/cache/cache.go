// Package cache provides an Embedder decorator that memoizes vectors in a
// BadgerDB store so repeated payloads and refreshes skip the provider.
package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/chataize/semantic-index/pkg/embeddings"
	"github.com/chataize/semantic-index/pkg/logger"
)

// Config holds configuration for the cache.
type Config struct {
	// Dir is the badger data directory. Required unless InMemory is set.
	Dir string

	// InMemory keeps the cache in process memory only.
	InMemory bool

	// Namespace separates entries of different models sharing one directory.
	// It should identify the provider and model of the wrapped embedder.
	Namespace string
}

// Embedder memoizes the wrapped embedder's output.
type Embedder struct {
	next      embeddings.Embedder
	db        *badger.DB
	namespace string
	logger    *slog.Logger
}

type entry struct {
	Vector []float32 `msgpack:"v"`
}

// New wraps next with a badger-backed cache. Closing the returned embedder
// also closes next.
func New(next embeddings.Embedder, cfg Config, log *slog.Logger) (*Embedder, error) {
	if next == nil {
		return nil, errors.New("cache: wrapped embedder is required")
	}
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("cache: directory is required for on-disk mode")
	}
	if log == nil {
		log = logger.Nop()
	}

	opts := badger.DefaultOptions(cfg.Dir).WithLogger(badgerLogger{log: log})
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening embedding cache: %w", err)
	}

	return &Embedder{
		next:      next,
		db:        db,
		namespace: cfg.Namespace,
		logger:    log,
	}, nil
}

// Embed returns the cached vector for text, asking the wrapped embedder on a
// miss. Provider errors are never cached.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.key(text)

	v, err := e.lookup(key)
	if err != nil {
		e.logger.Warn("embedding cache read failed", "error", err)
	}
	if v != nil {
		e.logger.Debug("embedding cache hit", "bytes", len(text))
		return v, nil
	}

	v, err = e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.store(key, v); err != nil {
		e.logger.Warn("embedding cache write failed", "error", err)
	}
	return v, nil
}

// Close closes the cache and the wrapped embedder.
func (e *Embedder) Close() error {
	return errors.Join(e.db.Close(), e.next.Close())
}

func (e *Embedder) key(text string) []byte {
	sum := sha256.Sum256([]byte(e.namespace + "\x00" + text))
	return sum[:]
}

func (e *Embedder) lookup(key []byte) ([]float32, error) {
	var v []float32
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var ent entry
			if err := msgpack.Unmarshal(val, &ent); err != nil {
				return err
			}
			v = ent.Vector
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	return v, err
}

func (e *Embedder) store(key []byte, v []float32) error {
	val, err := msgpack.Marshal(entry{Vector: v})
	if err != nil {
		return err
	}
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// badgerLogger routes badger's internal logging to slog at debug level,
// except errors and warnings.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

var _ embeddings.Embedder = (*Embedder)(nil)
