// Package semantic is an embedded vector store. A Database holds payloads of a
// caller-chosen type next to the embedding computed for each of them and
// answers nearest-neighbor queries with an exact linear scan.
//
// Embedding provider calls are always made before any lock is taken, so a
// slow provider never blocks readers or other writers. The store lock only
// covers the in-memory mutation that follows.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/chataize/semantic-index/pkg/embeddings"
	"github.com/chataize/semantic-index/pkg/logger"
	"github.com/chataize/semantic-index/pkg/vector"
)

// Database is a concurrency-safe collection of payloads and embeddings.
type Database[T any] struct {
	embedder embeddings.Embedder
	store    *store[T]
	policy   atomic.Int32

	text        func(T) (string, error)
	concurrency int
	logger      *slog.Logger
}

// New creates a Database whose payloads are compared with ==.
func New[T comparable](embedder embeddings.Embedder, opts ...Option[T]) (*Database[T], error) {
	return NewFunc(embedder, func(a, b T) bool { return a == b }, opts...)
}

// NewFunc creates a Database whose payloads are compared with equal.
func NewFunc[T any](embedder embeddings.Embedder, equal func(a, b T) bool, opts ...Option[T]) (*Database[T], error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrValidation)
	}
	if equal == nil {
		return nil, fmt.Errorf("%w: equality function is required", ErrValidation)
	}

	o := &options[T]{
		concurrency: defaultConcurrency,
		text:        payloadText[T],
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.dimensions < 0 {
		return nil, fmt.Errorf("%w: dimensions cannot be negative", ErrValidation)
	}
	if o.logger == nil {
		o.logger = logger.Nop()
	}

	db := &Database[T]{
		embedder:    embedder,
		store:       newStore(o.dimensions, equal),
		text:        o.text,
		concurrency: o.concurrency,
		logger:      o.logger,
	}
	db.policy.Store(int32(o.policy))

	return db, nil
}

// DuplicatePolicy returns the policy applied to the next insert.
func (db *Database[T]) DuplicatePolicy() DuplicatePolicy {
	return DuplicatePolicy(db.policy.Load())
}

// SetDuplicatePolicy changes the policy for subsequent inserts.
func (db *Database[T]) SetDuplicatePolicy(p DuplicatePolicy) {
	db.policy.Store(int32(p))
}

// Dimensions returns the dimensionality enforced on records and queries, or
// 0 while it is still unknown.
func (db *Database[T]) Dimensions() int {
	return db.store.dimensions()
}

// Add embeds payload and stores it under the current duplicate policy. It
// returns whether a record was stored; under DuplicateSkip an existing equal
// payload yields false and no error.
//
// If the provider fails or ctx is done before the record is committed, the
// store is left unchanged.
func (db *Database[T]) Add(ctx context.Context, payload T) (bool, error) {
	text, err := db.textOf(payload)
	if err != nil {
		return false, err
	}

	emb, err := db.embed(ctx, text)
	if err != nil {
		return false, err
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	return db.commit(Record[T]{Payload: payload, Embedding: emb})
}

// AddRecord stores a record whose embedding was computed elsewhere.
func (db *Database[T]) AddRecord(rec Record[T]) (bool, error) {
	rec.Embedding = vector.Clone(rec.Embedding)
	return db.commit(rec)
}

func (db *Database[T]) commit(rec Record[T]) (bool, error) {
	policy := db.DuplicatePolicy()
	stored, err := db.store.insert(rec, policy)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return false, err
		}
		return false, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	db.logger.Debug("record added",
		"stored", stored,
		"policy", policy.String(),
		"dimensions", len(rec.Embedding),
	)
	return stored, nil
}

// AddRange embeds every payload, at most WithConcurrency at a time, and then
// inserts them in order as a single atomic step. Any provider or duplicate
// error aborts the whole batch with nothing inserted. It returns the number
// of records stored.
func (db *Database[T]) AddRange(ctx context.Context, payloads ...T) (int, error) {
	if len(payloads) == 0 {
		return 0, nil
	}

	recs := make([]Record[T], len(payloads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(db.concurrency)
	for i, payload := range payloads {
		g.Go(func() error {
			text, err := db.textOf(payload)
			if err != nil {
				return err
			}
			emb, err := db.embed(gctx, text)
			if err != nil {
				return err
			}
			recs[i] = Record[T]{Payload: payload, Embedding: emb}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	policy := db.DuplicatePolicy()
	added, err := db.store.insertAll(recs, policy)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	db.logger.Debug("records added",
		"requested", len(payloads),
		"stored", added,
		"policy", policy.String(),
	)
	return added, nil
}

// Remove deletes every record whose payload equals payload and returns how
// many were removed. Removing an absent payload is a no-op.
func (db *Database[T]) Remove(payload T) int {
	n := db.store.remove(payload)
	if n > 0 {
		db.logger.Debug("records removed", "count", n)
	}
	return n
}

// Contains reports whether a record with an equal payload is stored.
func (db *Database[T]) Contains(payload T) bool {
	return db.store.contains(payload)
}

// Count returns the number of stored records.
func (db *Database[T]) Count() int {
	return db.store.count()
}

// Records returns a point-in-time copy of every record in insertion order.
// Embeddings are copied; payloads are copied by value.
func (db *Database[T]) Records() []Record[T] {
	entries := db.store.snapshot()
	out := make([]Record[T], len(entries))
	for i, e := range entries {
		out[i] = e.rec
	}
	return out
}

// Clear removes every record.
func (db *Database[T]) Clear() {
	db.store.clear()
	db.logger.Debug("database cleared")
}

// ReplaceAll atomically swaps the whole record sequence for recs. The
// records must share one dimensionality; otherwise nothing changes.
func (db *Database[T]) ReplaceAll(recs []Record[T]) error {
	if err := db.store.replaceAll(recs); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// Close closes the embedder.
func (db *Database[T]) Close() error {
	return db.embedder.Close()
}

func (db *Database[T]) textOf(payload T) (string, error) {
	text, err := db.text(payload)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%w: payload text is empty", ErrValidation)
	}
	return text, nil
}

func (db *Database[T]) embed(ctx context.Context, text string) ([]float32, error) {
	emb, err := db.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, vector.ErrEmbedding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", vector.ErrEmbedding, err)
	}
	if len(emb) == 0 {
		return nil, fmt.Errorf("%w: %w", vector.ErrEmbedding, vector.ErrEmptyEmbedding)
	}
	return emb, nil
}
