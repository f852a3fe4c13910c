package semantic

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Refresh recomputes the embedding of every record, for example after the
// provider's model changed. The record list is copied under the read lock,
// every provider call runs with no lock held, and the new embeddings are
// swapped in under a single write lock. Records added during the refresh keep
// their embedding and records removed during it stay removed.
//
// On any provider error nothing is changed.
func (db *Database[T]) Refresh(ctx context.Context) error {
	entries := db.store.snapshot()
	if len(entries) == 0 {
		return nil
	}

	vecs := make([][]float32, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(db.concurrency)
	for i, e := range entries {
		g.Go(func() error {
			text, err := db.text(e.rec.Payload)
			if err != nil {
				return err
			}
			emb, err := db.embed(gctx, text)
			if err != nil {
				return err
			}
			vecs[i] = emb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	updates := make(map[uint64][]float32, len(entries))
	for i, e := range entries {
		updates[e.id] = vecs[i]
	}
	if err := db.store.reembed(updates); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	db.logger.Debug("embeddings refreshed", "count", len(entries))
	return nil
}
