package semantic

import (
	"context"
	"fmt"

	"github.com/chataize/semantic-index/pkg/topk"
)

// SearchScored returns up to k payloads with the highest dot product against
// query, best first, together with their scores. k <= 0 returns nothing and
// k larger than the store returns every record. A query whose dimensionality
// differs from the stored records fails with vector.ErrDimensionMismatch.
func (db *Database[T]) SearchScored(ctx context.Context, query []float32, k int) ([]topk.Scored[T], error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results, err := db.store.search(query, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	db.logger.Debug("search complete", "top_k", k, "results", len(results))
	return results, nil
}

// Search is SearchScored without the scores.
func (db *Database[T]) Search(ctx context.Context, query []float32, k int) ([]T, error) {
	results, err := db.SearchScored(ctx, query, k)
	if err != nil {
		return nil, err
	}
	return items(results), nil
}

// SearchText embeds text and searches with the resulting vector.
func (db *Database[T]) SearchText(ctx context.Context, text string, k int) ([]T, error) {
	results, err := db.SearchTextScored(ctx, text, k)
	if err != nil {
		return nil, err
	}
	return items(results), nil
}

// SearchTextScored is SearchText with scores.
func (db *Database[T]) SearchTextScored(ctx context.Context, text string, k int) ([]topk.Scored[T], error) {
	if text == "" {
		return nil, fmt.Errorf("%w: query text is empty", ErrValidation)
	}
	if k <= 0 {
		return nil, nil
	}

	query, err := db.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return db.SearchScored(ctx, query, k)
}

// SearchObject serializes query to text the same way payloads are, embeds
// it and searches with the resulting vector.
func (db *Database[T]) SearchObject(ctx context.Context, query any, k int) ([]T, error) {
	text, err := Text(query)
	if err != nil {
		return nil, err
	}
	return db.SearchText(ctx, text, k)
}

// SearchFirst returns the single best match for query. ok is false when the
// store is empty.
func (db *Database[T]) SearchFirst(ctx context.Context, query []float32) (best T, ok bool, err error) {
	return first(db.Search(ctx, query, 1))
}

// SearchFirstText returns the single best match for text.
func (db *Database[T]) SearchFirstText(ctx context.Context, text string) (best T, ok bool, err error) {
	return first(db.SearchText(ctx, text, 1))
}

// SearchFirstObject returns the single best match for a structured query.
func (db *Database[T]) SearchFirstObject(ctx context.Context, query any) (best T, ok bool, err error) {
	return first(db.SearchObject(ctx, query, 1))
}

func items[T any](results []topk.Scored[T]) []T {
	out := make([]T, len(results))
	for i, r := range results {
		out[i] = r.Item
	}
	return out
}

func first[T any](results []T, err error) (T, bool, error) {
	var zero T
	if err != nil {
		return zero, false, err
	}
	if len(results) == 0 {
		return zero, false, nil
	}
	return results[0], true, nil
}
