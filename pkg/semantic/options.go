package semantic

import "log/slog"

const defaultConcurrency = 4

type options[T any] struct {
	policy      DuplicatePolicy
	dimensions  int
	concurrency int
	logger      *slog.Logger
	text        func(T) (string, error)
}

// Option configures a Database at construction.
type Option[T any] func(*options[T])

// WithDuplicatePolicy sets the initial duplicate policy. Defaults to DuplicateAllow.
func WithDuplicatePolicy[T any](p DuplicatePolicy) Option[T] {
	return func(o *options[T]) {
		o.policy = p
	}
}

// WithDimensions pins the embedding dimensionality. Zero, the default, adopts
// the dimensionality of the first stored record.
func WithDimensions[T any](n int) Option[T] {
	return func(o *options[T]) {
		o.dimensions = n
	}
}

// WithConcurrency bounds the number of concurrent provider calls made by
// AddRange and Refresh.
func WithConcurrency[T any](n int) Option[T] {
	return func(o *options[T]) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(o *options[T]) {
		o.logger = l
	}
}

// WithTextFunc overrides how a payload is turned into the text sent to the
// embedding provider.
func WithTextFunc[T any](fn func(T) (string, error)) Option[T] {
	return func(o *options[T]) {
		o.text = fn
	}
}
