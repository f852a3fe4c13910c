package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch is returned when two vectors that must share a
	// dimensionality do not.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrEmptyEmbedding is returned when a provider or caller supplies a
	// zero-length vector.
	ErrEmptyEmbedding = errors.New("empty embedding")
)

// DimensionMismatchError reports the expected and actual dimensionality of a
// rejected vector. It matches ErrDimensionMismatch via errors.Is.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// CheckDimensions returns a *DimensionMismatchError when got differs from want.
func CheckDimensions(want, got int) error {
	if want != got {
		return &DimensionMismatchError{Expected: want, Actual: got}
	}
	return nil
}
