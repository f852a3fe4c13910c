package semantic

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for rejected arguments before any I/O happens.
	ErrValidation = errors.New("validation failed")

	// ErrAlreadyExists is returned by Add under DuplicateReject.
	ErrAlreadyExists = errors.New("payload already exists")

	// ErrPersistence is returned when a snapshot cannot be written or read.
	ErrPersistence = errors.New("persistence failed")
)

// DuplicateError carries the payload that was rejected. It matches
// ErrAlreadyExists via errors.Is.
type DuplicateError struct {
	Payload any
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("payload already exists: %v", e.Payload)
}

func (e *DuplicateError) Unwrap() error { return ErrAlreadyExists }

// PersistenceError describes a failed snapshot operation. It matches both
// ErrPersistence and the underlying cause.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s snapshot: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s snapshot %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }
