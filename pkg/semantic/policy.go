package semantic

import (
	"fmt"
	"strings"
)

// DuplicatePolicy decides what Add does when an equal payload is already
// stored. Equality is payload equality, never embedding similarity.
type DuplicatePolicy int

const (
	// DuplicateAllow appends unconditionally.
	DuplicateAllow DuplicatePolicy = iota

	// DuplicateUpdate removes every equal record, then appends the new one.
	DuplicateUpdate

	// DuplicateSkip leaves the store untouched when an equal record exists.
	DuplicateSkip

	// DuplicateReject fails with ErrAlreadyExists when an equal record exists.
	DuplicateReject
)

func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateAllow:
		return "allow"
	case DuplicateUpdate:
		return "update"
	case DuplicateSkip:
		return "skip"
	case DuplicateReject:
		return "reject"
	default:
		return fmt.Sprintf("DuplicatePolicy(%d)", int(p))
	}
}

// ParseDuplicatePolicy parses the names produced by String. "throw" is
// accepted as an alias for "reject".
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow", "":
		return DuplicateAllow, nil
	case "update":
		return DuplicateUpdate, nil
	case "skip":
		return DuplicateSkip, nil
	case "reject", "throw":
		return DuplicateReject, nil
	default:
		return 0, fmt.Errorf("%w: unknown duplicate policy %q (valid: allow, update, skip, reject)", ErrValidation, s)
	}
}
