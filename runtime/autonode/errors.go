package autonode

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingTarget reports a wired member whose key resolves to nothing in
	// either the fake graph or the real graph.
	ErrMissingTarget = errors.New("missing wiring target")
	// ErrTypeMismatch reports a target that does not satisfy the member's
	// declared type, even after capability adaptation.
	ErrTypeMismatch = errors.New("wiring target type mismatch")
)

// Kind classifies a WiringError.
type Kind int

const (
	MissingTarget Kind = iota + 1
	TypeMismatch
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case MissingTarget:
		return "missing target"
	case TypeMismatch:
		return "type mismatch"
	default:
		return "unknown"
	}
}

// WiringError describes why a member could not be wired.
type WiringError struct {
	Kind     Kind
	Subject  string // Name of the object being wired
	Member   string // Declared member name
	Key      string // Lookup key
	Expected string // Declared member type
	Found    string // Concrete type of the target, for TypeMismatch
}

// Error implements error.
func (e *WiringError) Error() string {
	switch e.Kind {
	case MissingTarget:
		return fmt.Sprintf(
			"node %s does not exist in the graph for member %s of type %s on %s",
			e.Key, e.Member, e.Expected, e.Subject,
		)
	case TypeMismatch:
		return fmt.Sprintf(
			"node %s of type %s does not satisfy the expected type %s for member %s on %s",
			e.Key, e.Found, e.Expected, e.Member, e.Subject,
		)
	default:
		return fmt.Sprintf("cannot wire member %s on %s", e.Member, e.Subject)
	}
}

// Unwrap returns the sentinel matching the error kind.
func (e *WiringError) Unwrap() error {
	switch e.Kind {
	case MissingTarget:
		return ErrMissingTarget
	case TypeMismatch:
		return ErrTypeMismatch
	default:
		return nil
	}
}
