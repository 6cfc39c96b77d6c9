package search

import (
	"errors"
	"fmt"
)

var (
	// ErrStateMismatch means an undo did not match the last move made. The
	// board and hash can no longer be trusted.
	ErrStateMismatch = errors.New("undo does not match the last move made")

	ErrInvalidOptions = errors.New("invalid search options")
	ErrNoSearchable   = errors.New("searcher has no searchable")
	ErrUnknownKind    = errors.New("unknown search strategy")
)

// StateMismatchError carries the two moves that failed to match.
type StateMismatchError struct {
	Expected *Move
	Got      *Move
}

func (e *StateMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", ErrStateMismatch, e.Expected, e.Got)
}

func (e *StateMismatchError) Unwrap() error {
	return ErrStateMismatch
}
