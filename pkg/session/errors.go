package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when an operation is not legal in the
	// current state. Nothing is changed.
	ErrInvalidState = errors.New("session: operation not allowed in current state")

	// ErrNotInitialized is returned by Start before Initialize succeeded.
	ErrNotInitialized = errors.New("session: not initialized")

	// ErrAborted is returned by Stop when Reset abandoned the turn.
	ErrAborted = errors.New("session: turn aborted")

	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("session: missing dependency")
)

// StageError records which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func invalidState(op string, s State) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidState, op, s)
}
