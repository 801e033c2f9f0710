package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotReady is returned when a request is made before the engine reported ready.
	ErrNotReady = errors.New("engine: not ready")

	// ErrConcurrentRequest is returned when a call overlaps an in-flight call on the same channel.
	ErrConcurrentRequest = errors.New("engine: request already in flight")

	// ErrTimeout is returned when the engine does not answer within the request timeout.
	ErrTimeout = errors.New("engine: request timed out")

	// ErrClosed is returned after the channel or transport has been closed.
	ErrClosed = errors.New("engine: closed")

	// ErrMalformed marks a frame that could not be decoded into a known message.
	ErrMalformed = errors.New("engine: malformed message")

	// ErrUnexpectedReply is returned when a correlated reply has the wrong kind.
	ErrUnexpectedReply = errors.New("engine: unexpected reply kind")
)

// InitError reports which engine failed to initialize.
type InitError struct {
	Engine Name
	Err    error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("engine [%s]: initialization failed: %v", e.Engine, e.Err)
}

// Unwrap returns the underlying error.
func (e *InitError) Unwrap() error {
	return e.Err
}

// RemoteError is an error reported by the engine itself.
type RemoteError struct {
	Engine  Name
	Message string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("engine [%s]: %s", e.Engine, e.Message)
}
