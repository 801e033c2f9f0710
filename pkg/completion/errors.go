package completion

import "fmt"

// Error is returned when the provider cannot be reached or fails the request.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("completion: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
