package capture

import (
	"errors"
	"fmt"
)

// ErrCapture is the base of every illegal-call and device error.
var ErrCapture = errors.New("capture")

// Capture errors. All match errors.Is(err, ErrCapture).
var (
	ErrNotInitialized   = fmt.Errorf("%w: not initialized", ErrCapture)
	ErrAlreadyCapturing = fmt.Errorf("%w: already capturing", ErrCapture)
	ErrNotCapturing     = fmt.Errorf("%w: not capturing", ErrCapture)
	ErrDisposed         = fmt.Errorf("%w: disposed", ErrCapture)
)

// ErrInitialization wraps device acquisition failures.
var ErrInitialization = errors.New("capture: initialization failed")

// ErrRecognizerUnavailable is returned by TranscribePrimary when no
// on-device recognizer is configured.
var ErrRecognizerUnavailable = errors.New("capture: recognizer unavailable")

// RecognitionError reports a failed primary recognition.
type RecognitionError struct {
	// Reason is a short code: "no-speech", "timeout", "aborted" or "engine".
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *RecognitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture: recognition failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("capture: recognition failed (%s)", e.Reason)
}

// Unwrap returns the underlying error.
func (e *RecognitionError) Unwrap() error {
	return e.Err
}
