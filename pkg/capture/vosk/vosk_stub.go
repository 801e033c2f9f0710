//go:build !vosk

package vosk

import (
	"context"
	"errors"
)

// Available reports whether Vosk support is compiled in.
const Available = false

// ErrNotBuilt is returned when the binary was built without the vosk tag.
var ErrNotBuilt = errors.New("vosk: not built in (build with -tags vosk)")

// Recognizer is unavailable in this build.
type Recognizer struct{}

// New always fails without the vosk build tag.
func New(modelPath string, sampleRate int) (*Recognizer, error) {
	return nil, ErrNotBuilt
}

// Recognize always fails.
func (r *Recognizer) Recognize(ctx context.Context, pcm []int16, sampleRate int) (string, error) {
	return "", ErrNotBuilt
}

// Close is a no-op.
func (r *Recognizer) Close() error { return nil }
