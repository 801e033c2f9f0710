package capture

import "context"

// Recognizer is an on-device, single-utterance speech recognizer.
type Recognizer interface {
	// Recognize returns the best hypothesis for mono PCM16 at sampleRate.
	Recognize(ctx context.Context, pcm []int16, sampleRate int) (string, error)

	// Close releases the recognizer.
	Close() error
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, pcm []int16, sampleRate int) (string, error)

// Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, pcm []int16, sampleRate int) (string, error) {
	return f(ctx, pcm, sampleRate)
}

// Close is a no-op.
func (f RecognizerFunc) Close() error { return nil }
