// Package tts provides a unified interface for text-to-speech providers.
//
// Providers return mono float samples in [-1, 1] together with their
// sample rate, ready for the synthesis engine to ship to playback.
// Backends: Formant (offline, no credentials), OpenAI speech, and Mock.
//
// Example usage:
//
//	provider, _ := tts.NewOpenAI(
//	    tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    tts.WithVoice(tts.VoiceNova),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Hello world")
//	// result.Samples holds result.SampleRate Hz mono audio
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider availability.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is a complete synthesis result.
type AudioResult struct {
	// Samples are mono floats in [-1, 1].
	Samples []float32

	// SampleRate in Hz.
	SampleRate int

	// Duration is the playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the time spent producing the audio.
	LatencyMs int64
}

// durationOf returns the playback time of n samples at rate Hz.
func durationOf(n, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}
