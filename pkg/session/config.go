package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-voiceloop/pkg/capture"
	"github.com/teslashibe/go-voiceloop/pkg/engine"
	"github.com/teslashibe/go-voiceloop/pkg/history"
)

// Capture is the microphone side of a turn.
type Capture interface {
	Initialize(ctx context.Context) error
	StartCapture(ctx context.Context) error
	StopCapture(ctx context.Context) (*capture.Recording, error)
	TranscribePrimary(ctx context.Context) (string, error)
	Dispose() error
}

// Engines runs transcription and synthesis.
type Engines interface {
	Initialize(ctx context.Context) error
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*engine.Transcription, error)
	Synthesize(ctx context.Context, text string) (*engine.Synthesis, error)
	Close() error
}

// Completion produces the assistant reply and owns the conversation context.
type Completion interface {
	Complete(ctx context.Context, text string) (string, error)
	Reset()
}

// Playback plays a synthesized buffer. The returned channel delivers one
// result when output ends.
type Playback interface {
	Play(ctx context.Context, samples []float32, sampleRate int) (<-chan error, error)
	Stop()
}

// Deps are the collaborators of an Orchestrator. History is optional.
type Deps struct {
	Capture    Capture
	Engines    Engines
	Completion Completion
	Playback   Playback
	History    history.Sink
}

func (d *Deps) validate() error {
	switch {
	case d.Capture == nil:
		return fmt.Errorf("%w: capture", ErrMissingDependency)
	case d.Engines == nil:
		return fmt.Errorf("%w: engines", ErrMissingDependency)
	case d.Completion == nil:
		return fmt.Errorf("%w: completion", ErrMissingDependency)
	case d.Playback == nil:
		return fmt.Errorf("%w: playback", ErrMissingDependency)
	}
	if d.History == nil {
		d.History = history.Nop{}
	}
	return nil
}

// Config holds orchestrator settings.
type Config struct {
	// HistoryTimeout bounds the best-effort persistence write.
	HistoryTimeout time.Duration

	// MetricsWindow is how many completed turns are averaged.
	MetricsWindow int

	Logger *slog.Logger
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		HistoryTimeout: 5 * time.Second,
		MetricsWindow:  100,
		Logger:         slog.Default(),
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.HistoryTimeout <= 0 {
		c.HistoryTimeout = d.HistoryTimeout
	}
	if c.MetricsWindow <= 0 {
		c.MetricsWindow = d.MetricsWindow
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
}
