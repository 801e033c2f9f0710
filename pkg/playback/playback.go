// Package playback plays synthesized float sample buffers to an audio sink
// and signals exactly once when output ends.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-voiceloop/pkg/audioio"
)

// ErrInvalidSampleRate is returned for a non-positive sample rate.
var ErrInvalidSampleRate = errors.New("playback: invalid sample rate")

// Error wraps an output device failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("playback: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Option configures a Player.
type Option func(*Player)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Player) {
		p.logger = logger
	}
}

// Player owns an output sink. One buffer plays at a time; a new Play
// cancels the previous one.
type Player struct {
	sink   audioio.Sink
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a player over sink.
func New(sink audioio.Sink, opts ...Option) *Player {
	p := &Player{sink: sink, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "playback.player", "sink", sink.Name())
	return p
}

// Play starts output of samples recorded at sampleRate. Samples are clamped
// to [-1, 1] and resampled to the sink rate. The returned channel receives
// nil or an *Error exactly once and is then closed.
func (p *Player) Play(ctx context.Context, samples []float32, sampleRate int) (<-chan error, error) {
	if sampleRate <= 0 {
		return nil, &Error{Op: "prepare", Err: ErrInvalidSampleRate}
	}

	p.Stop()

	if err := p.sink.Start(ctx); err != nil {
		return nil, &Error{Op: "start", Err: err}
	}

	cfg := p.sink.Config()
	pcm := audioio.FloatToPCM16(samples)
	if cfg.SampleRate > 0 && cfg.SampleRate != sampleRate {
		pcm = audioio.Resample(pcm, sampleRate, cfg.SampleRate)
	}
	if cfg.Channels == 2 {
		pcm = audioio.MonoToStereo(pcm)
	}

	playCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	result := make(chan error, 1)
	go func() {
		defer close(done)
		defer close(result)
		defer cancel()

		start := time.Now()
		err := p.write(playCtx, pcm, cfg)
		if err != nil {
			p.logger.Warn("playback failed", "error", err)
		} else {
			p.logger.Debug("playback finished",
				"samples", len(pcm),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		}
		result <- err
	}()

	return result, nil
}

func (p *Player) write(ctx context.Context, pcm []int16, cfg audioio.Config) error {
	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	step := cfg.BufferSize() * channels
	if step <= 0 {
		step = len(pcm)
	}

	for off := 0; off < len(pcm); off += step {
		end := min(off+step, len(pcm))
		chunk := audioio.AudioChunk{
			Samples:    pcm[off:end],
			SampleRate: cfg.SampleRate,
			Channels:   channels,
		}
		if err := p.sink.Write(ctx, chunk); err != nil {
			return &Error{Op: "write", Err: err}
		}
	}
	if err := p.sink.Flush(ctx); err != nil {
		return &Error{Op: "flush", Err: err}
	}
	return nil
}

// Stop interrupts the current buffer, if any, and discards queued audio.
// The interrupted Play still delivers its single result.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if err := p.sink.Clear(); err != nil {
		p.logger.Debug("clear failed", "error", err)
	}
	<-done
}

// Close stops playback and releases the sink.
func (p *Player) Close() error {
	p.Stop()
	if err := p.sink.Stop(); err != nil {
		p.logger.Debug("sink stop failed", "error", err)
	}
	return p.sink.Close()
}
