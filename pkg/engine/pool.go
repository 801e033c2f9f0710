package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-voiceloop/pkg/protocol"
)

// Pool owns the transcription and synthesis channels.
type Pool struct {
	transcription *Channel
	synthesis     *Channel
	logger        *slog.Logger
	closeOnce     sync.Once
}

// NewPool builds a pool over one transport per engine.
func NewPool(transcription, synthesis Transport, opts ...Option) *Pool {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	return &Pool{
		transcription: NewChannel(TranscriptionEngine, transcription, opts...),
		synthesis:     NewChannel(SynthesisEngine, synthesis, opts...),
		logger:        cfg.Logger.With("component", "engine.pool"),
	}
}

// Initialize starts both engines in parallel and waits for both.
// The pool is ready only if both report ready; otherwise the returned
// *InitError names the engine that failed first.
func (p *Pool) Initialize(ctx context.Context) error {
	start := time.Now()

	var g errgroup.Group
	for _, ch := range []*Channel{p.transcription, p.synthesis} {
		g.Go(func() error {
			if err := ch.Initialize(ctx); err != nil {
				p.logger.Error("engine initialization failed", "engine", ch.Name(), "error", err)
				return &InitError{Engine: ch.Name(), Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	p.logger.Info("engine pool ready", "init_ms", time.Since(start).Milliseconds())
	return nil
}

// Ready reports whether both engines are ready.
func (p *Pool) Ready() bool {
	return p.transcription.State() == StateReady && p.synthesis.State() == StateReady
}

// Transcribe sends an encoded audio buffer to the transcription engine.
func (p *Pool) Transcribe(ctx context.Context, audio []byte, mimeType string) (*Transcription, error) {
	if err := p.requireReady(); err != nil {
		return nil, err
	}
	req, err := protocol.NewTranscribeMessage(audio, mimeType)
	if err != nil {
		return nil, err
	}
	reply, err := p.transcription.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	data, err := reply.GetTranscriptionResult()
	if err != nil {
		return nil, err
	}
	return &Transcription{
		Text:             data.Transcription,
		Confidence:       data.Confidence,
		ProcessingTimeMs: data.ProcessingTimeMs,
	}, nil
}

// Synthesize sends text to the synthesis engine.
func (p *Pool) Synthesize(ctx context.Context, text string) (*Synthesis, error) {
	if err := p.requireReady(); err != nil {
		return nil, err
	}
	req, err := protocol.NewSynthesizeMessage(text)
	if err != nil {
		return nil, err
	}
	reply, err := p.synthesis.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	data, err := reply.GetSynthesisResult()
	if err != nil {
		return nil, err
	}
	return &Synthesis{
		Samples:          data.Samples,
		SampleRate:       data.SampleRate,
		ProcessingTimeMs: data.ProcessingTimeMs,
	}, nil
}

// Close terminates both engines. Safe to call more than once and on a
// pool that was never initialized.
func (p *Pool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = errors.Join(p.transcription.Close(), p.synthesis.Close())
		p.logger.Debug("engine pool closed")
	})
	return err
}

// requireReady keeps a half-initialized pool from serving either engine.
func (p *Pool) requireReady() error {
	if !p.Ready() {
		return ErrNotReady
	}
	return nil
}
