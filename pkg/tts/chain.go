package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Chain speaks with the first provider that produces audio. The usual
// chain is a remote voice backed by the offline Formant voice, so a turn
// still gets spoken when the network is down.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

var _ Provider = (*Chain)(nil)

// NewChain builds a chain over providers, tried in order.
func NewChain(providers ...Provider) (*Chain, error) {
	return NewChainWithLogger(slog.Default(), providers...)
}

// NewChainWithLogger is NewChain with an explicit logger.
func NewChainWithLogger(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		providers: providers,
		logger:    logger.With("component", "tts.chain"),
	}, nil
}

// Synthesize returns the first non-empty result. A provider that answers
// with no samples counts as failed.
func (c *Chain) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	failed := make([]error, 0, len(c.providers))
	for i, p := range c.providers {
		res, err := p.Synthesize(ctx, text)
		if err == nil && (res == nil || len(res.Samples) == 0) {
			err = ErrNoAudio
		}
		if err == nil {
			if i > 0 {
				c.logger.Info("spoke with fallback voice", "index", i, "sample_rate", res.SampleRate)
			}
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("voice failed", "index", i, "error", err)
		failed = append(failed, err)
	}
	return nil, &ChainError{Errors: failed}
}

// Health succeeds when any provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for _, p := range c.providers {
		err := p.Health(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("tts chain: no healthy voice: %w", errors.Join(errs...))
}

// Close closes every provider.
func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// ChainError lists why each voice in a chain failed, in order.
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	if len(e.Errors) == 1 {
		return "tts chain: " + e.Errors[0].Error()
	}
	return fmt.Sprintf("tts chain: %d voices failed: %v", len(e.Errors), errors.Join(e.Errors...))
}

// Unwrap exposes every failure to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error {
	return e.Errors
}
