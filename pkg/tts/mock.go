package tts

import (
	"context"
	"sync"
	"time"
)

// Mock is a scripted Provider. By default it returns 10ms of low-level
// 16kHz audio per character of text.
type Mock struct {
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)
	HealthFunc     func(ctx context.Context) error

	mu      sync.Mutex
	texts   []string
	delay   time.Duration
	closed  int
	healthy int
}

var _ Provider = (*Mock)(nil)

// NewMock returns a mock that always speaks.
func NewMock() *Mock {
	return &Mock{}
}

// WithError returns a mock whose synthesis and health checks fail with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(context.Context, string) (*AudioResult, error) { return nil, err },
		HealthFunc:     func(context.Context) error { return err },
	}
}

// SetDelay makes every Synthesize wait d first, honouring ctx.
func (m *Mock) SetDelay(d time.Duration) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// Synthesize records text and returns the scripted result.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	delay, fn := m.delay, m.SynthesizeFunc
	m.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fn != nil {
		return fn(ctx, text)
	}
	if text == "" {
		return nil, WrapError("mock", ErrEmptyText)
	}

	samples := make([]float32, len(text)*160)
	for i := range samples {
		samples[i] = 0.01
	}
	return &AudioResult{
		Samples:    samples,
		SampleRate: 16000,
		Duration:   durationOf(len(samples), 16000),
		CharCount:  len(text),
		LatencyMs:  int64(delay / time.Millisecond),
	}, nil
}

// Health counts the check and returns HealthFunc's answer, nil by default.
func (m *Mock) Health(ctx context.Context) error {
	m.mu.Lock()
	m.healthy++
	fn := m.HealthFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// Close counts the call.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// Texts returns everything Synthesize was asked to say.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// HealthChecks returns how many times Health ran.
func (m *Mock) HealthChecks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed > 0
}
