package stt

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

const providerMock = "mock"

// Phrases are the utterances the mock pretends to hear.
var Phrases = []string{
	"Hello, how are you today?",
	"What's the weather like outside?",
	"Can you tell me a story?",
	"I want to learn something new",
	"What time is it right now?",
	"Tell me a funny joke",
	"Help me with my homework",
	"Let's play a game together",
	"What's your favorite color?",
	"Can you sing a song?",
}

// Mock returns a random canned phrase with confidence in [0.85, 0.95]
// after a simulated delay. TranscribeFunc overrides that behaviour.
type Mock struct {
	TranscribeFunc func(ctx context.Context, audio *Audio) (*Result, error)

	config *Config

	mu    sync.Mutex
	rng   *rand.Rand
	calls int
}

// NewMock creates the canned-phrase backend.
func NewMock(opts ...Option) *Mock {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Mock{
		config: cfg,
		rng:    rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// Transcribe implements Transcriber.
func (m *Mock) Transcribe(ctx context.Context, audio *Audio) (*Result, error) {
	m.mu.Lock()
	m.calls++
	fn := m.TranscribeFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, audio)
	}
	if audio == nil || len(audio.Data) == 0 {
		return nil, WrapError(providerMock, ErrEmptyAudio)
	}

	start := time.Now()
	m.mu.Lock()
	delay := m.config.MinLatency
	if span := m.config.MaxLatency - m.config.MinLatency; span > 0 {
		delay += time.Duration(m.rng.Int64N(int64(span)))
	}
	text := Phrases[m.rng.IntN(len(Phrases))]
	confidence := 0.85 + m.rng.Float64()*0.1
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.config.Logger.Debug("mock transcription", "text", text, "bytes", len(audio.Data))
	return &Result{
		Text:             text,
		Confidence:       confidence,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// Calls returns how many times Transcribe ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Health always succeeds.
func (m *Mock) Health(ctx context.Context) error { return nil }

// Close is a no-op.
func (m *Mock) Close() error { return nil }

var _ Transcriber = (*Mock)(nil)
