package audioio

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// MockSink keeps every sample written to it. Writes can be made to fail
// and Flush can be made to take time.
type MockSink struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	open       bool
	closed     bool
	samples    []int16
	pending    int
	flushes    int
	failWith   error
	flushDelay time.Duration
}

var _ Sink = (*MockSink)(nil)

func NewMockSink(cfg Config, logger *slog.Logger) *MockSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockSink{cfg: cfg, logger: logger.With("component", "audioio.mock_sink")}
}

// FailWrites makes every later Write return err.
func (m *MockSink) FailWrites(err error) {
	m.mu.Lock()
	m.failWith = err
	m.mu.Unlock()
}

// SetFlushDelay makes Flush block for d.
func (m *MockSink) SetFlushDelay(d time.Duration) {
	m.mu.Lock()
	m.flushDelay = d
	m.mu.Unlock()
}

func (m *MockSink) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return io.ErrClosedPipe
	}
	m.open = true
	return nil
}

func (m *MockSink) Stop() error {
	m.mu.Lock()
	m.open = false
	m.mu.Unlock()
	return nil
}

func (m *MockSink) Write(_ context.Context, chunk AudioChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return io.ErrClosedPipe
	}
	if m.failWith != nil {
		return m.failWith
	}
	m.samples = append(m.samples, chunk.Samples...)
	m.pending += len(chunk.Samples)
	return nil
}

func (m *MockSink) Flush(ctx context.Context) error {
	m.mu.Lock()
	d := m.flushDelay
	m.mu.Unlock()

	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	m.mu.Lock()
	m.pending = 0
	m.flushes++
	m.mu.Unlock()
	return nil
}

func (m *MockSink) Clear() error {
	m.mu.Lock()
	m.pending = 0
	m.mu.Unlock()
	return nil
}

// Written returns a copy of everything accepted so far.
func (m *MockSink) Written() []int16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.samples)
}

// Flushes counts completed Flush calls.
func (m *MockSink) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}

func (m *MockSink) Config() Config { return m.cfg }
func (m *MockSink) Name() string   { return string(BackendMock) }

func (m *MockSink) Close() error {
	m.mu.Lock()
	m.open, m.closed = false, true
	m.mu.Unlock()
	return nil
}
