package audioio

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// MockSource produces one buffer of audio every Config.BufferDuration.
// Scripted samples come first, then a sine tone if configured, then
// silence.
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	script   []int16
	toneHz   float64
	toneAmp  float64
	startErr error

	mu      sync.Mutex
	out     chan AudioChunk
	stop    chan struct{}
	pos     int
	phase   float64
	closed  bool
	emitted atomic.Int64
}

var _ Source = (*MockSource)(nil)

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave emits a tone at hz with amplitude amp in [0,1].
func WithSineWave(hz, amp float64) MockSourceOption {
	return func(m *MockSource) { m.toneHz, m.toneAmp = hz, amp }
}

// WithSamples replays samples from the start of every capture.
func WithSamples(samples []int16) MockSourceOption {
	return func(m *MockSource) { m.script = samples }
}

// WithStartError makes Start fail with err.
func WithStartError(err error) MockSourceOption {
	return func(m *MockSource) { m.startErr = err }
}

func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}
	m := &MockSource{cfg: cfg, logger: logger.With("component", "audioio.mock_source"), toneAmp: 0.5}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.closed:
		return io.ErrClosedPipe
	case m.startErr != nil:
		return m.startErr
	case m.stop != nil:
		return nil
	}
	m.pos, m.phase = 0, 0
	m.stop = make(chan struct{})
	m.out = make(chan AudioChunk, 64)
	go m.produce(ctx, m.stop, m.out)
	return nil
}

func (m *MockSource) produce(ctx context.Context, stop <-chan struct{}, out chan<- AudioChunk) {
	defer close(out)
	tick := time.NewTicker(m.cfg.BufferDuration)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-tick.C:
		}
		select {
		case out <- m.next():
			m.emitted.Add(1)
		default:
			m.logger.Debug("reader too slow, dropping buffer")
		}
	}
}

func (m *MockSource) next() AudioChunk {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := m.cfg.Channels
	frames := m.cfg.BufferSize()
	buf := make([]int16, frames*ch)
	step := 2 * math.Pi * m.toneHz / float64(m.cfg.SampleRate)
	for f := range frames {
		var v int16
		if m.pos < len(m.script) {
			v = m.script[m.pos]
			m.pos++
		} else if m.toneHz > 0 {
			v = int16(m.toneAmp * math.MaxInt16 * math.Sin(m.phase))
			m.phase = math.Mod(m.phase+step, 2*math.Pi)
		}
		for c := range ch {
			buf[f*ch+c] = v
		}
	}
	return AudioChunk{Samples: buf, SampleRate: m.cfg.SampleRate, Channels: ch}
}

// Stop ends production; chunks already queued stay readable.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
	return nil
}

func (m *MockSource) Read(ctx context.Context) (AudioChunk, error) {
	m.mu.Lock()
	out := m.out
	m.mu.Unlock()
	if out == nil {
		return AudioChunk{}, io.EOF
	}
	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case c, ok := <-out:
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return c, nil
	}
}

func (m *MockSource) Config() Config { return m.cfg }
func (m *MockSource) Name() string   { return string(BackendMock) }

// Running reports whether the source is producing.
func (m *MockSource) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stop != nil
}

func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// ChunksRead counts buffers handed to the reader queue.
func (m *MockSource) ChunksRead() int64 { return m.emitted.Load() }

func (m *MockSource) Close() error {
	_ = m.Stop()
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
