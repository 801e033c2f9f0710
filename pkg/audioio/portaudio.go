//go:build portaudio

package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

const portAudioAvailable = true

var (
	paMu   sync.Mutex
	paRefs int
)

// paAcquire initializes PortAudio on first use.
func paAcquire() error {
	paMu.Lock()
	defer paMu.Unlock()
	if paRefs == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("portaudio: initialize: %w", err)
		}
	}
	paRefs++
	return nil
}

// paRelease terminates PortAudio when the last user is gone.
func paRelease() {
	paMu.Lock()
	defer paMu.Unlock()
	if paRefs == 0 {
		return
	}
	paRefs--
	if paRefs == 0 {
		portaudio.Terminate()
	}
}

// portAudioSource captures from the default input device.
type portAudioSource struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	buffer  []int16
	chunks  chan AudioChunk
	running bool
	closed  bool
	done    chan struct{}
}

func newPortAudioSource(cfg Config, logger *slog.Logger) (Source, error) {
	if err := paAcquire(); err != nil {
		return nil, err
	}
	return &portAudioSource{
		cfg:    cfg,
		logger: logger.With("component", "audioio.portaudio_source"),
		buffer: make([]int16, cfg.BufferSize()*cfg.Channels),
	}, nil
}

func (s *portAudioSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	stream, err := portaudio.OpenDefaultStream(s.cfg.Channels, 0, float64(s.cfg.SampleRate), s.cfg.BufferSize(), s.buffer)
	if err != nil {
		return fmt.Errorf("portaudio: open input: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("portaudio: start input: %w", err)
	}

	s.stream = stream
	s.running = true
	s.chunks = make(chan AudioChunk, 64)
	s.done = make(chan struct{})
	go s.recordLoop(stream, s.chunks, s.done)
	return nil
}

func (s *portAudioSource) recordLoop(stream *portaudio.Stream, out chan<- AudioChunk, done chan<- struct{}) {
	defer close(done)
	defer close(out)

	for {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if !running {
			return
		}

		available, err := stream.AvailableToRead()
		if err != nil || available == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err := stream.Read(); err != nil {
			s.logger.Debug("portaudio read", "error", err)
			time.Sleep(5 * time.Millisecond)
			continue
		}

		samples := make([]int16, len(s.buffer))
		copy(samples, s.buffer)
		select {
		case out <- AudioChunk{Samples: samples, SampleRate: s.cfg.SampleRate, Channels: s.cfg.Channels}:
		default:
			s.logger.Debug("portaudio source: buffer full, dropping chunk")
		}
	}
}

func (s *portAudioSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	stream, done := s.stream, s.done
	s.stream = nil
	s.mu.Unlock()

	<-done
	err := stream.Stop()
	if cerr := stream.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *portAudioSource) Read(ctx context.Context) (AudioChunk, error) {
	s.mu.Lock()
	ch := s.chunks
	s.mu.Unlock()
	if ch == nil {
		return AudioChunk{}, io.EOF
	}
	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case chunk, ok := <-ch:
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return chunk, nil
	}
}

func (s *portAudioSource) Config() Config { return s.cfg }
func (s *portAudioSource) Name() string   { return string(BackendPortAudio) }

func (s *portAudioSource) Close() error {
	err := s.Stop()
	s.mu.Lock()
	wasClosed := s.closed
	s.closed = true
	s.mu.Unlock()
	if !wasClosed {
		paRelease()
	}
	return err
}

// portAudioSink plays to the default output device with blocking writes.
type portAudioSink struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	buffer []int16
	closed bool
}

func newPortAudioSink(cfg Config, logger *slog.Logger) (Sink, error) {
	if err := paAcquire(); err != nil {
		return nil, err
	}
	return &portAudioSink{
		cfg:    cfg,
		logger: logger.With("component", "audioio.portaudio_sink"),
		buffer: make([]int16, cfg.BufferSize()*cfg.Channels),
	}, nil
}

func (s *portAudioSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.stream != nil {
		return nil
	}
	stream, err := portaudio.OpenDefaultStream(0, s.cfg.Channels, float64(s.cfg.SampleRate), s.cfg.BufferSize(), s.buffer)
	if err != nil {
		return fmt.Errorf("portaudio: open output: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("portaudio: start output: %w", err)
	}
	s.stream = stream
	return nil
}

// Write blocks until the chunk has been handed to the device.
func (s *portAudioSink) Write(ctx context.Context, chunk AudioChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return io.ErrClosedPipe
	}
	samples := chunk.Samples
	for len(samples) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(s.buffer, samples)
		for i := n; i < len(s.buffer); i++ {
			s.buffer[i] = 0
		}
		if err := s.stream.Write(); err != nil {
			return fmt.Errorf("portaudio: write: %w", err)
		}
		samples = samples[n:]
	}
	return nil
}

// Flush is a no-op; Write already blocks on the device.
func (s *portAudioSink) Flush(ctx context.Context) error { return nil }

func (s *portAudioSink) Clear() error { return nil }

func (s *portAudioSink) Stop() error {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()
	if stream == nil {
		return nil
	}
	err := stream.Stop()
	if cerr := stream.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *portAudioSink) Config() Config { return s.cfg }
func (s *portAudioSink) Name() string   { return string(BackendPortAudio) }

func (s *portAudioSink) Close() error {
	err := s.Stop()
	s.mu.Lock()
	wasClosed := s.closed
	s.closed = true
	s.mu.Unlock()
	if !wasClosed {
		paRelease()
	}
	return err
}
