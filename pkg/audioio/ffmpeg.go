package audioio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ffmpegCommand   = "ffmpeg"
	ffmpegInputFmt  = "pulse"
	ffmpegStartWait = 250 * time.Millisecond
	ffmpegStopWait  = 1200 * time.Millisecond
)

// captureFilters maps capture constraints onto ffmpeg audio filters.
// Echo cancellation has no ffmpeg filter; it is left to the sound server
// (for example a PulseAudio echo-cancel source selected as Device).
func captureFilters(c Constraints) string {
	var filters []string
	if c.NoiseSuppression {
		filters = append(filters, "highpass=f=80", "afftdn")
	}
	if c.AutoGainControl {
		filters = append(filters, "dynaudnorm")
	}
	return strings.Join(filters, ",")
}

func ffmpegDevice(cfg Config) string {
	if cfg.Device == "" {
		return "default"
	}
	return cfg.Device
}

// ffmpegProc is one running ffmpeg subprocess.
type ffmpegProc struct {
	cmd     *exec.Cmd
	stderr  *bytes.Buffer
	waitErr chan error
}

// startFFmpeg runs ffmpeg with either its stdout (capture) or its stdin
// (playback) attached to a pipe.
func startFFmpeg(ctx context.Context, args []string, capture bool) (*ffmpegProc, io.ReadCloser, io.WriteCloser, error) {
	cmd := exec.CommandContext(ctx, ffmpegCommand, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	var (
		stdout io.ReadCloser
		stdin  io.WriteCloser
		err    error
	)
	if capture {
		if stdout, err = cmd.StdoutPipe(); err != nil {
			return nil, nil, nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
		}
	} else {
		if stdin, err = cmd.StdinPipe(); err != nil {
			return nil, nil, nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	p := &ffmpegProc{cmd: cmd, stderr: &stderr, waitErr: make(chan error, 1)}
	go func() {
		p.waitErr <- cmd.Wait()
		close(p.waitErr)
	}()

	select {
	case err := <-p.waitErr:
		if err != nil {
			return nil, nil, nil, fmt.Errorf("ffmpeg exited early: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, nil, nil, errors.New("ffmpeg exited early")
	case <-time.After(ffmpegStartWait):
	}
	return p, stdout, stdin, nil
}

// stop interrupts ffmpeg and kills it if it does not exit in time.
func (p *ffmpegProc) stop() error {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Signal(os.Interrupt)
	}
	var err error
	select {
	case err = <-p.waitErr:
	case <-time.After(ffmpegStopWait):
		_ = p.cmd.Process.Kill()
		err = <-p.waitErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// FFmpegSource captures PCM16 from PulseAudio through ffmpeg.
type FFmpegSource struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	proc   *ffmpegProc
	stream chan AudioChunk
	closed bool
}

// NewFFmpegSource creates an ffmpeg-backed capture source.
func NewFFmpegSource(cfg Config, logger *slog.Logger) *FFmpegSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegSource{cfg: cfg, logger: logger.With("component", "audioio.ffmpeg_source")}
}

func (s *FFmpegSource) args() []string {
	args := []string{
		"-nostdin", "-hide_banner", "-loglevel", "warning",
		"-f", ffmpegInputFmt, "-i", ffmpegDevice(s.cfg),
	}
	if f := captureFilters(s.cfg.Constraints); f != "" {
		args = append(args, "-af", f)
	}
	return append(args,
		"-ac", strconv.Itoa(s.cfg.Channels),
		"-ar", strconv.Itoa(s.cfg.SampleRate),
		"-f", "s16le", "-",
	)
}

// Start launches ffmpeg and begins reading chunks.
func (s *FFmpegSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.proc != nil {
		return nil
	}

	proc, stdout, _, err := startFFmpeg(context.WithoutCancel(ctx), s.args(), true)
	if err != nil {
		return err
	}
	if s.cfg.Constraints.EchoCancellation && s.cfg.Device == "" {
		s.logger.Debug("echo cancellation relies on the default pulse source")
	}

	s.proc = proc
	s.stream = make(chan AudioChunk, 64)
	go s.readLoop(stdout, s.stream)
	return nil
}

func (s *FFmpegSource) readLoop(stdout io.Reader, out chan<- AudioChunk) {
	defer close(out)
	buf := make([]byte, s.cfg.BufferBytes())
	for {
		n, err := io.ReadFull(stdout, buf)
		if n > 0 {
			var chunk AudioChunk
			chunk.FromBytes(buf[:n], s.cfg.SampleRate, s.cfg.Channels)
			out <- chunk
		}
		if err != nil {
			return
		}
	}
}

// Stop terminates ffmpeg. Chunks already read remain available.
func (s *FFmpegSource) Stop() error {
	s.mu.Lock()
	proc := s.proc
	s.proc = nil
	s.mu.Unlock()

	if proc == nil {
		return nil
	}
	err := proc.stop()
	if err != nil {
		s.logger.Warn("ffmpeg capture stop", "error", err, "stderr", strings.TrimSpace(proc.stderr.String()))
	}
	return err
}

// Read returns the next captured chunk.
func (s *FFmpegSource) Read(ctx context.Context) (AudioChunk, error) {
	s.mu.Lock()
	ch := s.stream
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

// Config returns the audio configuration.
func (s *FFmpegSource) Config() Config { return s.cfg }

// Name returns "ffmpeg".
func (s *FFmpegSource) Name() string { return string(BackendFFmpeg) }

// Close stops capture and prevents restarts.
func (s *FFmpegSource) Close() error {
	err := s.Stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}

// FFmpegSink plays PCM16 to PulseAudio through ffmpeg.
// Each Start..Flush cycle runs one ffmpeg process.
type FFmpegSink struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	proc   *ffmpegProc
	stdin  io.WriteCloser
	closed bool
}

// NewFFmpegSink creates an ffmpeg-backed playback sink.
func NewFFmpegSink(cfg Config, logger *slog.Logger) *FFmpegSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegSink{cfg: cfg, logger: logger.With("component", "audioio.ffmpeg_sink")}
}

// Start launches ffmpeg reading PCM16 from stdin.
func (s *FFmpegSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.proc != nil {
		return nil
	}

	args := []string{
		"-hide_banner", "-loglevel", "warning",
		"-f", "s16le",
		"-ar", strconv.Itoa(s.cfg.SampleRate),
		"-ac", strconv.Itoa(s.cfg.Channels),
		"-i", "-",
		"-f", ffmpegInputFmt, ffmpegDevice(s.cfg),
	}
	proc, _, stdin, err := startFFmpeg(context.WithoutCancel(ctx), args, false)
	if err != nil {
		return err
	}
	s.proc = proc
	s.stdin = stdin
	return nil
}

// Write sends a chunk to ffmpeg.
func (s *FFmpegSink) Write(ctx context.Context, chunk AudioChunk) error {
	s.mu.Lock()
	stdin := s.stdin
	s.mu.Unlock()
	if stdin == nil {
		return io.ErrClosedPipe
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := stdin.Write(chunk.Bytes())
	return err
}

// Flush closes ffmpeg's input and waits for it to finish playing.
func (s *FFmpegSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	proc, stdin := s.proc, s.stdin
	s.proc, s.stdin = nil, nil
	s.mu.Unlock()

	if proc == nil {
		return nil
	}
	if err := stdin.Close(); err != nil {
		return err
	}
	select {
	case err := <-proc.waitErr:
		if err != nil {
			return fmt.Errorf("ffmpeg playback: %w: %s", err, strings.TrimSpace(proc.stderr.String()))
		}
		return nil
	case <-ctx.Done():
		_ = proc.stop()
		return ctx.Err()
	}
}

// Clear aborts the current playback.
func (s *FFmpegSink) Clear() error {
	return s.Stop()
}

// Stop terminates any running playback process.
func (s *FFmpegSink) Stop() error {
	s.mu.Lock()
	proc, stdin := s.proc, s.stdin
	s.proc, s.stdin = nil, nil
	s.mu.Unlock()

	if proc == nil {
		return nil
	}
	_ = stdin.Close()
	return proc.stop()
}

// Config returns the audio configuration.
func (s *FFmpegSink) Config() Config { return s.cfg }

// Name returns "ffmpeg".
func (s *FFmpegSink) Name() string { return string(BackendFFmpeg) }

// Close stops playback and prevents restarts.
func (s *FFmpegSink) Close() error {
	err := s.Stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}

var (
	_ Source = (*FFmpegSource)(nil)
	_ Sink   = (*FFmpegSink)(nil)
)
