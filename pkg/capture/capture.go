// Package capture owns the microphone lifecycle for one session.
//
// A Controller opens the device once, then records one utterance per
// StartCapture/StopCapture pair. Captured audio is encoded into a
// length-prefixed codec stream every Timeslice for the transcription
// engine, and mirrored as raw PCM for the optional on-device recognizer
// behind TranscribePrimary.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-voiceloop/pkg/audioio"
	"github.com/teslashibe/go-voiceloop/pkg/codec"
)

// Recording is one captured utterance. It is handed to exactly one
// consumer.
type Recording struct {
	// Data is the encoded stream, see package codec.
	Data     []byte
	MIMEType string

	SampleRate int

	// Samples is the mono PCM the stream was encoded from.
	Samples []int16

	Duration time.Duration
}

// Controller records utterances from a capture device.
type Controller struct {
	cfg    *Config
	codec  codec.Codec
	logger *slog.Logger

	mu          sync.Mutex
	source      audioio.Source
	initialized bool
	capturing   bool
	disposed    bool

	pending []int16 // captured, not yet encoded
	pcm     []int16 // everything captured this utterance
	encoded bytes.Buffer

	cancel  context.CancelFunc
	done    chan struct{}
	readErr error
}

// New creates a controller. Call Initialize before capturing.
func New(opts ...Option) *Controller {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	cd := cfg.Codec
	if cd == nil {
		cd = defaultCodec(cfg.Audio.SampleRate)
	}
	return &Controller{
		cfg:    cfg,
		codec:  cd,
		logger: cfg.Logger.With("component", "capture.controller"),
	}
}

// defaultCodec prefers Opus when it is linked in.
func defaultCodec(rate int) codec.Codec {
	if c, err := codec.ForMIME(fmt.Sprintf("audio/opus;rate=%d", rate)); err == nil {
		return c
	}
	return codec.NewPCM(rate)
}

// Initialize acquires the capture device with the configured constraints.
// Calling it again after success is a no-op.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return ErrDisposed
	}
	if c.initialized {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	src, err := c.cfg.NewSource(c.cfg.Audio, c.cfg.Logger)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	if got := src.Config().SampleRate; got != c.codec.SampleRate() {
		src.Close()
		return fmt.Errorf("%w: device rate %d does not match codec rate %d",
			ErrInitialization, got, c.codec.SampleRate())
	}

	c.source = src
	c.initialized = true
	c.logger.Info("capture initialized",
		"backend", src.Name(),
		"mime_type", codec.MIMEType(c.codec),
		"recognizer", c.cfg.Recognizer != nil,
		"locale", c.cfg.Locale,
	)
	return nil
}

// Initialized reports whether the device was acquired.
func (c *Controller) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Capturing reports whether an utterance is being recorded.
func (c *Controller) Capturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capturing
}

// HasRecognizer reports whether the primary path is available.
func (c *Controller) HasRecognizer() bool {
	return c.cfg.Recognizer != nil
}

// StartCapture clears the buffer and begins recording. The recording
// outlives ctx; it ends with StopCapture or Dispose.
func (c *Controller) StartCapture(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.disposed:
		return ErrDisposed
	case !c.initialized:
		return ErrNotInitialized
	case c.capturing:
		return ErrAlreadyCapturing
	}

	c.pending = c.pending[:0]
	c.pcm = nil
	c.encoded.Reset()
	c.readErr = nil

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := c.source.Start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("%w: start device: %w", ErrCapture, err)
	}

	c.cancel = cancel
	c.done = make(chan struct{})
	c.capturing = true
	go c.record(runCtx, c.source, c.done)

	c.logger.Debug("capture started", "timeslice_ms", c.cfg.Timeslice.Milliseconds())
	return nil
}

// record drains the device until it reports EOF, encoding every
// Timeslice.
func (c *Controller) record(ctx context.Context, src audioio.Source, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.cfg.Timeslice)
	defer ticker.Stop()

	chunks := make(chan audioio.AudioChunk)
	errc := make(chan error, 1)
	go func() {
		defer close(chunks)
		for {
			chunk, err := src.Read(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					errc <- err
				}
				return
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				select {
				case err := <-errc:
					c.mu.Lock()
					c.readErr = err
					c.mu.Unlock()
				default:
				}
				return
			}
			c.append(chunk)
		case <-ticker.C:
			c.encodeFrames(false)
		}
	}
}

func (c *Controller) append(chunk audioio.AudioChunk) {
	mono := chunk.Samples
	if ch := chunk.Channels; ch > 1 {
		mono = make([]int16, len(chunk.Samples)/ch)
		for i := range mono {
			var sum int32
			for j := 0; j < ch; j++ {
				sum += int32(chunk.Samples[i*ch+j])
			}
			mono[i] = int16(sum / int32(ch))
		}
	}

	c.mu.Lock()
	c.pending = append(c.pending, mono...)
	c.pcm = append(c.pcm, mono...)
	c.mu.Unlock()
}

// encodeFrames moves whole frames from pending into the stream. With
// final set, a short trailing frame is zero-padded and flushed too.
func (c *Controller) encodeFrames(final bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := c.codec.FrameSize()
	n := len(c.pending) / size * size
	if final {
		n = len(c.pending)
	}
	if n == 0 {
		return
	}

	stream, err := codec.EncodeAll(c.codec, c.pending[:n])
	if err != nil {
		c.logger.Error("encode failed", "error", err)
		c.readErr = err
		return
	}
	c.encoded.Write(stream)
	c.pending = append(c.pending[:0], c.pending[n:]...)
}

// StopCapture ends the recording and returns the accumulated utterance.
// The device stays acquired for the next StartCapture.
func (c *Controller) StopCapture(ctx context.Context) (*Recording, error) {
	c.mu.Lock()
	if !c.capturing {
		c.mu.Unlock()
		return nil, ErrNotCapturing
	}
	src, done, cancel := c.source, c.done, c.cancel
	c.mu.Unlock()

	if err := src.Stop(); err != nil {
		c.logger.Warn("device stop failed", "error", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		cancel()
		<-done
	}
	cancel()
	c.encodeFrames(true)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.capturing = false

	if c.readErr != nil {
		return nil, fmt.Errorf("%w: device read: %w", ErrCapture, c.readErr)
	}

	rate := c.codec.SampleRate()
	rec := &Recording{
		Data:       bytes.Clone(c.encoded.Bytes()),
		MIMEType:   codec.MIMEType(c.codec),
		SampleRate: rate,
		Samples:    c.pcm,
		Duration:   time.Duration(len(c.pcm)) * time.Second / time.Duration(rate),
	}
	c.pcm = nil
	c.encoded.Reset()

	c.logger.Debug("capture stopped",
		"bytes", len(rec.Data),
		"duration_ms", rec.Duration.Milliseconds(),
	)
	return rec, nil
}

// TranscribePrimary runs one single-shot recognition over the utterance
// captured so far and returns the best hypothesis. An empty hypothesis
// is reported as a "no-speech" RecognitionError.
func (c *Controller) TranscribePrimary(ctx context.Context) (string, error) {
	rec := c.cfg.Recognizer
	if rec == nil {
		return "", ErrRecognizerUnavailable
	}

	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return "", ErrNotInitialized
	}
	pcm := append([]int16(nil), c.pcm...)
	c.mu.Unlock()

	if len(pcm) == 0 {
		return "", &RecognitionError{Reason: "no-speech"}
	}

	if c.cfg.RecognitionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RecognitionTimeout)
		defer cancel()
	}

	type result struct {
		text string
		err  error
	}
	out := make(chan result, 1)
	go func() {
		text, err := rec.Recognize(ctx, pcm, c.codec.SampleRate())
		out <- result{text, err}
	}()

	select {
	case r := <-out:
		if r.err != nil {
			return "", &RecognitionError{Reason: "engine", Err: r.err}
		}
		text := strings.TrimSpace(r.text)
		if text == "" {
			return "", &RecognitionError{Reason: "no-speech"}
		}
		return text, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &RecognitionError{Reason: "timeout", Err: ctx.Err()}
		}
		return "", &RecognitionError{Reason: "aborted", Err: ctx.Err()}
	}
}

// Dispose stops any recording and releases the device and recognizer.
// Safe to call more than once.
func (c *Controller) Dispose() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	src, done, cancel := c.source, c.done, c.cancel
	capturing := c.capturing
	c.capturing = false
	c.initialized = false
	c.source = nil
	c.mu.Unlock()

	var errs []error
	if capturing {
		cancel()
		if src != nil {
			src.Stop()
		}
		<-done
	}
	if src != nil {
		errs = append(errs, src.Close())
	}
	if c.cfg.Recognizer != nil {
		errs = append(errs, c.cfg.Recognizer.Close())
	}
	c.logger.Debug("capture disposed")
	return errors.Join(errs...)
}
