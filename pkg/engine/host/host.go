// Package host runs a transcription or synthesis backend behind the engine
// protocol. A Host answers initialize, transcribe, synthesize and stop on
// any engine.Transport, echoing each request id in its reply.
//
// In-process:
//
//	client, server := engine.Pipe()
//	go host.NewTranscription(stt.NewMock()).Serve(ctx, server)
//
// Out of process, see Server.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-voiceloop/pkg/engine"
	"github.com/teslashibe/go-voiceloop/pkg/protocol"
	"github.com/teslashibe/go-voiceloop/pkg/stt"
	"github.com/teslashibe/go-voiceloop/pkg/tts"
)

// ErrNotInitialized is reported for work requests before initialize.
var ErrNotInitialized = errors.New("host: engine not initialized")

// Host serves one engine kind.
type Host struct {
	name        engine.Name
	transcriber stt.Transcriber
	voice       tts.Provider
	logger      *slog.Logger
	initTimeout time.Duration

	mu    sync.Mutex
	ready bool
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) { h.logger = logger }
}

// WithInitTimeout bounds the backend health check run on initialize.
func WithInitTimeout(d time.Duration) Option {
	return func(h *Host) { h.initTimeout = d }
}

// NewTranscription serves t as the transcription engine.
func NewTranscription(t stt.Transcriber, opts ...Option) *Host {
	return newHost(engine.TranscriptionEngine, opts, func(h *Host) { h.transcriber = t })
}

// NewSynthesis serves p as the synthesis engine.
func NewSynthesis(p tts.Provider, opts ...Option) *Host {
	return newHost(engine.SynthesisEngine, opts, func(h *Host) { h.voice = p })
}

func newHost(name engine.Name, opts []Option, set func(*Host)) *Host {
	h := &Host{
		name:        name,
		logger:      slog.Default(),
		initTimeout: 30 * time.Second,
	}
	set(h)
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "engine.host", "engine", string(name))
	return h
}

// Name returns the engine kind served.
func (h *Host) Name() engine.Name {
	return h.name
}

// Serve answers requests on t until a stop message arrives, the link
// closes, or ctx is done. Work requests run on their own goroutine so a
// stop can cancel them. Serve closes t before returning.
func (h *Host) Serve(ctx context.Context, t engine.Transport) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		t.Close()
	}()

	for {
		msg, err := t.Recv(ctx)
		if err != nil {
			if errors.Is(err, engine.ErrMalformed) {
				h.logger.Warn("rejected request", "error", err)
				continue
			}
			if ctx.Err() != nil || errors.Is(err, engine.ErrClosed) {
				return nil
			}
			return err
		}

		switch msg.Kind {
		case protocol.KindStop:
			h.logger.Debug("stop received")
			return nil
		case protocol.KindInitialize, protocol.KindTranscribe, protocol.KindSynthesize:
			wg.Add(1)
			go func() {
				defer wg.Done()
				reply := h.Handle(ctx, msg)
				if err := t.Send(ctx, reply); err != nil {
					h.logger.Debug("reply not delivered", "kind", reply.Kind, "id", reply.ID, "error", err)
				}
			}()
		default:
			h.logger.Warn("ignoring message", "kind", msg.Kind, "id", msg.ID)
		}
	}
}

// Handle answers a single request. Errors become error replies.
func (h *Host) Handle(ctx context.Context, req *protocol.Message) *protocol.Message {
	var (
		reply *protocol.Message
		err   error
	)
	switch req.Kind {
	case protocol.KindInitialize:
		err = h.initialize(ctx)
		if err == nil {
			reply, err = protocol.NewMessage(h.name.ReadyKind(), req.ID, nil)
		}
	case protocol.KindTranscribe:
		reply, err = h.transcribe(ctx, req)
	case protocol.KindSynthesize:
		reply, err = h.synthesize(ctx, req)
	default:
		err = fmt.Errorf("unsupported request %q", req.Kind)
	}

	if err != nil {
		h.logger.Warn("request failed", "kind", req.Kind, "id", req.ID, "error", err)
		reply, _ = protocol.NewErrorMessage(h.name.ErrorKind(), req.ID, err)
	}
	return reply
}

func (h *Host) initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.initTimeout)
	defer cancel()

	start := time.Now()
	var err error
	switch h.name {
	case engine.TranscriptionEngine:
		err = h.transcriber.Health(ctx)
	case engine.SynthesisEngine:
		err = h.voice.Health(ctx)
	}
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.ready = true
	h.mu.Unlock()
	h.logger.Info("engine initialized", "init_ms", time.Since(start).Milliseconds())
	return nil
}

func (h *Host) requireReady(kind protocol.Kind) error {
	if h.name != engine.TranscriptionEngine && kind == protocol.KindTranscribe ||
		h.name != engine.SynthesisEngine && kind == protocol.KindSynthesize {
		return fmt.Errorf("%s engine cannot %s", h.name, kind)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.ready {
		return ErrNotInitialized
	}
	return nil
}

func (h *Host) transcribe(ctx context.Context, req *protocol.Message) (*protocol.Message, error) {
	if err := h.requireReady(req.Kind); err != nil {
		return nil, err
	}
	data, err := req.GetTranscribeData()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := h.transcriber.Transcribe(ctx, &stt.Audio{Data: data.Audio, MIMEType: data.MIMEType})
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	h.logger.Debug("transcribed", "id", req.ID, "chars", len(res.Text), "transcription_ms", elapsed.Milliseconds())
	return protocol.NewMessage(protocol.KindTranscriptionResult, req.ID, protocol.TranscriptionResultData{
		Transcription:    strings.TrimSpace(res.Text),
		ProcessingTimeMs: float64(elapsed.Microseconds()) / 1000,
		Confidence:       res.Confidence,
	})
}

func (h *Host) synthesize(ctx context.Context, req *protocol.Message) (*protocol.Message, error) {
	if err := h.requireReady(req.Kind); err != nil {
		return nil, err
	}
	data, err := req.GetSynthesizeData()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := h.voice.Synthesize(ctx, data.Text)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	h.logger.Debug("synthesized", "id", req.ID, "samples", len(res.Samples), "synthesis_ms", elapsed.Milliseconds())
	return protocol.NewMessage(protocol.KindSynthesisResult, req.ID, protocol.SynthesisResultData{
		Samples:          protocol.Samples(res.Samples),
		SampleRate:       res.SampleRate,
		ProcessingTimeMs: float64(elapsed.Microseconds()) / 1000,
	})
}

// Close releases the backend.
func (h *Host) Close() error {
	if h.transcriber != nil {
		return h.transcriber.Close()
	}
	if h.voice != nil {
		return h.voice.Close()
	}
	return nil
}

// Local wires a pair of in-process hosts to a pool. The hosts stop, and
// release their backends, when the pool closes or ctx is done.
func Local(ctx context.Context, t stt.Transcriber, p tts.Provider, opts []Option, poolOpts ...engine.Option) *engine.Pool {
	sttClient, sttServer := engine.Pipe()
	ttsClient, ttsServer := engine.Pipe()
	go NewTranscription(t, opts...).serveAndClose(ctx, sttServer)
	go NewSynthesis(p, opts...).serveAndClose(ctx, ttsServer)
	return engine.NewPool(sttClient, ttsClient, poolOpts...)
}

func (h *Host) serveAndClose(ctx context.Context, t engine.Transport) {
	if err := h.Serve(ctx, t); err != nil {
		h.logger.Warn("serve ended", "error", err)
	}
	if err := h.Close(); err != nil {
		h.logger.Warn("backend close failed", "error", err)
	}
}
