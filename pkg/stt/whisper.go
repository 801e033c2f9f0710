package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teslashibe/go-voiceloop/internal/httpc"
	"github.com/teslashibe/go-voiceloop/pkg/audioio"
	"github.com/teslashibe/go-voiceloop/pkg/codec"
)

const providerWhisper = "whisper"

// Whisper transcribes through an OpenAI-compatible /audio/transcriptions
// endpoint. Codec streams are decoded locally and uploaded as WAV.
type Whisper struct {
	config *Config
	client *openai.Client
	logger *slog.Logger
}

// NewWhisper creates a Whisper backend.
func NewWhisper(opts ...Option) (*Whisper, error) {
	cfg := DefaultConfig()
	cfg.Model = openai.Whisper1
	cfg.Apply(opts...)
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = httpc.NewClient(cfg.Timeout)

	return &Whisper{
		config: cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: cfg.Logger.With("component", "stt.whisper"),
	}, nil
}

// Transcribe implements Transcriber.
func (w *Whisper) Transcribe(ctx context.Context, audio *Audio) (*Result, error) {
	if audio == nil || len(audio.Data) == 0 {
		return nil, WrapError(providerWhisper, ErrEmptyAudio)
	}
	start := time.Now()

	wav, err := toWAV(audio)
	if err != nil {
		return nil, WrapError(providerWhisper, err)
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.config.Model,
		FilePath: "utterance.wav",
		Reader:   bytes.NewReader(wav),
		Language: w.config.Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return nil, w.wrapError(err)
	}

	text := strings.TrimSpace(resp.Text)
	elapsed := time.Since(start).Milliseconds()
	w.logger.Debug("transcribed",
		"chars", len(text),
		"wav_bytes", len(wav),
		"latency_ms", elapsed,
	)

	return &Result{
		Text:             text,
		Confidence:       1,
		ProcessingTimeMs: elapsed,
	}, nil
}

// Health lists models to validate the key and connectivity.
func (w *Whisper) Health(ctx context.Context) error {
	if _, err := w.client.ListModels(ctx); err != nil {
		return w.wrapError(err)
	}
	return nil
}

// Close releases resources.
func (w *Whisper) Close() error { return nil }

func (w *Whisper) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Provider: providerWhisper}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error(), Provider: providerWhisper}
	}
	return WrapError(providerWhisper, err)
}

// toWAV passes WAV through and decodes codec streams to PCM16 WAV.
func toWAV(audio *Audio) ([]byte, error) {
	mediaType, _, err := mime.ParseMediaType(audio.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("mime type %q: %w", audio.MIMEType, err)
	}
	switch mediaType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return audio.Data, nil
	}

	c, err := codec.ForMIME(audio.MIMEType)
	if err != nil {
		return nil, err
	}
	pcm, err := codec.DecodeAll(c, audio.Data)
	if err != nil {
		return nil, err
	}
	return audioio.EncodeWAV(pcm, c.SampleRate(), 1), nil
}

var _ Transcriber = (*Whisper)(nil)
