package stt_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/teslashibe/go-voiceloop/pkg/codec"
	"github.com/teslashibe/go-voiceloop/pkg/stt"
)

func utterance(t *testing.T) *stt.Audio {
	t.Helper()
	c := codec.NewPCM(16000)
	data, err := codec.EncodeAll(c, make([]int16, 1600))
	if err != nil {
		t.Fatal(err)
	}
	return &stt.Audio{Data: data, MIMEType: codec.MIMEType(c)}
}

func TestMockTranscribe(t *testing.T) {
	m := stt.NewMock(stt.WithLatency(0, 0), stt.WithSeed(3))
	for range 20 {
		res, err := m.Transcribe(context.Background(), utterance(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Contains(stt.Phrases, res.Text) {
			t.Errorf("unexpected phrase %q", res.Text)
		}
		if res.Confidence < 0.85 || res.Confidence > 0.95 {
			t.Errorf("confidence %f out of range", res.Confidence)
		}
	}
	if m.Calls() != 20 {
		t.Errorf("calls = %d, want 20", m.Calls())
	}
}

func TestMockSeedIsDeterministic(t *testing.T) {
	a := stt.NewMock(stt.WithLatency(0, 0), stt.WithSeed(9))
	b := stt.NewMock(stt.WithLatency(0, 0), stt.WithSeed(9))
	for range 5 {
		ra, _ := a.Transcribe(context.Background(), utterance(t))
		rb, _ := b.Transcribe(context.Background(), utterance(t))
		if ra.Text != rb.Text {
			t.Fatalf("%q != %q", ra.Text, rb.Text)
		}
	}
}

func TestMockEmptyAudio(t *testing.T) {
	m := stt.NewMock(stt.WithLatency(0, 0))
	if _, err := m.Transcribe(context.Background(), &stt.Audio{}); !errors.Is(err, stt.ErrEmptyAudio) {
		t.Errorf("expected ErrEmptyAudio, got %v", err)
	}
}

func TestMockLatencyHonorsContext(t *testing.T) {
	m := stt.NewMock(stt.WithLatency(time.Second, time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := m.Transcribe(ctx, utterance(t)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestMockTranscribeFunc(t *testing.T) {
	m := stt.NewMock()
	m.TranscribeFunc = func(ctx context.Context, audio *stt.Audio) (*stt.Result, error) {
		return &stt.Result{Text: "override", Confidence: 1}, nil
	}
	res, err := m.Transcribe(context.Background(), nil)
	if err != nil || res.Text != "override" {
		t.Errorf("got %+v, %v", res, err)
	}
}

func TestWhisperRequiresKey(t *testing.T) {
	if _, err := stt.NewWhisper(); !errors.Is(err, stt.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestWhisperTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language = %q", got)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		head := make([]byte, 12)
		if _, err := io.ReadFull(f, head); err != nil || string(head[0:4]) != "RIFF" {
			t.Errorf("upload is not WAV: %q", head)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  tell me a story  "}`))
	}))
	defer server.Close()

	w, err := stt.NewWhisper(stt.WithAPIKey("k"), stt.WithBaseURL(server.URL+"/v1"))
	if err != nil {
		t.Fatal(err)
	}
	res, err := w.Transcribe(context.Background(), utterance(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "tell me a story" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestWhisperUnknownCodec(t *testing.T) {
	w, _ := stt.NewWhisper(stt.WithAPIKey("k"), stt.WithBaseURL("http://127.0.0.1:1"))
	_, err := w.Transcribe(context.Background(), &stt.Audio{Data: []byte{0, 1, 2}, MIMEType: "audio/flac"})
	if !errors.Is(err, codec.ErrUnknownCodec) {
		t.Errorf("expected ErrUnknownCodec, got %v", err)
	}
}

func TestWhisperAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	w, _ := stt.NewWhisper(stt.WithAPIKey("k"), stt.WithBaseURL(server.URL+"/v1"))
	_, err := w.Transcribe(context.Background(), utterance(t))
	var apiErr *stt.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if !apiErr.Retryable() {
		t.Errorf("expected retryable, got %+v", apiErr)
	}
}
