package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		id      string
		data    any
		wantErr bool
	}{
		{
			name: "transcribe with audio",
			kind: KindTranscribe,
			data: TranscribeData{Audio: []byte{1, 2, 3}, MIMEType: "audio/opus"},
		},
		{
			name: "result with explicit id",
			kind: KindTranscriptionResult,
			id:   "req-1",
			data: TranscriptionResultData{Transcription: "hello", ProcessingTimeMs: 12},
		},
		{
			name: "nil data",
			kind: KindStop,
		},
		{
			name:    "unmarshalable data",
			kind:    KindSynthesize,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.kind, tt.id, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if msg.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", msg.Kind, tt.kind)
			}
			if msg.Timestamp == 0 {
				t.Error("timestamp should be set")
			}
			if msg.ID == "" {
				t.Error("id should be set")
			}
			if tt.id != "" && msg.ID != tt.id {
				t.Errorf("ID = %q, want %q", msg.ID, tt.id)
			}
		})
	}
}

func TestMessageRoundTrip(t *testing.T) {
	msg, err := NewTranscribeMessage([]byte("opus frames"), "audio/opus")
	if err != nil {
		t.Fatalf("NewTranscribeMessage() error = %v", err)
	}

	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.ID != msg.ID {
		t.Errorf("ID = %q, want %q", parsed.ID, msg.ID)
	}

	data, err := parsed.GetTranscribeData()
	if err != nil {
		t.Fatalf("GetTranscribeData() error = %v", err)
	}
	if string(data.Audio) != "opus frames" || data.MIMEType != "audio/opus" {
		t.Errorf("payload = %+v", data)
	}
}

func TestParseMessageRejectsUnknownKind(t *testing.T) {
	_, err := ParseMessage([]byte(`{"id":"x","type":"whisper-ready","ts":1}`))
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ParseMessage() error = %v, want ErrUnknownKind", err)
	}
}

func TestParseMessageRejectsMissingID(t *testing.T) {
	_, err := ParseMessage([]byte(`{"type":"stop","ts":1}`))
	if !errors.Is(err, ErrMissingID) {
		t.Errorf("ParseMessage() error = %v, want ErrMissingID", err)
	}
}

func TestParseMessageInvalidJSON(t *testing.T) {
	if _, err := ParseMessage([]byte(`{not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestSamplesEncoding(t *testing.T) {
	in := SynthesisResultData{
		Samples:    Samples{0, 0.5, -0.25, 1, -1},
		SampleRate: 22050,
	}
	msg, err := NewMessage(KindSynthesisResult, "id", in)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(msg.Data), "0.5") {
		t.Errorf("samples should be base64, got %s", msg.Data)
	}

	out, err := msg.GetSynthesisResult()
	if err != nil {
		t.Fatalf("GetSynthesisResult() error = %v", err)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("len = %d, want %d", len(out.Samples), len(in.Samples))
	}
	for i := range in.Samples {
		if out.Samples[i] != in.Samples[i] {
			t.Errorf("sample %d = %v, want %v", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestSamplesRejectsTruncated(t *testing.T) {
	var s Samples
	if err := json.Unmarshal([]byte(`"AAA="`), &s); err == nil {
		t.Error("expected error for truncated sample buffer")
	}
}

func TestKindPairs(t *testing.T) {
	if ResultKind(KindTranscribe) != KindTranscriptionResult {
		t.Error("transcribe should pair with transcription-result")
	}
	if ResultKind(KindSynthesize) != KindSynthesisResult {
		t.Error("synthesize should pair with synthesis-result")
	}
	if ErrorKind(KindSynthesize) != KindSynthesisError {
		t.Error("synthesize should pair with synthesis-error")
	}
	if !KindSynthesisError.IsError() || KindSynthesisResult.IsError() {
		t.Error("IsError mismatch")
	}
	if Kind("bogus").Known() {
		t.Error("bogus kind should not be known")
	}
}

func TestErrorMessage(t *testing.T) {
	msg, err := NewErrorMessage(KindTranscriptionError, "abc", errors.New("model missing"))
	if err != nil {
		t.Fatal(err)
	}
	data, err := msg.GetErrorData()
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != "abc" || data.Error != "model missing" {
		t.Errorf("got id=%q error=%q", msg.ID, data.Error)
	}
}
