// Package protocol defines the message envelope exchanged between the
// assistant and its transcription and synthesis engines.
//
// Every message carries a correlation id. A request and its reply share
// the id; engine lifecycle replies echo the id of the initialize request.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the variant of a message.
type Kind string

const (
	// Assistant → engine
	KindInitialize Kind = "initialize"
	KindTranscribe Kind = "transcribe"
	KindSynthesize Kind = "synthesize"
	KindStop       Kind = "stop"

	// Engine → assistant, lifecycle
	KindTranscriptionReady Kind = "transcription-ready"
	KindTranscriptionError Kind = "transcription-error"
	KindSynthesisReady     Kind = "synthesis-ready"
	KindSynthesisError     Kind = "synthesis-error"

	// Engine → assistant, results
	KindTranscriptionResult Kind = "transcription-result"
	KindSynthesisResult     Kind = "synthesis-result"
)

var kinds = map[Kind]struct{}{
	KindInitialize:          {},
	KindTranscribe:          {},
	KindSynthesize:          {},
	KindStop:                {},
	KindTranscriptionReady:  {},
	KindTranscriptionError:  {},
	KindSynthesisReady:      {},
	KindSynthesisError:      {},
	KindTranscriptionResult: {},
	KindSynthesisResult:     {},
}

// Known reports whether k is part of the closed set of message kinds.
func (k Kind) Known() bool {
	_, ok := kinds[k]
	return ok
}

// IsError reports whether k is one of the engine error kinds.
func (k Kind) IsError() bool {
	return k == KindTranscriptionError || k == KindSynthesisError
}

// Errors returned while decoding messages.
var (
	ErrUnknownKind = errors.New("protocol: unknown message kind")
	ErrMissingID   = errors.New("protocol: message has no correlation id")
)

// Message is the envelope for all engine traffic.
type Message struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewID returns a fresh correlation id.
func NewID() string {
	return uuid.NewString()
}

// NewMessage creates a message with the given id and the current timestamp.
// An empty id is replaced by a fresh one.
func NewMessage(kind Kind, id string, data any) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("protocol: marshal %s data: %w", kind, err)
		}
	}
	if id == "" {
		id = NewID()
	}
	return &Message{
		ID:        id,
		Kind:      kind,
		Timestamp: time.Now().UnixMilli(),
		Data:      raw,
	}, nil
}

// ParseData unmarshals the message data into v.
func (m *Message) ParseData(v any) error {
	if len(m.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("protocol: decode %s data: %w", m.Kind, err)
	}
	return nil
}

// Bytes returns the JSON-encoded message.
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage decodes a message and rejects kinds outside the closed set
// and messages without a correlation id.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("protocol: parse message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Validate checks the envelope invariants.
func (m *Message) Validate() error {
	if !m.Kind.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
	if m.ID == "" {
		return ErrMissingID
	}
	return nil
}

// =============================================================================
// Payloads
// =============================================================================

// TranscribeData asks the transcription engine to decode an audio blob.
type TranscribeData struct {
	Audio    []byte `json:"audio"` // base64 in JSON
	MIMEType string `json:"mime_type"`
}

// TranscriptionResultData is the transcription engine's answer.
type TranscriptionResultData struct {
	Transcription    string  `json:"transcription"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
	Confidence       float64 `json:"confidence,omitempty"`
}

// SynthesizeData asks the synthesis engine to render text.
type SynthesizeData struct {
	Text string `json:"text"`
}

// SynthesisResultData carries mono float samples in [-1, 1].
type SynthesisResultData struct {
	Samples          Samples `json:"samples"`
	SampleRate       int     `json:"sample_rate"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
}

// ErrorData is the payload of every *-error kind.
type ErrorData struct {
	Error string `json:"error"`
}
