// Package engine drives the transcription and synthesis engines.
//
// Each engine lives in its own execution context (a goroutine behind an
// in-process pipe, or another process behind a WebSocket) and is reached
// only through protocol messages. A Channel owns one engine link and
// turns the message exchange into blocking, correlated calls. A Pool
// owns both channels and initializes them in parallel.
//
// Example usage:
//
//	pool := engine.NewPool(sttTransport, ttsTransport, engine.WithTimeout(30*time.Second))
//	defer pool.Close()
//
//	if err := pool.Initialize(ctx); err != nil {
//	    return err
//	}
//	text, _ := pool.Transcribe(ctx, audio, "audio/opus")
package engine

import (
	"github.com/teslashibe/go-voiceloop/pkg/protocol"
)

// Name identifies an engine kind.
type Name string

const (
	TranscriptionEngine Name = "transcription"
	SynthesisEngine     Name = "synthesis"
)

// ReadyKind is the reply to a successful initialize.
func (n Name) ReadyKind() protocol.Kind {
	if n == SynthesisEngine {
		return protocol.KindSynthesisReady
	}
	return protocol.KindTranscriptionReady
}

// ErrorKind is the reply to any failed request.
func (n Name) ErrorKind() protocol.Kind {
	if n == SynthesisEngine {
		return protocol.KindSynthesisError
	}
	return protocol.KindTranscriptionError
}

// ResultKind is the reply to a successful work request.
func (n Name) ResultKind() protocol.Kind {
	if n == SynthesisEngine {
		return protocol.KindSynthesisResult
	}
	return protocol.KindTranscriptionResult
}

// Accepts reports whether an engine of this kind may send k.
func (n Name) Accepts(k protocol.Kind) bool {
	return k == n.ReadyKind() || k == n.ErrorKind() || k == n.ResultKind()
}

// State is the lifecycle of a Channel.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StateFailed        State = "failed"
	StateClosed        State = "closed"
)

// Transcription is the result of a transcribe request.
type Transcription struct {
	Text             string
	Confidence       float64
	ProcessingTimeMs float64
}

// Synthesis is the result of a synthesize request.
// Samples are mono floats in [-1, 1].
type Synthesis struct {
	Samples          []float32
	SampleRate       int
	ProcessingTimeMs float64
}
