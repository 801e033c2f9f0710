// Package stt provides the transcription backends that run inside the
// transcription engine.
//
// Callers hand a Transcriber one encoded utterance at a time:
//
//	t, _ := stt.NewWhisper(stt.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	res, _ := t.Transcribe(ctx, &stt.Audio{Data: rec.Data, MIMEType: rec.MIMEType})
//	fmt.Println(res.Text)
package stt

import "context"

// Transcriber converts one utterance of encoded audio to text.
type Transcriber interface {
	// Transcribe returns the best hypothesis for the utterance.
	Transcribe(ctx context.Context, audio *Audio) (*Result, error)

	// Health checks backend availability.
	Health(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Audio is an encoded utterance. MIMEType names the codec stream format,
// see package codec.
type Audio struct {
	Data     []byte
	MIMEType string
}

// Result is a transcription hypothesis.
type Result struct {
	Text string

	// Confidence is in [0,1]; backends that do not report one use 1.
	Confidence float64

	ProcessingTimeMs int64
}
