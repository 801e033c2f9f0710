//go:build vosk

package vosk

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"

	"github.com/teslashibe/go-voiceloop/pkg/audioio"
)

// Available reports whether Vosk support is compiled in.
const Available = true

// Recognizer runs a Vosk model on one utterance at a time.
type Recognizer struct {
	mu         sync.Mutex
	model      *vosk.VoskModel
	recognizer *vosk.VoskRecognizer
	sampleRate int
}

type result struct {
	Text string `json:"text"`
}

// New loads the model at modelPath for audio at sampleRate.
func New(modelPath string, sampleRate int) (*Recognizer, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("vosk: model %s: %w", modelPath, err)
	}
	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("vosk: load model: %w", err)
	}
	rec, err := vosk.NewRecognizer(model, float64(sampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("vosk: create recognizer: %w", err)
	}
	return &Recognizer{model: model, recognizer: rec, sampleRate: sampleRate}, nil
}

// Recognize decodes pcm as a single utterance. The model runs to
// completion; ctx is checked before it starts.
func (r *Recognizer) Recognize(ctx context.Context, pcm []int16, sampleRate int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if sampleRate != r.sampleRate {
		pcm = audioio.Resample(pcm, sampleRate, r.sampleRate)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recognizer == nil {
		return "", fmt.Errorf("vosk: recognizer closed")
	}

	r.recognizer.AcceptWaveform(audioio.PCM16Bytes(pcm))
	raw := r.recognizer.FinalResult()
	r.recognizer.Reset()

	var res result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return "", fmt.Errorf("vosk: parse result: %w", err)
	}
	return res.Text, nil
}

// Close frees the recognizer and model.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recognizer != nil {
		r.recognizer.Free()
		r.recognizer = nil
	}
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}
