package tts

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

const providerFormant = "formant"

// Formant voice parameters.
const (
	formantWordsPerSecond = 3.0
	formantBaseHz         = 150.0
	formantFade           = 100 * time.Millisecond
	formantGain           = 0.3
	formantNoise          = 0.05
	formantMinDuration    = time.Second
	formantMaxDelay       = 2 * time.Second
	formantDelayPerChar   = 50 * time.Millisecond
)

// Formant is an offline provider that renders a speech-like signal:
// three modulated formants, word-rate gaps, and fades at both ends.
// It needs no credentials and is the default synthesis backend.
type Formant struct {
	config *Config
	rng    *rand.Rand
}

// NewFormant creates the offline provider.
func NewFormant(opts ...Option) *Formant {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 22050
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Formant{
		config: cfg,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Synthesize renders text. Duration follows word count at three words per
// second with a one second minimum.
func (f *Formant) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, WrapError(providerFormant, ErrEmptyText)
	}
	start := time.Now()

	samples := f.render(len(strings.Fields(text)))

	if f.config.SimulateLatency {
		delay := min(time.Duration(len(text))*formantDelayPerChar, formantMaxDelay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.config.Logger.Debug("synthesized audio",
		"provider", providerFormant,
		"chars", len(text),
		"samples", len(samples),
	)

	return &AudioResult{
		Samples:    samples,
		SampleRate: f.config.SampleRate,
		Duration:   durationOf(len(samples), f.config.SampleRate),
		CharCount:  len(text),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func (f *Formant) render(words int) []float32 {
	rate := float64(f.config.SampleRate)
	seconds := math.Max(formantMinDuration.Seconds(), float64(words)/formantWordsPerSecond)
	n := int(rate * seconds)
	fade := formantFade.Seconds() * rate

	out := make([]float32, n)
	for i := range out {
		t := float64(i) / rate

		f1 := formantBaseHz + 50*math.Sin(2*math.Pi*2*t)
		f2 := formantBaseHz*2 + 100*math.Sin(2*math.Pi*1.5*t)
		f3 := formantBaseHz*3 + 150*math.Sin(2*math.Pi*0.8*t)

		s := 0.4*math.Sin(2*math.Pi*f1*t) +
			0.3*math.Sin(2*math.Pi*f2*t) +
			0.2*math.Sin(2*math.Pi*f3*t) +
			formantNoise*(f.rng.Float64()-0.5)

		switch {
		case float64(i) < fade:
			s *= float64(i) / fade
		case float64(i) > float64(n)-fade:
			s *= float64(n-i) / fade
		}

		// Short dip near the end of every word.
		progress := math.Mod(float64(i)/float64(n)*float64(words), 1)
		if progress > 0.8 && progress < 0.9 {
			s *= 0.1
		}

		out[i] = float32(math.Max(-1, math.Min(1, s*formantGain)))
	}
	return out
}

// Health always succeeds.
func (f *Formant) Health(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (f *Formant) Close() error {
	return nil
}

var _ Provider = (*Formant)(nil)
