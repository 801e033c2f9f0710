package tts

import (
	"log/slog"
	"time"
)

// Config configures a synthesis provider. Remote voices need APIKey;
// the local formant voice uses SampleRate, Seed and SimulateLatency.
type Config struct {
	APIKey  string
	BaseURL string
	VoiceID string
	ModelID string
	Timeout time.Duration

	SampleRate      int
	Seed            uint64
	SimulateLatency bool

	Logger *slog.Logger
}

// Option configures a provider.
type Option func(*Config)

func WithAPIKey(key string) Option { return func(c *Config) { c.APIKey = key } }
func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }
func WithVoice(id string) Option { return func(c *Config) { c.VoiceID = id } }
func WithModel(id string) Option { return func(c *Config) { c.ModelID = id } }
func WithSampleRate(hz int) Option { return func(c *Config) { c.SampleRate = hz } }
func WithSeed(seed uint64) Option { return func(c *Config) { c.Seed = seed } }
func WithTimeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }
func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }

// WithSimulatedLatency delays local synthesis by 50ms per character,
// capped at two seconds.
func WithSimulatedLatency() Option { return func(c *Config) { c.SimulateLatency = true } }

// DefaultConfig generates 22.05kHz audio.
func DefaultConfig() *Config {
	return &Config{
		SampleRate: 22050,
		Timeout:    30 * time.Second,
		Logger:     slog.Default(),
	}
}

// Apply runs opts in order.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Validate requires an API key.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}
