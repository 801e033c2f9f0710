package stt

import (
	"log/slog"
	"time"
)

// Config holds transcription backend configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	// Language is an ISO-639-1 hint passed to the backend.
	Language string

	Timeout time.Duration

	// MinLatency and MaxLatency bound the simulated delay of the mock.
	MinLatency time.Duration
	MaxLatency time.Duration

	// Seed fixes the mock's phrase choice; zero means time-seeded.
	Seed uint64

	Logger *slog.Logger
}

// Option configures a backend.
type Option func(*Config)

func WithAPIKey(key string) Option { return func(c *Config) { c.APIKey = key } }
func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }
func WithModel(model string) Option { return func(c *Config) { c.Model = model } }
func WithLanguage(lang string) Option { return func(c *Config) { c.Language = lang } }
func WithTimeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }
func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }

// WithLatency bounds the simulated delay of the mock backend.
func WithLatency(lo, hi time.Duration) Option {
	return func(c *Config) { c.MinLatency, c.MaxLatency = lo, hi }
}

// WithSeed fixes the mock's phrase choice.
func WithSeed(seed uint64) Option { return func(c *Config) { c.Seed = seed } }

// DefaultConfig returns defaults for all backends.
func DefaultConfig() *Config {
	return &Config{
		Language:   "en",
		Timeout:    30 * time.Second,
		MinLatency: 300 * time.Millisecond,
		MaxLatency: 700 * time.Millisecond,
		Logger:     slog.Default(),
	}
}

// Apply applies options.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.MaxLatency < c.MinLatency {
		c.MaxLatency = c.MinLatency
	}
}
