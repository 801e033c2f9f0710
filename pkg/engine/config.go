package engine

import (
	"log/slog"
	"time"
)

// Config holds channel and pool settings.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// RequestTimeout bounds a single transcribe or synthesize call.
	RequestTimeout time.Duration

	// InitTimeout bounds engine initialization, which may load models.
	InitTimeout time.Duration

	// StopTimeout bounds the stop notification sent on Close.
	StopTimeout time.Duration

	Logger *slog.Logger
}

// Option is a functional option for configuring channels and pools.
type Option func(*Config)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.RequestTimeout = d
	}
}

// WithInitTimeout sets the initialization timeout.
func WithInitTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.InitTimeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		RequestTimeout: 30 * time.Second,
		InitTimeout:    60 * time.Second,
		StopTimeout:    time.Second,
		Logger:         slog.Default(),
	}
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
