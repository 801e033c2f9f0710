package capture

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-voiceloop/pkg/audioio"
	"github.com/teslashibe/go-voiceloop/pkg/codec"
)

// SourceFactory opens a capture device.
type SourceFactory func(cfg audioio.Config, logger *slog.Logger) (audioio.Source, error)

// Config holds controller configuration.
type Config struct {
	// Audio is the device configuration; Constraints and SampleRate are
	// the requested processing and target rate.
	Audio audioio.Config

	// Timeslice is how often captured audio is encoded into the buffer.
	Timeslice time.Duration

	// RecognitionTimeout bounds one primary recognition.
	RecognitionTimeout time.Duration

	// Locale is passed to the recognizer.
	Locale string

	NewSource  SourceFactory
	Codec      codec.Codec
	Recognizer Recognizer

	Logger *slog.Logger
}

// Option configures a Controller.
type Option func(*Config)

// WithAudioConfig sets the device configuration.
func WithAudioConfig(cfg audioio.Config) Option {
	return func(c *Config) { c.Audio = cfg }
}

// WithConstraints sets the capture processing constraints.
func WithConstraints(cons audioio.Constraints) Option {
	return func(c *Config) { c.Audio.Constraints = cons }
}

// WithSourceFactory replaces audioio.NewSource.
func WithSourceFactory(f SourceFactory) Option {
	return func(c *Config) { c.NewSource = f }
}

// WithCodec sets the encoder for the accumulated buffer.
func WithCodec(cd codec.Codec) Option {
	return func(c *Config) { c.Codec = cd }
}

// WithRecognizer enables the primary transcription path.
func WithRecognizer(r Recognizer) Option {
	return func(c *Config) { c.Recognizer = r }
}

// WithTimeslice sets the encode interval.
func WithTimeslice(d time.Duration) Option {
	return func(c *Config) { c.Timeslice = d }
}

// WithRecognitionTimeout bounds primary recognition.
func WithRecognitionTimeout(d time.Duration) Option {
	return func(c *Config) { c.RecognitionTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// DefaultConfig returns 16kHz mono capture with all constraints on.
func DefaultConfig() *Config {
	return &Config{
		Audio:              audioio.DefaultConfig(),
		Timeslice:          100 * time.Millisecond,
		RecognitionTimeout: 10 * time.Second,
		Locale:             "en-US",
		NewSource:          audioio.NewSource,
		Logger:             slog.Default(),
	}
}

// Apply applies options and fills in defaults for unset fields.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.NewSource == nil {
		c.NewSource = audioio.NewSource
	}
	if c.Timeslice <= 0 {
		c.Timeslice = 100 * time.Millisecond
	}
}
