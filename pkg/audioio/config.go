// Package audioio provides audio capture and playback devices.
//
// Backends:
//   - PortAudio - native device access (build tag "portaudio")
//   - ffmpeg - PulseAudio capture/playback through an ffmpeg subprocess
//   - Mock - tests and headless runs
//
// The backend is chosen from configuration, or detected when set to "auto".
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto selects the best available backend.
	BackendAuto Backend = "auto"
	// BackendPortAudio uses PortAudio for device I/O.
	BackendPortAudio Backend = "portaudio"
	// BackendFFmpeg shells out to ffmpeg with the pulse input/output format.
	BackendFFmpeg Backend = "ffmpeg"
	// BackendMock uses a mock implementation for testing.
	BackendMock Backend = "mock"
)

// Constraints are the processing requests made when opening a capture device.
type Constraints struct {
	EchoCancellation bool `json:"echo_cancellation"`
	NoiseSuppression bool `json:"noise_suppression"`
	AutoGainControl  bool `json:"auto_gain_control"`
}

// DefaultConstraints enables all voice processing.
func DefaultConstraints() Constraints {
	return Constraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

// Config holds audio device configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	Backend Backend `json:"backend"`

	// SampleRate is the audio sample rate in Hz.
	// Default: 16000 (speech recognition rate)
	SampleRate int `json:"sample_rate"`

	// Channels is the number of audio channels.
	Channels int `json:"channels"`

	// BufferDuration is the size of one device buffer.
	// Default: 20ms (320 samples at 16kHz)
	BufferDuration time.Duration `json:"buffer_duration"`

	// Device is the backend-specific device name.
	//   - ffmpeg: pulse source/sink name, "default" when empty
	//   - PortAudio: ignored, the default device is used
	Device string `json:"device"`

	// Constraints apply to capture only.
	Constraints Constraints `json:"constraints"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendAuto,
		SampleRate:     16000,
		Channels:       1,
		BufferDuration: 20 * time.Millisecond,
		Constraints:    DefaultConstraints(),
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration)
	}
	return nil
}

// BufferSize returns the number of frames per buffer.
func (c *Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}

// BufferBytes returns the size of a buffer in bytes (int16 samples).
func (c *Config) BufferBytes() int {
	return c.BufferSize() * c.Channels * 2
}
