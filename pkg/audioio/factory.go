package audioio

import (
	"fmt"
	"log/slog"
	"os/exec"
)

// NewSource opens a capture device on the configured backend. BackendAuto
// picks the best one available.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	backend, logger, err := resolve(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("opening capture device",
		"backend", backend,
		"device", cfg.Device,
		"sample_rate", cfg.SampleRate,
		"echo_cancellation", cfg.Constraints.EchoCancellation,
		"noise_suppression", cfg.Constraints.NoiseSuppression,
		"auto_gain", cfg.Constraints.AutoGainControl,
	)

	switch backend {
	case BackendPortAudio:
		return newPortAudioSource(cfg, logger)
	case BackendFFmpeg:
		return NewFFmpegSource(cfg, logger), nil
	case BackendMock:
		return NewMockSource(cfg, logger), nil
	}
	return nil, fmt.Errorf("audioio: unsupported backend %q", backend)
}

// NewSink opens a playback device on the configured backend. BackendAuto
// picks the best one available.
func NewSink(cfg Config, logger *slog.Logger) (Sink, error) {
	backend, logger, err := resolve(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("opening playback device", "backend", backend, "device", cfg.Device, "sample_rate", cfg.SampleRate)

	switch backend {
	case BackendPortAudio:
		return newPortAudioSink(cfg, logger)
	case BackendFFmpeg:
		return NewFFmpegSink(cfg, logger), nil
	case BackendMock:
		return NewMockSink(cfg, logger), nil
	}
	return nil, fmt.Errorf("audioio: unsupported backend %q", backend)
}

func resolve(cfg Config, logger *slog.Logger) (Backend, *slog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return "", nil, fmt.Errorf("audioio: invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Backend != BackendAuto {
		return cfg.Backend, logger, nil
	}
	return AvailableBackends()[0], logger, nil
}

// AvailableBackends lists the usable backends, best first. The mock is
// always last.
func AvailableBackends() []Backend {
	var out []Backend
	if portAudioAvailable {
		out = append(out, BackendPortAudio)
	}
	if _, err := exec.LookPath(ffmpegCommand); err == nil {
		out = append(out, BackendFFmpeg)
	}
	return append(out, BackendMock)
}
