//go:build !portaudio

package audioio

import (
	"errors"
	"log/slog"
)

const portAudioAvailable = false

var errNoPortAudio = errors.New("portaudio backend not compiled in (build with -tags portaudio)")

func newPortAudioSource(cfg Config, logger *slog.Logger) (Source, error) {
	return nil, errNoPortAudio
}

func newPortAudioSink(cfg Config, logger *slog.Logger) (Sink, error) {
	return nil, errNoPortAudio
}
