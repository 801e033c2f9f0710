package audioio

import (
	"testing"
	"time"
)

func TestNewSourceMock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock

	src, err := NewSource(cfg, nil)
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	defer src.Close()
	if src.Name() != "mock" {
		t.Errorf("Name() = %q, want mock", src.Name())
	}
}

func TestNewSinkMock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock

	sink, err := NewSink(cfg, nil)
	if err != nil {
		t.Fatalf("NewSink() error = %v", err)
	}
	defer sink.Close()
	if sink.Name() != "mock" {
		t.Errorf("Name() = %q, want mock", sink.Name())
	}
}

func TestNewSourceInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero rate", func(c *Config) { c.SampleRate = 0 }},
		{"zero channels", func(c *Config) { c.Channels = 0 }},
		{"zero buffer", func(c *Config) { c.BufferDuration = 0 }},
		{"unknown backend", func(c *Config) { c.Backend = "alsa" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Backend = BackendMock
			tt.mutate(&cfg)
			if _, err := NewSource(cfg, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestAvailableBackendsEndWithMock(t *testing.T) {
	backends := AvailableBackends()
	if len(backends) == 0 || backends[len(backends)-1] != BackendMock {
		t.Errorf("AvailableBackends() = %v, want mock last", backends)
	}
}

func TestConfigBufferSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 20 * time.Millisecond
	if got := cfg.BufferSize(); got != 320 {
		t.Errorf("BufferSize() = %d, want 320", got)
	}
	if got := cfg.BufferBytes(); got != 640 {
		t.Errorf("BufferBytes() = %d, want 640", got)
	}
}
