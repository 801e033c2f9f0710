package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if Default().CompletionConfigured() {
		t.Error("default config should not have a completion provider")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("COMPLETION_MODEL", "gpt-4o-mini")
	t.Setenv("ENGINE_MODE", "remote")
	t.Setenv("ENGINE_TIMEOUT", "5")
	t.Setenv("HISTORY_BACKEND", "sqlite")

	c := Default()
	if err := c.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if c.OpenAIKey != "sk-test" || c.CompletionModel != "gpt-4o-mini" {
		t.Errorf("completion settings not loaded: %+v", c)
	}
	if c.EngineMode != EngineRemote {
		t.Errorf("EngineMode = %q, want remote", c.EngineMode)
	}
	if c.EngineTimeout != 5*time.Second {
		t.Errorf("EngineTimeout = %v, want 5s", c.EngineTimeout)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadEnvBadDuration(t *testing.T) {
	t.Setenv("ENGINE_TIMEOUT", "soon")
	c := Default()
	if err := c.LoadEnv(); err == nil {
		t.Error("expected error for bad ENGINE_TIMEOUT")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"unknown stt", func(c *Config) { c.STTBackend = "kaldi" }, true},
		{"unknown history", func(c *Config) { c.HistoryBackend = "redis" }, true},
		{"supabase without key", func(c *Config) { c.HistoryBackend = HistorySupabase; c.SupabaseURL = "https://x" }, true},
		{"whisper without key", func(c *Config) { c.STTBackend = STTWhisper }, true},
		{"whisper with key", func(c *Config) { c.STTBackend = STTWhisper; c.OpenAIKey = "k" }, false},
		{"zero timeout", func(c *Config) { c.EngineTimeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("WEB_PORT=9999\nTTS_BACKEND=formant\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("WEB_PORT")
		os.Unsetenv("TTS_BACKEND")
	})

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.WebPort != "9999" {
		t.Errorf("WebPort = %q, want 9999", c.WebPort)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}
