// Package config loads go-voiceloop settings from the environment.
// Flag parsing happens in cmd/*; this package only produces data.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted by the loaders.
const (
	STTMock    = "mock"
	STTWhisper = "whisper"

	TTSFormant = "formant"
	TTSOpenAI  = "openai"

	EngineLocal  = "local"
	EngineRemote = "remote"

	HistoryNone     = "none"
	HistorySQLite   = "sqlite"
	HistorySupabase = "supabase"
)

// Default configuration values.
const (
	DefaultLogLevel        = "info"
	DefaultOpenAIBaseURL   = "https://api.openai.com/v1"
	DefaultCompletionModel = "gpt-3.5-turbo"
	DefaultEngineURL       = "ws://localhost:8090"
	DefaultEngineTimeout   = 30 * time.Second
	DefaultAudioBackend    = "auto"
	DefaultHistoryPath     = "voiceloop.db"
	DefaultWebPort         = "8080"
	DefaultEnginePort      = "8090"
)

// Config holds all settings for the assistant and the engine server.
type Config struct {
	LogLevel string

	// Completion provider. An empty OpenAIKey means "not configured".
	OpenAIKey               string
	OpenAIBaseURL           string
	CompletionModel         string
	CompletionFallbackURL   string
	CompletionFallbackModel string

	// Engines.
	STTBackend    string
	TTSBackend    string
	EngineMode    string
	EngineURL     string
	EngineTimeout time.Duration

	// Audio devices.
	AudioBackend  string
	AudioDevice   string
	VoskModelPath string

	// Persistence sink.
	HistoryBackend string
	HistoryPath    string
	SupabaseURL    string
	SupabaseKey    string

	WebPort    string
	EnginePort string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel:        DefaultLogLevel,
		OpenAIBaseURL:   DefaultOpenAIBaseURL,
		CompletionModel: DefaultCompletionModel,
		STTBackend:      STTMock,
		TTSBackend:      TTSFormant,
		EngineMode:      EngineLocal,
		EngineURL:       DefaultEngineURL,
		EngineTimeout:   DefaultEngineTimeout,
		AudioBackend:    DefaultAudioBackend,
		HistoryBackend:  HistoryNone,
		HistoryPath:     DefaultHistoryPath,
		WebPort:         DefaultWebPort,
		EnginePort:      DefaultEnginePort,
	}
}

// Load reads an optional .env file and then the process environment.
// A missing .env file is not an error.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load env file: %w", err)
	}
	c := Default()
	if err := c.LoadEnv(); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

// LoadEnv applies environment overrides to c.
func (c *Config) LoadEnv() error {
	str(&c.LogLevel, "LOG_LEVEL")
	str(&c.OpenAIKey, "OPENAI_API_KEY")
	str(&c.OpenAIBaseURL, "OPENAI_BASE_URL")
	str(&c.CompletionModel, "COMPLETION_MODEL")
	str(&c.CompletionFallbackURL, "COMPLETION_FALLBACK_BASE_URL")
	str(&c.CompletionFallbackModel, "COMPLETION_FALLBACK_MODEL")
	str(&c.STTBackend, "STT_BACKEND")
	str(&c.TTSBackend, "TTS_BACKEND")
	str(&c.EngineMode, "ENGINE_MODE")
	str(&c.EngineURL, "ENGINE_URL")
	str(&c.AudioBackend, "AUDIO_BACKEND")
	str(&c.AudioDevice, "AUDIO_DEVICE")
	str(&c.VoskModelPath, "VOSK_MODEL_PATH")
	str(&c.HistoryBackend, "HISTORY_BACKEND")
	str(&c.HistoryPath, "HISTORY_PATH")
	str(&c.SupabaseURL, "SUPABASE_URL")
	str(&c.SupabaseKey, "SUPABASE_KEY")
	str(&c.WebPort, "WEB_PORT")
	str(&c.EnginePort, "ENGINE_PORT")

	if v := os.Getenv("ENGINE_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("config: ENGINE_TIMEOUT: %w", err)
		}
		c.EngineTimeout = d
	}
	return nil
}

// Validate checks that enumerated settings hold known values.
func (c Config) Validate() error {
	if err := oneOf("STT_BACKEND", c.STTBackend, STTMock, STTWhisper); err != nil {
		return err
	}
	if err := oneOf("TTS_BACKEND", c.TTSBackend, TTSFormant, TTSOpenAI); err != nil {
		return err
	}
	if err := oneOf("ENGINE_MODE", c.EngineMode, EngineLocal, EngineRemote); err != nil {
		return err
	}
	if err := oneOf("HISTORY_BACKEND", c.HistoryBackend, HistoryNone, HistorySQLite, HistorySupabase); err != nil {
		return err
	}
	if c.EngineTimeout <= 0 {
		return errors.New("config: ENGINE_TIMEOUT must be positive")
	}
	if c.HistoryBackend == HistorySupabase && (c.SupabaseURL == "" || c.SupabaseKey == "") {
		return errors.New("config: supabase history requires SUPABASE_URL and SUPABASE_KEY")
	}
	if (c.STTBackend == STTWhisper || c.TTSBackend == TTSOpenAI) && c.OpenAIKey == "" {
		return errors.New("config: openai engines require OPENAI_API_KEY")
	}
	return nil
}

// CompletionConfigured reports whether a completion provider credential exists.
func (c Config) CompletionConfigured() bool {
	return c.OpenAIKey != ""
}

func str(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

// parseDuration accepts Go durations ("30s") or bare seconds ("30").
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("config: %s=%q, want one of %s", key, value, strings.Join(allowed, "|"))
}
