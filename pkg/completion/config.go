package completion

import "log/slog"

// SystemPrompt seeds every conversation.
const SystemPrompt = "You are a friendly AI assistant designed for children. " +
	"Keep responses simple, positive, and age-appropriate. " +
	"Use encouraging language and be helpful with learning and play."

// NotConfiguredReply is returned when no provider is configured.
const NotConfiguredReply = "I'm sorry, but I need a valid OpenAI API key to respond. " +
	"Please add your API key to the environment variables to enable AI responses."

// EmptyReply stands in for a provider answer with no content.
const EmptyReply = "Sorry, I didn't understand that."

// Config holds the completion client settings.
type Config struct {
	// SystemPrompt is the pinned first message of the context.
	SystemPrompt string

	// Model overrides the provider's default model when set.
	Model string

	// MaxTokens caps the reply length.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxMessages bounds the context, system prompt included.
	MaxMessages int

	Logger *slog.Logger
}

// DefaultConfig returns the conversation defaults.
func DefaultConfig() Config {
	return Config{
		SystemPrompt: SystemPrompt,
		MaxTokens:    150,
		Temperature:  0.7,
		MaxMessages:  20,
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.SystemPrompt == "" {
		c.SystemPrompt = d.SystemPrompt
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.MaxMessages < 2 {
		c.MaxMessages = d.MaxMessages
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
