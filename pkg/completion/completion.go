// Package completion keeps a bounded conversation and asks a chat provider
// for the next assistant reply.
package completion

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-voiceloop/pkg/inference"
)

// Client holds the conversation context for one session.
// The first message is always the system prompt.
type Client struct {
	provider inference.Provider
	cfg      Config
	logger   *slog.Logger

	mu       sync.Mutex
	messages []inference.Message
}

// New creates a client. A nil provider is allowed; Complete then answers
// with NotConfiguredReply.
func New(provider inference.Provider, cfg Config) *Client {
	cfg.normalize()
	c := &Client{
		provider: provider,
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "completion.client"),
	}
	c.messages = []inference.Message{inference.NewSystemMessage(cfg.SystemPrompt)}
	return c
}

// Configured reports whether a provider is attached.
func (c *Client) Configured() bool {
	return c.provider != nil
}

// Complete sends text with the current context and returns the reply.
func (c *Client) Complete(ctx context.Context, text string) (string, error) {
	if c.provider == nil {
		return NotConfiguredReply, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, inference.NewUserMessage(text))
	req := &inference.ChatRequest{
		Messages:    append([]inference.Message(nil), c.messages...),
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	start := time.Now()
	resp, err := c.provider.Chat(ctx, req)
	if err != nil {
		c.messages = c.messages[:len(c.messages)-1]
		return "", &Error{Err: err}
	}

	reply := ""
	if resp != nil {
		reply = resp.Message.Content
	}
	if strings.TrimSpace(reply) == "" {
		reply = EmptyReply
	}

	c.messages = append(c.messages, inference.NewAssistantMessage(reply))
	c.trim()

	c.logger.Debug("completion",
		"latency_ms", time.Since(start).Milliseconds(),
		"context_len", len(c.messages),
	)
	return reply, nil
}

// trim keeps the system prompt plus the newest MaxMessages-1 entries.
func (c *Client) trim() {
	if len(c.messages) <= c.cfg.MaxMessages {
		return
	}
	keep := c.cfg.MaxMessages - 1
	tail := c.messages[len(c.messages)-keep:]
	trimmed := make([]inference.Message, 0, c.cfg.MaxMessages)
	trimmed = append(trimmed, c.messages[0])
	trimmed = append(trimmed, tail...)
	c.messages = trimmed
}

// Reset drops everything but the system prompt.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = c.messages[:1:1]
}

// History returns a copy of the context.
func (c *Client) History() []inference.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]inference.Message(nil), c.messages...)
}
