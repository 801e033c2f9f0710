// Package inference talks to OpenAI-compatible chat completion APIs.
// The hosted OpenAI API and local servers such as Ollama or vLLM share
// the Client; Chain puts one in front of another.
package inference

import "context"

// Provider answers chat requests.
type Provider interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	// Health verifies the endpoint is reachable and the key accepted.
	Health(ctx context.Context) error
	Close() error
}

// Role is who authored a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func NewSystemMessage(text string) Message    { return Message{Role: RoleSystem, Content: text} }
func NewUserMessage(text string) Message      { return Message{Role: RoleUser, Content: text} }
func NewAssistantMessage(text string) Message { return Message{Role: RoleAssistant, Content: text} }

// ChatRequest is one completion call. Zero Model, MaxTokens and
// Temperature take the client's defaults.
type ChatRequest struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// ChatResponse is the first choice of a completion.
type ChatResponse struct {
	Message      Message
	FinishReason string
	Model        string
	Usage        Usage
	LatencyMs    int64
}

// Usage is the token accounting reported by the API.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
