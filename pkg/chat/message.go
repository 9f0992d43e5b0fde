// Package chat sends user messages, optionally enriched with the speaker's
// current facial expression metrics, to an OpenAI-compatible chat API.
package chat

import "context"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a chat completion request.
type Request struct {
	Messages    []Message
	Model       string // Overrides the configured model when set
	MaxTokens   int
	Temperature float64
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a chat completion.
type Response struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
	Model        string  `json:"model,omitempty"`
	Usage        Usage   `json:"usage"`
	LatencyMs    int64   `json:"latency_ms"`
}

// Completer produces chat completions.
type Completer interface {
	Chat(ctx context.Context, req *Request) (*Response, error)
}
