package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/teslashibe/go-facemetrics/pkg/expression"
)

// Conversation is a bounded chat history anchored by a system prompt.
// It is safe for concurrent use; sends are serialized.
type Conversation struct {
	completer Completer
	limit     int

	mu      sync.Mutex
	history []Message
}

// NewConversation starts a conversation. limit counts the system prompt and
// is raised to 2 if smaller.
func NewConversation(c Completer, systemPrompt string, limit int) *Conversation {
	if limit < 2 {
		limit = 2
	}
	return &Conversation{
		completer: c,
		limit:     limit,
		history:   []Message{{Role: RoleSystem, Content: systemPrompt}},
	}
}

// Send posts text, enriched with m when non-nil, and returns the reply.
// On failure the history is left as it was before the call.
func (c *Conversation) Send(ctx context.Context, text string, m *expression.Metrics) (*Response, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	messages := make([]Message, len(c.history), len(c.history)+1)
	copy(messages, c.history)
	messages = append(messages, Message{Role: RoleUser, Content: Enrich(text, m)})

	resp, err := c.completer.Chat(ctx, &Request{Messages: messages})
	if err != nil {
		return nil, err
	}

	c.history = append(messages, resp.Message)
	c.trim()
	return resp, nil
}

// trim keeps the system prompt and the most recent limit-1 messages.
func (c *Conversation) trim() {
	if len(c.history) <= c.limit {
		return
	}
	keep := c.limit - 1
	trimmed := make([]Message, 0, c.limit)
	trimmed = append(trimmed, c.history[0])
	trimmed = append(trimmed, c.history[len(c.history)-keep:]...)
	c.history = trimmed
}

// History returns a copy of the messages, system prompt first.
func (c *Conversation) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

// Clear drops everything but the system prompt.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = c.history[:1]
}
