package chat

import (
	"context"
	"sync"
)

// Mock implements Completer for testing.
type Mock struct {
	// ChatFunc is called when Chat is invoked. When nil, Chat echoes the
	// last message.
	ChatFunc func(ctx context.Context, req *Request) (*Response, error)

	mu       sync.Mutex
	requests []*Request
}

// Chat records the request and delegates to ChatFunc.
func (m *Mock) Chat(ctx context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}

	reply := ""
	if n := len(req.Messages); n > 0 {
		reply = "echo: " + req.Messages[n-1].Content
	}
	return &Response{
		Message:      Message{Role: RoleAssistant, Content: reply},
		FinishReason: "stop",
	}, nil
}

// Requests returns the recorded requests.
func (m *Mock) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset clears recorded requests.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// Verify Mock implements Completer at compile time.
var _ Completer = (*Mock)(nil)
