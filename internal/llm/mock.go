package llm

import (
	"context"
	"sync"
)

// MockReply is one scripted answer.
type MockReply struct {
	Text  string
	Usage Usage
	Err   error
}

// MockClient for testing. Replies are returned in order; the last one
// repeats once the script is exhausted. Handler, when set, takes precedence.
type MockClient struct {
	Replies []MockReply
	Handler func(req Request) (*Response, error)

	mu       sync.Mutex
	requests []Request
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) Translate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.requests = append(m.requests, req)
	n := len(m.requests)
	m.mu.Unlock()

	if m.Handler != nil {
		return m.Handler(req)
	}
	if len(m.Replies) == 0 {
		return &Response{}, nil
	}
	idx := n - 1
	if idx >= len(m.Replies) {
		idx = len(m.Replies) - 1
	}
	r := m.Replies[idx]
	if r.Err != nil {
		return nil, r.Err
	}
	return &Response{Text: r.Text, Usage: r.Usage}, nil
}

// Requests returns every request received so far.
func (m *MockClient) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of requests received.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
