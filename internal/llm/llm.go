// Package llm defines the text-in, text-out capability the translation
// pipeline needs from a language model backend.
package llm

import "context"

// Request is one completion request. System may be empty.
type Request struct {
	System string
	User   string
}

// Usage holds token usage reported by the backend.
type Usage struct {
	PromptTokens int
	OutputTokens int
	TotalTokens  int
}

// Add returns the sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens: u.PromptTokens + o.PromptTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		TotalTokens:  u.TotalTokens + o.TotalTokens,
	}
}

// Response is the raw reply text plus usage.
type Response struct {
	Text  string
	Usage Usage
}

// Client is implemented by every backend adapter. Errors should be
// classified with apperrors so callers can decide on retries.
type Client interface {
	Translate(ctx context.Context, req Request) (*Response, error)
}
