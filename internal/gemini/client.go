// Package gemini is an llm.Client backed by the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/httpclient"
	"github.com/oukeidos/mdtrans/internal/llm"
	"google.golang.org/api/option"
)

type Client struct {
	genai     *genai.Client
	modelName string
}

var _ llm.Client = (*Client)(nil)

// NewClient dials Gemini with apiKey. A custom HTTP client would drop the
// key header genai injects, so request timeouts come from the context in
// Translate instead.
func NewClient(ctx context.Context, apiKey, modelName string) (*Client, error) {
	gc, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Client{genai: gc, modelName: modelName}, nil
}

func (c *Client) Close() error {
	return c.genai.Close()
}

// GetModelID returns the configured model identifier.
func (c *Client) GetModelID() string {
	return c.modelName
}

// newModel returns a fresh handle per request so the system instruction of
// one request never leaks into another.
func (c *Client) newModel(system string) *genai.GenerativeModel {
	m := c.genai.GenerativeModel(c.modelName)
	m.ResponseMIMEType = "text/plain"
	if strings.TrimSpace(system) != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	return m
}

// Translate sends req to Gemini and returns the text of the first candidate
// that has any.
func (c *Client) Translate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, httpclient.DefaultTimeout)
	defer cancel()

	resp, err := c.newModel(req.System).GenerateContent(ctx, genai.Text(req.User))
	if err != nil {
		return nil, classifyError(err)
	}
	text, err := replyText(resp)
	if err != nil {
		return nil, apperrors.Validation(err)
	}
	return &llm.Response{Text: text, Usage: usageOf(resp)}, nil
}

func usageOf(resp *genai.GenerateContentResponse) llm.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return llm.Usage{}
	}
	u := resp.UsageMetadata
	return llm.Usage{
		PromptTokens: int(u.PromptTokenCount),
		OutputTokens: int(u.CandidatesTokenCount),
		TotalTokens:  int(u.TotalTokenCount),
	}
}

func replyText(resp *genai.GenerateContentResponse) (string, error) {
	switch {
	case resp == nil:
		return "", fmt.Errorf("no response received from Gemini")
	case len(resp.Candidates) == 0:
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	for _, cand := range resp.Candidates {
		if text := candidateText(cand); text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("no text parts found in Gemini response")
}

func candidateText(cand *genai.Candidate) string {
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
