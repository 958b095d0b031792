// Package openai is an llm.Client for the OpenAI Responses API and
// compatible endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/httpclient"
	"github.com/oukeidos/mdtrans/internal/llm"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Client struct {
	apiKey  string
	model   string
	baseURL string
}

var _ llm.Client = (*Client)(nil)

func NewClient(apiKey, model string) *Client {
	return &Client{apiKey: apiKey, model: model, baseURL: DefaultBaseURL}
}

// WithBaseURL points the client at a compatible endpoint.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// GetModelID returns the configured model identifier.
func (c *Client) GetModelID() string {
	return c.model
}

// Translate sends req.System as instructions and req.User as the single
// input message. Incomplete or empty replies are validation errors so the
// caller retries them.
func (c *Client) Translate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	reply, err := c.create(ctx, responsesRequest{
		Model:        c.model,
		Instructions: req.System,
		Input:        []inputItem{{Type: "message", Role: "user", Content: req.User}},
	})
	if err != nil {
		return nil, err
	}

	if reply.Status == "incomplete" {
		return nil, apperrors.New(apperrors.KindValidation, "OpenAI response was incomplete.",
			fmt.Errorf("response %s incomplete: reason=%s", reply.ID, reply.incompleteReason()))
	}
	text := reply.text()
	if text == "" {
		return nil, apperrors.New(apperrors.KindValidation, "OpenAI response contained no text.",
			fmt.Errorf("no output_text in response %s", reply.ID))
	}
	return &llm.Response{
		Text: text,
		Usage: llm.Usage{
			PromptTokens: reply.Usage.InputTokens,
			OutputTokens: reply.Usage.OutputTokens,
			TotalTokens:  reply.Usage.TotalTokens,
		},
	}, nil
}

// create posts to /responses and decodes a 200 reply.
func (c *Client) create(ctx context.Context, body responsesRequest) (*responsesReply, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	data, resp, err := httpclient.DoAndRead(httpclient.Default(), req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.New(apperrors.KindTransient,
			"OpenAI request failed due to a temporary network/runtime error.",
			fmt.Errorf("request failed: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, resp.Status, data)
	}

	var reply responsesReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "OpenAI response format was invalid.",
			fmt.Errorf("failed to decode response: %w", err))
	}
	slog.Debug("OpenAI response", "status", reply.Status, "response_id", reply.ID, "usage_total", reply.Usage.TotalTokens)
	return &reply, nil
}
