package pipeline

import (
	"context"
	"fmt"

	"github.com/oukeidos/mdtrans/internal/gemini"
	"github.com/oukeidos/mdtrans/internal/llm"
	"github.com/oukeidos/mdtrans/internal/metadata"
	"github.com/oukeidos/mdtrans/internal/openai"
)

// NewBackend creates the llm.Client for cfg.Provider. The returned close
// function releases backend resources and is never nil.
func NewBackend(ctx context.Context, cfg Config) (llm.Client, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Provider {
	case metadata.ProviderOpenAI, "":
		client := openai.NewClient(cfg.APIKey, cfg.Model)
		if cfg.BaseURL != "" {
			client = client.WithBaseURL(cfg.BaseURL)
		}
		return client, noop, nil
	case metadata.ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return client, client.Close, nil
	}
	return nil, noop, fmt.Errorf("unsupported provider: %q", cfg.Provider)
}
