package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oukeidos/mdtrans/internal/auth"
	"github.com/oukeidos/mdtrans/internal/language"
	"github.com/oukeidos/mdtrans/internal/llm"
	"github.com/oukeidos/mdtrans/internal/logger"
	"github.com/oukeidos/mdtrans/internal/metadata"
	"github.com/oukeidos/mdtrans/internal/pipeline"
	"github.com/oukeidos/mdtrans/internal/translator"
	"golang.org/x/term"
)

var (
	isTerminal   = term.IsTerminal
	getKey       = auth.GetKey
	getEnvKey    = auth.GetEnvKey
	getStatus    = auth.GetStatus
	promptForKey = auth.PromptForAPIKey
	newBackend   = pipeline.NewBackend
)

const sourcePrompt = "Terminal Prompt"

// resolveAPIKey handles the logic for finding the API key.
func resolveAPIKey(p metadata.Provider, allowEnv, envOnly bool) (string, string, error) {
	if envOnly {
		if key, ok := getEnvKey(p); ok {
			return key, string(auth.SourceEnv), nil
		}
		return "", "", fmt.Errorf("env-only set but %s is not set", auth.EnvVar(p))
	}

	if key, source := getKey(p, false); key != "" {
		return key, string(source), nil
	}

	if allowEnv {
		if key, ok := getEnvKey(p); ok {
			return key, string(auth.SourceEnv), nil
		}
	}

	if !isTerminal(int(os.Stdin.Fd())) {
		return "", "", fmt.Errorf("no API key available (non-interactive shell); set keychain or use --allow-env")
	}
	key, err := promptForKey(fmt.Sprintf("%s API Key (press Enter to skip): ", pipeline.ProviderLabel(p)))
	if err != nil {
		return "", "", fmt.Errorf("error reading API key: %w", err)
	}
	if strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), sourcePrompt, nil
	}
	if allowEnv {
		return "", "", fmt.Errorf("API key is required; not found in keychain or environment")
	}
	return "", "", fmt.Errorf("API key is required; not found in keychain (environment disabled by default; use --allow-env)")
}

func resolveLanguageCode(input string) (string, error) {
	if lang, ok := language.GetLanguage(input); ok {
		return lang.Code, nil
	}
	needle := strings.TrimSpace(input)
	if needle == "" {
		return "", fmt.Errorf("language is empty")
	}
	for _, entry := range language.GetSupportedLanguages() {
		if strings.EqualFold(entry.Name, needle) {
			return entry.Code, nil
		}
	}
	return "", fmt.Errorf("unsupported language: %s", input)
}

// estimateCost prices usage with the catalogue rates. Reasoning tokens
// (total minus prompt and output) are billed as output.
func estimateCost(model string, usage llm.Usage) (float64, int) {
	reasoning := usage.TotalTokens - (usage.PromptTokens + usage.OutputTokens)
	if reasoning < 0 {
		reasoning = 0
	}
	inRate, outRate, _ := metadata.Pricing(model)
	in := (float64(usage.PromptTokens) / 1_000_000) * inRate
	out := (float64(usage.OutputTokens+reasoning) / 1_000_000) * outRate
	return in + out, reasoning
}

func printUsageStats(w io.Writer, usage llm.Usage, duration time.Duration, model string) {
	fmt.Fprintln(w, "\n--- Execution Stats ---")
	fmt.Fprintf(w, "Time: %s\n", duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Model: %s\n", model)
	if usage.TotalTokens > 0 {
		fmt.Fprintf(w, "Tokens: In=%d, Out=%d, Total=%d\n", usage.PromptTokens, usage.OutputTokens, usage.TotalTokens)
		cost, reasoning := estimateCost(model, usage)
		fmt.Fprintf(w, "Estimated Cost: $%.5f (Reasoning Tokens: %d)\n", cost, reasoning)
	}
}

func logProgress(p translator.TranslationProgress) {
	switch p.State {
	case translator.StateCompleted:
		logger.Info("Chunk completed", "order", p.Order, "index", p.Index, "total", p.Total)
	case translator.StateInProgress:
		logger.Warn("Chunk retry", "order", p.Order, "attempt", p.Attempt, "error", p.Error)
	case translator.StateFailed:
		logger.Error("Chunk failed", "order", p.Order, "type", p.Type.String(), "error", p.Error)
	}
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("Cancellation requested")
			cancel()
		case <-ctx.Done():
		}
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
