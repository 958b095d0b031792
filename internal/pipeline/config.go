package pipeline

import (
	"fmt"

	"github.com/oukeidos/mdtrans/internal/language"
	"github.com/oukeidos/mdtrans/internal/markdown"
	"github.com/oukeidos/mdtrans/internal/metadata"
	"github.com/oukeidos/mdtrans/internal/sizer"
	"github.com/oukeidos/mdtrans/internal/tcontext"
	"github.com/oukeidos/mdtrans/internal/tokens"
	"github.com/oukeidos/mdtrans/internal/translator"
)

// Config holds all configuration required for translating documents.
type Config struct {
	// IO Paths
	InputPath    string
	OutputPath   string
	GlossaryPath string

	// API Configuration
	Provider metadata.Provider
	APIKey   string
	Model    string
	BaseURL  string // Optional: OpenAI-compatible endpoint
	// ProviderLabel names the backend in the disclaimer banner. Empty uses
	// the provider's display name.
	ProviderLabel string

	// Size analysis. Zero values take the package defaults.
	Capacity        int // Total context window; 0 looks the model up in the catalogue
	ResponseReserve float64
	SplitMargin     int
	Ratios          tokens.Ratios

	// Processing Parameters
	MaxSegmentTokens   int
	ContextHistory     int
	RecentContextChars int
	MaxAttempts        int
	Optimize           bool
	Concurrency        int // Documents translated at once by the dispatcher

	// Languages
	SourceLang string
	TargetLang string

	// Glossary seeds the terminology of every run, in order.
	Glossary []tcontext.Term

	// Flags
	Overwrite bool // If true, overwrite output file without asking (CLI mostly)
	NoBanner  bool

	// Callbacks
	// OnProgress is called with chunk translation progress updates.
	OnProgress func(translator.TranslationProgress)

	// OnConfirmOverwrite is called when the output file exists.
	// It should return true if the file should be overwritten.
	OnConfirmOverwrite func(path string) bool
}

const (
	MinConcurrency        = 1
	MaxConcurrency        = 8
	MaxContextHistory     = 20
	MaxRecentContextChars = 8000
	MaxMaxAttempts        = 10
	MinSegmentTokens      = 100
)

func ClampConcurrency(value int) (int, bool) {
	if value < MinConcurrency {
		return MinConcurrency, true
	}
	if value > MaxConcurrency {
		return MaxConcurrency, true
	}
	return value, false
}

// WithDefaults fills unset fields with the defaults used by the CLI.
func (c Config) WithDefaults() Config {
	if c.Provider == "" {
		c.Provider = metadata.ProviderOpenAI
	}
	if c.Model == "" {
		c.Model = metadata.DefaultModelFor(c.Provider)
	}
	if c.SourceLang == "" {
		c.SourceLang = language.DefaultSource
	}
	if c.TargetLang == "" {
		c.TargetLang = language.DefaultTarget
	}
	if c.Capacity == 0 {
		c.Capacity, _ = metadata.ModelCapacity(c.Model)
	}
	if c.ResponseReserve == 0 {
		c.ResponseReserve = sizer.DefaultResponseReserve
	}
	if c.SplitMargin == 0 {
		c.SplitMargin = sizer.DefaultSplitMargin
	}
	if c.Ratios == (tokens.Ratios{}) {
		c.Ratios = tokens.DefaultRatios()
	}
	if c.MaxSegmentTokens == 0 {
		c.MaxSegmentTokens = markdown.DefaultMaxTokens
	}
	if c.ContextHistory == 0 {
		c.ContextHistory = tcontext.DefaultHistorySize
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = translator.DefaultMaxAttempts
	}
	if c.Concurrency == 0 {
		c.Concurrency = MinConcurrency
	}
	if c.ProviderLabel == "" {
		c.ProviderLabel = ProviderLabel(c.Provider)
	}
	return c
}

// Normalize applies safe bounds to config values and returns any adjustments.
func (c Config) Normalize() (Config, []string) {
	var notes []string
	if clamped, changed := ClampConcurrency(c.Concurrency); changed {
		notes = append(notes, fmt.Sprintf("concurrency clamped from %d to %d (max %d)", c.Concurrency, clamped, MaxConcurrency))
		c.Concurrency = clamped
	}
	if c.ContextHistory > MaxContextHistory {
		notes = append(notes, fmt.Sprintf("context-history clamped from %d to %d (max %d)", c.ContextHistory, MaxContextHistory, MaxContextHistory))
		c.ContextHistory = MaxContextHistory
	}
	if c.RecentContextChars > MaxRecentContextChars {
		notes = append(notes, fmt.Sprintf("recent-context clamped from %d to %d (max %d)", c.RecentContextChars, MaxRecentContextChars, MaxRecentContextChars))
		c.RecentContextChars = MaxRecentContextChars
	}
	if c.MaxAttempts > MaxMaxAttempts {
		notes = append(notes, fmt.Sprintf("max-attempts clamped from %d to %d (max %d)", c.MaxAttempts, MaxMaxAttempts, MaxMaxAttempts))
		c.MaxAttempts = MaxMaxAttempts
	}
	if c.Capacity > 0 && c.MaxSegmentTokens > c.Capacity/2 {
		limit := c.Capacity / 2
		notes = append(notes, fmt.Sprintf("segment-tokens clamped from %d to %d (half of capacity %d)", c.MaxSegmentTokens, limit, c.Capacity))
		c.MaxSegmentTokens = limit
	}
	return c, notes
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	switch c.Provider {
	case metadata.ProviderOpenAI, metadata.ProviderGemini:
	default:
		return fmt.Errorf("unsupported provider: %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be greater than 0, got %d", c.Capacity)
	}
	if c.ResponseReserve < 0 || c.ResponseReserve >= 1 {
		return fmt.Errorf("responseReserve must be in [0, 1), got %v", c.ResponseReserve)
	}
	if c.SplitMargin < 0 {
		return fmt.Errorf("splitMargin must be 0 or greater, got %d", c.SplitMargin)
	}
	if err := c.Ratios.Validate(); err != nil {
		return err
	}
	if c.MaxSegmentTokens < MinSegmentTokens {
		return fmt.Errorf("maxSegmentTokens must be at least %d, got %d", MinSegmentTokens, c.MaxSegmentTokens)
	}
	if c.ContextHistory < 0 {
		return fmt.Errorf("contextHistory must be 0 or greater, got %d", c.ContextHistory)
	}
	if c.RecentContextChars < 0 {
		return fmt.Errorf("recentContextChars must be 0 or greater, got %d", c.RecentContextChars)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("maxAttempts must be greater than 0, got %d", c.MaxAttempts)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be greater than 0, got %d", c.Concurrency)
	}
	return nil
}

// ValidateRuntime additionally checks settings needed to call a backend.
func (c Config) ValidateRuntime() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	return nil
}

// ProviderLabel returns the display name of a provider.
func ProviderLabel(p metadata.Provider) string {
	switch p {
	case metadata.ProviderOpenAI:
		return "OpenAI"
	case metadata.ProviderGemini:
		return "Gemini"
	}
	return string(p)
}
