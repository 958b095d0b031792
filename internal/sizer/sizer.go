// Package sizer decides whether a document fits a model's input budget.
package sizer

import (
	"fmt"

	"github.com/oukeidos/mdtrans/internal/tokens"
)

const (
	// DefaultResponseReserve is the share of the context window kept free
	// for the model's answer.
	DefaultResponseReserve = 0.3
	// DefaultSplitMargin is subtracted from the input budget to form the
	// split threshold.
	DefaultSplitMargin = 500
)

// Options tunes the analyzer. Zero fields take the defaults.
type Options struct {
	ResponseReserve float64
	SplitMargin     int
	Estimator       *tokens.Estimator
}

// Result is the outcome of a size analysis.
type Result struct {
	EstimatedTokens  int
	MaxAllowedTokens int
	NeedsSplit       bool
	UsagePercentage  float64
}

// Analyzer measures documents against one model capacity.
type Analyzer struct {
	estimator      *tokens.Estimator
	capacity       int
	maxInputTokens int
	threshold      int
}

// New returns an analyzer for a model with the given total capacity.
func New(capacity int, opts Options) (*Analyzer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be greater than 0, got %d", capacity)
	}
	reserve := opts.ResponseReserve
	if reserve == 0 {
		reserve = DefaultResponseReserve
	}
	if reserve < 0 || reserve >= 1 {
		return nil, fmt.Errorf("response reserve must be in [0, 1), got %v", reserve)
	}
	margin := opts.SplitMargin
	if margin == 0 {
		margin = DefaultSplitMargin
	}
	est := opts.Estimator
	if est == nil {
		est = tokens.Default()
	}

	maxInput := int(float64(capacity) - float64(capacity)*reserve)
	return &Analyzer{
		estimator:      est,
		capacity:       capacity,
		maxInputTokens: maxInput,
		threshold:      maxInput - margin,
	}, nil
}

// Capacity returns the model's total context size.
func (a *Analyzer) Capacity() int { return a.capacity }

// MaxInputTokens returns the input budget after the response reservation.
func (a *Analyzer) MaxInputTokens() int { return a.maxInputTokens }

// Threshold returns the estimated token count above which a document is split.
func (a *Analyzer) Threshold() int { return a.threshold }

// Analyze reports how much of the model's capacity text would use.
func (a *Analyzer) Analyze(text string) Result {
	estimated := a.estimator.Estimate(text)
	return Result{
		EstimatedTokens:  estimated,
		MaxAllowedTokens: a.maxInputTokens,
		NeedsSplit:       estimated > a.threshold,
		UsagePercentage:  float64(estimated) / float64(a.capacity) * 100,
	}
}

// IsTooBig reports whether text must be split.
func (a *Analyzer) IsTooBig(text string) bool {
	return a.estimator.Estimate(text) > a.threshold
}
