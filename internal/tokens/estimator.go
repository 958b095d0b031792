// Package tokens approximates LLM token counts for Markdown text without a
// real tokenizer.
package tokens

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
)

// Default ratios, tuned for CJK prose where one character is roughly 0.7
// tokens. Code inside fences tokenizes more densely per character.
const (
	DefaultProseRatio   = 0.7
	DefaultCodeRatio    = 0.5
	DefaultSafetyFactor = 1.1
)

const fenceMarker = "```"

// Ratios holds the tokens-per-character heuristics.
type Ratios struct {
	Prose        float64
	Code         float64
	SafetyFactor float64
}

// DefaultRatios returns the stock heuristics.
func DefaultRatios() Ratios {
	return Ratios{
		Prose:        DefaultProseRatio,
		Code:         DefaultCodeRatio,
		SafetyFactor: DefaultSafetyFactor,
	}
}

// Validate rejects ratios that would make every estimate zero or negative.
func (r Ratios) Validate() error {
	if r.Prose <= 0 {
		return fmt.Errorf("prose ratio must be greater than 0, got %v", r.Prose)
	}
	if r.Code <= 0 {
		return fmt.Errorf("code ratio must be greater than 0, got %v", r.Code)
	}
	if r.SafetyFactor <= 0 {
		return fmt.Errorf("safety factor must be greater than 0, got %v", r.SafetyFactor)
	}
	return nil
}

// Estimator estimates token counts. The zero value is not usable; use
// NewEstimator or Default.
type Estimator struct {
	ratios Ratios
}

// NewEstimator returns an estimator using the given ratios.
func NewEstimator(r Ratios) *Estimator {
	return &Estimator{ratios: r}
}

// Default returns an estimator with DefaultRatios.
func Default() *Estimator {
	return NewEstimator(DefaultRatios())
}

// Ratios returns the heuristics in use.
func (e *Estimator) Ratios() Ratios {
	return e.ratios
}

// Estimate returns the approximate token count of text. It is pure and
// never fails; empty text is 0 tokens.
//
// A line whose trimmed form starts a fence toggles the in-fence flag before
// its own ratio is picked, so the opening fence line is counted as code and
// the closing one as prose.
func (e *Estimator) Estimate(text string) int {
	if text == "" {
		return 0
	}

	var total float64
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), fenceMarker) {
			inFence = !inFence
		}
		ratio := e.ratios.Prose
		if inFence {
			ratio = e.ratios.Code
		}
		total += float64(uniseg.GraphemeClusterCount(line)) * ratio
	}
	return int(total * e.ratios.SafetyFactor)
}
