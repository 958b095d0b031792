package markdown

import "github.com/oukeidos/mdtrans/internal/tokens"

// Optimizer coalesces adjacent small segments of the same mergeable type to
// cut the number of backend requests.
type Optimizer struct {
	estimator *tokens.Estimator
	maxTokens int
}

// NewOptimizer returns an optimizer that never produces a merged segment
// estimated above maxTokens.
func NewOptimizer(est *tokens.Estimator, maxTokens int) *Optimizer {
	if est == nil {
		est = tokens.Default()
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Optimizer{estimator: est, maxTokens: maxTokens}
}

// Optimize merges runs of consecutive same-type segments while the merged
// estimate stays within the ceiling. A merged segment keeps the Order and
// metadata of the first segment in its run. The input is not modified.
func (o *Optimizer) Optimize(segments []Segment) []Segment {
	if len(segments) == 0 {
		return nil
	}
	out := make([]Segment, 0, len(segments))
	cur := segments[0].WithContent(segments[0].Content)
	for _, next := range segments[1:] {
		if o.canMerge(cur, next) {
			cur = cur.WithContent(cur.Content + next.Content)
			continue
		}
		out = append(out, cur)
		cur = next.WithContent(next.Content)
	}
	return append(out, cur)
}

func (o *Optimizer) canMerge(a, b Segment) bool {
	if a.Type != b.Type || !a.Type.Mergeable() {
		return false
	}
	return o.estimator.Estimate(a.Content+b.Content) <= o.maxTokens
}
