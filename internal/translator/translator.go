package translator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/language"
	"github.com/oukeidos/mdtrans/internal/llm"
	"github.com/oukeidos/mdtrans/internal/logger"
	"github.com/oukeidos/mdtrans/internal/markdown"
	"github.com/oukeidos/mdtrans/internal/response"
	"github.com/oukeidos/mdtrans/internal/tcontext"
)

// DefaultMaxAttempts is the number of backend calls made for one request
// before giving up.
const DefaultMaxAttempts = 3

// GetSystemPrompt generates a language-specific system prompt.
func GetSystemPrompt(sourceName, targetName string) string {
	return fmt.Sprintf(`You are a professional %s to %s translator specializing in technical blog articles written in Markdown.
- Keep the Markdown structure of the input unchanged.
- Leave code, URLs and HTML elements as they are.
- Write ONLY the %s translation; do not include the %s source text.`,
		sourceName, targetName, targetName, sourceName)
}

const chunkPromptTemplate = `# Translation Context
%s
# Translation Instructions
Please translate the following %s markdown text to %s.
Preserve code blocks and HTML elements in the markdown without translating them.
Translate the %s section.
Do not include any explanations, just translate the text directly.

# Input Text
%s

# Output Format
Return only the translation result in markdown format.`

// InstructionPhrase names a segment type in the translation instructions.
func InstructionPhrase(t markdown.SegmentType) string {
	switch t {
	case markdown.Heading:
		return "heading"
	case markdown.Paragraph:
		return "paragraph"
	case markdown.List:
		return "list"
	case markdown.Table:
		return "table"
	case markdown.CodeBlock:
		return "code block"
	case markdown.FrontMatter:
		return "frontmatter"
	case markdown.Other:
		return "content"
	}
	return "content"
}

// TranslationState represents the current state of a chunk translation.
type TranslationState int

const (
	StateStarted TranslationState = iota
	StateInProgress
	StateCompleted
	StateSkipped
	StateFailed
	StateCanceled
)

// TranslationProgress represents the current state of the translation process.
type TranslationProgress struct {
	Index   int
	Total   int
	Order   int
	Type    markdown.SegmentType
	Attempt int
	State   TranslationState
	Error   error
}

// ChunkFailure describes a segment that could not be translated. The
// segment's original content is kept in the output.
type ChunkFailure struct {
	Order    int                  `json:"order"`
	Type     markdown.SegmentType `json:"type"`
	Kind     apperrors.Kind       `json:"kind"`
	Reason   string               `json:"reason"`
	Attempts int                  `json:"attempts"`
}

// ChunkResult is the outcome of translating one segment. Translated always
// holds usable content: the translation on success, the original otherwise.
type ChunkResult struct {
	Original   markdown.Segment
	Translated markdown.Segment
	Skipped    bool
	Failure    *ChunkFailure
}

// OK reports whether the segment was translated or intentionally skipped.
func (r ChunkResult) OK() bool { return r.Failure == nil }

// BatchResult is the outcome of TranslateBatch.
type BatchResult struct {
	Segments []markdown.Segment
	Results  []ChunkResult
	Failures []ChunkFailure
	// Context is the context after the last segment. The caller's initial
	// context is never modified.
	Context *tcontext.Context
}

// Translated returns the number of segments actually sent and translated.
func (b BatchResult) Translated() int {
	n := 0
	for _, r := range b.Results {
		if r.OK() && !r.Skipped {
			n++
		}
	}
	return n
}

// Options configures a Translator.
type Options struct {
	SourceLang  language.Language
	TargetLang  language.Language
	MaxAttempts int
	// RecentContextChars adds up to this many characters of recently
	// translated text to each chunk prompt. Zero disables it.
	RecentContextChars int
	OnProgress         func(TranslationProgress)
}

// Translator translates segments one at a time through an llm.Client.
type Translator struct {
	client      llm.Client
	srcLang     language.Language
	tgtLang     language.Language
	maxAttempts int
	recentChars int
	onProgress  func(TranslationProgress)
	sleep       func(ctx context.Context, d time.Duration) error

	usage   llm.Usage
	usageMu sync.Mutex
}

// NewTranslator creates a new Translator instance.
func NewTranslator(client llm.Client, opts Options) (*Translator, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if opts.MaxAttempts < 0 {
		return nil, fmt.Errorf("maxAttempts must be 0 or greater, got %d", opts.MaxAttempts)
	}
	if opts.RecentContextChars < 0 {
		return nil, fmt.Errorf("recentContextChars must be 0 or greater, got %d", opts.RecentContextChars)
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	src, tgt := opts.SourceLang, opts.TargetLang
	if src.Name == "" {
		src, _ = language.GetLanguage(language.DefaultSource)
	}
	if tgt.Name == "" {
		tgt, _ = language.GetLanguage(language.DefaultTarget)
	}
	return &Translator{
		client:      client,
		srcLang:     src,
		tgtLang:     tgt,
		maxAttempts: maxAttempts,
		recentChars: opts.RecentContextChars,
		onProgress:  opts.OnProgress,
		sleep:       sleepContext,
	}, nil
}

// SourceLang returns the source language.
func (t *Translator) SourceLang() language.Language { return t.srcLang }

// TargetLang returns the target language.
func (t *Translator) TargetLang() language.Language { return t.tgtLang }

// BuildPrompt renders the user prompt for one segment.
func (t *Translator) BuildPrompt(seg markdown.Segment, tc *tcontext.Context) string {
	var ctxText string
	if tc != nil {
		ctxText = tc.Prompt()
		if t.recentChars > 0 {
			if recent := tc.RecentTranslatedContent(t.recentChars); recent != "" {
				ctxText += "# Recent Translated Content\n" + recent + "\n\n"
			}
		}
	}
	return fmt.Sprintf(chunkPromptTemplate,
		ctxText, t.srcLang.Name, t.tgtLang.Name, InstructionPhrase(seg.Type), seg.Content)
}

// Translate translates one segment and, on success, records it in tc.
// Code blocks, front matter and blank segments are passed through without
// calling the backend. Translate never returns an error; failures are
// reported in ChunkResult.Failure.
func (t *Translator) Translate(ctx context.Context, seg markdown.Segment, tc *tcontext.Context) ChunkResult {
	return t.translate(ctx, seg, tc, 0, 1)
}

func (t *Translator) translate(ctx context.Context, seg markdown.Segment, tc *tcontext.Context, index, total int) ChunkResult {
	progress := TranslationProgress{Index: index, Total: total, Order: seg.Order, Type: seg.Type}

	if seg.Type.Atomic() || strings.TrimSpace(seg.Content) == "" {
		progress.State = StateSkipped
		t.report(progress)
		return ChunkResult{Original: seg, Translated: seg, Skipped: true}
	}

	req := llm.Request{
		System: GetSystemPrompt(t.srcLang.Name, t.tgtLang.Name),
		User:   t.BuildPrompt(seg, tc),
	}
	validate := func(text string) error {
		if PostProcess(text) == "" {
			return apperrors.Validation(errors.New("empty translation"))
		}
		return nil
	}
	text, attempts, err := t.complete(ctx, req, validate, progress)
	if err != nil {
		failure := newChunkFailure(seg, err, attempts)
		progress.Attempt = attempts
		progress.State = StateFailed
		progress.Error = err
		t.report(progress)
		logger.Error("Segment failed", "order", seg.Order, "type", seg.Type.String(), "attempts", attempts, "error", apperrors.PublicMessage(err))
		return ChunkResult{Original: seg, Translated: seg, Failure: &failure}
	}

	translated := seg.WithContent(keepSpacing(seg.Content, PostProcess(text)))
	if tc != nil {
		tc.UpdateContext(seg, translated)
	}
	progress.Attempt = attempts
	progress.State = StateCompleted
	t.report(progress)
	return ChunkResult{Original: seg, Translated: translated}
}

// TranslateBatch translates segments in order, threading a clone of
// initial through every call. A nil initial starts from an empty context.
func (t *Translator) TranslateBatch(ctx context.Context, segments []markdown.Segment, initial *tcontext.Context) BatchResult {
	var tc *tcontext.Context
	if initial != nil {
		tc = initial.Clone()
	} else {
		tc = tcontext.New(0)
	}

	res := BatchResult{
		Segments: make([]markdown.Segment, 0, len(segments)),
		Results:  make([]ChunkResult, 0, len(segments)),
		Context:  tc,
	}
	canceled := false
	for i, seg := range segments {
		var r ChunkResult
		if err := ctx.Err(); err != nil && !seg.Type.Atomic() {
			if !canceled {
				canceled = true
				t.report(TranslationProgress{Index: i, Total: len(segments), Order: seg.Order, Type: seg.Type, State: StateCanceled, Error: err})
			}
			failure := newChunkFailure(seg, err, 0)
			r = ChunkResult{Original: seg, Translated: seg, Failure: &failure}
		} else {
			r = t.translate(ctx, seg, tc, i, len(segments))
		}
		res.Results = append(res.Results, r)
		res.Segments = append(res.Segments, r.Translated)
		if r.Failure != nil {
			res.Failures = append(res.Failures, *r.Failure)
		}
	}
	return res
}

// Complete sends one request with the retry policy and returns the raw
// reply text. validate, when non-nil, rejects unusable replies; a returned
// apperrors.Validation error is retried like a transient failure.
func (t *Translator) Complete(ctx context.Context, req llm.Request, validate func(string) error) (string, error) {
	text, _, err := t.CompleteAttempts(ctx, req, validate)
	return text, err
}

// CompleteAttempts is Complete that also returns the number of backend
// calls made, including failed ones.
func (t *Translator) CompleteAttempts(ctx context.Context, req llm.Request, validate func(string) error) (string, int, error) {
	return t.complete(ctx, req, validate, TranslationProgress{Index: -1})
}

func (t *Translator) complete(ctx context.Context, req llm.Request, validate func(string) error, progress TranslationProgress) (string, int, error) {
	var err error
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		if progress.Index >= 0 {
			p := progress
			p.Attempt = attempt
			p.State = StateStarted
			if attempt > 1 {
				p.State = StateInProgress
				p.Error = err
			}
			t.report(p)
		}

		var resp *llm.Response
		resp, err = t.client.Translate(ctx, req)
		if err == nil {
			t.addUsage(resp.Usage)
			if validate != nil {
				err = validate(resp.Text)
			}
			if err == nil {
				return resp.Text, attempt, nil
			}
		}

		retry, backoff := retryDecision(ctx, err, attempt, t.maxAttempts)
		if !retry {
			return "", attempt, err
		}
		logger.Warn("Retrying request", "order", progress.Order, "attempt", attempt, "backoff", backoff.String(), "error", apperrors.PublicMessage(err))
		if werr := t.sleep(ctx, backoff); werr != nil {
			return "", attempt, werr
		}
	}
	return "", t.maxAttempts, err
}

var markerHeadings = []string{"# Translation Result", "# Output", "# Translated Text"}

// PostProcess cleans a raw chunk reply: it trims whitespace, removes a
// ```markdown wrapper and unwraps replies that echo a result heading with
// a structured content section. Text without such a section is returned
// as is, so a translated heading like "# Output" survives.
func PostProcess(raw string) string {
	text := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(text, "```markdown"); ok {
		text = strings.TrimSpace(rest)
		text = strings.TrimSpace(strings.TrimSuffix(text, "```"))
	}
	if !slices.ContainsFunc(markerHeadings, func(m string) bool { return strings.Contains(text, m) }) {
		return text
	}
	if parsed := response.Parse(text); strings.TrimSpace(parsed.Content) != "" {
		return parsed.Content
	}
	return text
}

// keepSpacing wraps text in the leading and trailing whitespace of the
// source segment. Segments carry the blank lines that separate blocks, so
// the translated segments still concatenate into the source layout.
func keepSpacing(source, text string) string {
	body := strings.TrimSpace(source)
	if body == "" {
		return text
	}
	lead := source[:strings.Index(source, body)]
	trail := source[len(lead)+len(body):]
	return lead + text + trail
}

func newChunkFailure(seg markdown.Segment, err error, attempts int) ChunkFailure {
	return ChunkFailure{
		Order:    seg.Order,
		Type:     seg.Type,
		Kind:     kindOf(err),
		Reason:   apperrors.PublicMessage(err),
		Attempts: attempts,
	}
}

func kindOf(err error) apperrors.Kind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.KindCanceled
	}
	if kind, ok := apperrors.KindOf(err); ok {
		return kind
	}
	return apperrors.KindTransient
}

func (t *Translator) report(p TranslationProgress) {
	if t.onProgress != nil {
		t.onProgress(p)
	}
}

func (t *Translator) addUsage(u llm.Usage) {
	t.usageMu.Lock()
	t.usage = t.usage.Add(u)
	t.usageMu.Unlock()
}

func retryDecision(ctx context.Context, err error, attempt, maxAttempts int) (bool, time.Duration) {
	if err == nil {
		return false, 0
	}
	if attempt >= maxAttempts {
		return false, 0
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return false, 0
	}
	if !apperrors.IsRetryable(err) {
		return false, 0
	}
	base := 1 * time.Second
	maxBackoff := 20 * time.Second
	jitterMax := 1 * time.Second

	backoff := base << (attempt - 1)
	if apperrors.IsRateLimit(err) {
		backoff = backoff * 2
	}
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(jitterMax)))
	return true, backoff + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GetUsage returns the total token usage.
func (t *Translator) GetUsage() llm.Usage {
	t.usageMu.Lock()
	defer t.usageMu.Unlock()
	return t.usage
}
