package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/document"
	"github.com/oukeidos/mdtrans/internal/glossary"
	"github.com/oukeidos/mdtrans/internal/language"
	"github.com/oukeidos/mdtrans/internal/llm"
	"github.com/oukeidos/mdtrans/internal/logger"
	"github.com/oukeidos/mdtrans/internal/markdown"
	"github.com/oukeidos/mdtrans/internal/response"
	"github.com/oukeidos/mdtrans/internal/sizer"
	"github.com/oukeidos/mdtrans/internal/tcontext"
	"github.com/oukeidos/mdtrans/internal/tokens"
	"github.com/oukeidos/mdtrans/internal/translator"
)

// Orders used in failure lists for the fields translated outside the body.
const (
	TitleOrder   = -1
	SummaryOrder = -2
)

const bannerTemplate = "> ⚠️ This article was automatically translated by %s (%s).\n" +
	"> It may be edited eventually, but please be aware that it may contain incorrect information at this time.\n\n"

const documentSystemTemplate = `Please translate the following {source} blog entry into {target}. The title, the summary (if present) and the content are to be translated.
The content is written in markdown.
Please include the <code> and <pre> elements in the markdown content in the result without translating them.
The part surrounded by ` + "```" + ` in markdown is the source code, so please do not translate the {source} in that code.
The format of the input and the output should be the following format and do not include any explanations.

== title ==
translated title

== summary ==
translated summary (only when the input has a summary)

== content ==
translated content (markdown)`

const fieldPromptTemplate = `Please translate the following %s blog %s into %s:

%s

Return only the translated %s with no additional text or formatting.`

// Result is the outcome of one document run.
type Result struct {
	RunID    string
	Source   *document.Document
	Document *document.Document // nil when Status is Failure
	Status   TranslationStatus
	Failures []translator.ChunkFailure
	// TotalChunks counts translatable units: body segments sent to the
	// backend (or 1 for a whole-document request) plus title and summary.
	TotalChunks int
	Size        sizer.Result
	Split       bool
	Segments    int
	Usage       llm.Usage
}

// Orchestrator runs the fetch, analyze, translate and reassemble steps for
// one document at a time. It is safe for concurrent use; each Translate
// call builds its own translator and context.
type Orchestrator struct {
	fetcher   document.Fetcher
	client    llm.Client
	cfg       Config
	analyzer  *sizer.Analyzer
	segmenter *markdown.Segmenter
	optimizer *markdown.Optimizer
	srcLang   language.Language
	tgtLang   language.Language
}

// NewOrchestrator validates cfg and wires the size analyzer and segmenter.
func NewOrchestrator(fetcher document.Fetcher, client llm.Client, cfg Config) (*Orchestrator, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	cfg = cfg.WithDefaults()
	cfg, notes := cfg.Normalize()
	for _, note := range notes {
		logger.Warn("Config normalized", "detail", note)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	srcLang, ok := language.GetLanguage(cfg.SourceLang)
	if !ok {
		return nil, fmt.Errorf("unsupported source language: %s", cfg.SourceLang)
	}
	tgtLang, ok := language.GetLanguage(cfg.TargetLang)
	if !ok {
		return nil, fmt.Errorf("unsupported target language: %s", cfg.TargetLang)
	}
	if srcLang.Code == tgtLang.Code {
		return nil, fmt.Errorf("source and target languages must be different (%s)", srcLang.Code)
	}

	est := tokens.NewEstimator(cfg.Ratios)
	analyzer, err := sizer.New(cfg.Capacity, sizer.Options{
		ResponseReserve: cfg.ResponseReserve,
		SplitMargin:     cfg.SplitMargin,
		Estimator:       est,
	})
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		fetcher:   fetcher,
		client:    client,
		cfg:       cfg,
		analyzer:  analyzer,
		segmenter: markdown.NewSegmenter(est, cfg.MaxSegmentTokens),
		optimizer: markdown.NewOptimizer(est, cfg.MaxSegmentTokens),
		srcLang:   srcLang,
		tgtLang:   tgtLang,
	}, nil
}

// Config returns the effective configuration after defaults and clamps.
func (o *Orchestrator) Config() Config { return o.cfg }

// Translate fetches a document and translates it. Chunk and field failures
// are reported in Result; the error return is reserved for fetch and setup
// problems.
func (o *Orchestrator) Translate(ctx context.Context, documentID string) (Result, error) {
	runID := uuid.NewString()
	log := logger.With("run_id", runID, "document", documentID)

	src, err := o.fetcher.FetchDocument(ctx, documentID)
	if err != nil {
		return Result{RunID: runID}, fmt.Errorf("failed to fetch document %s: %w", documentID, err)
	}

	tr, err := translator.NewTranslator(o.client, translator.Options{
		SourceLang:         o.srcLang,
		TargetLang:         o.tgtLang,
		MaxAttempts:        o.cfg.MaxAttempts,
		RecentContextChars: o.cfg.RecentContextChars,
		OnProgress:         o.cfg.OnProgress,
	})
	if err != nil {
		return Result{RunID: runID}, fmt.Errorf("failed to initialize translator: %w", err)
	}

	size := o.analyzer.Analyze(src.Content)
	res := Result{RunID: runID, Source: src, Size: size, Split: size.NeedsSplit}
	log.Info("Analyzed document size",
		"estimated_tokens", size.EstimatedTokens,
		"max_allowed_tokens", size.MaxAllowedTokens,
		"usage_percentage", fmt.Sprintf("%.2f", size.UsagePercentage),
		"split", size.NeedsSplit,
	)

	initial := tcontext.New(o.cfg.ContextHistory)
	glossary.Seed(initial, o.cfg.Glossary)

	hasTitle := strings.TrimSpace(src.Title) != ""
	hasSummary := src.Summary != nil && strings.TrimSpace(*src.Summary) != ""

	var (
		title      = src.Title
		summary    = src.Summary
		content    string
		failures   []translator.ChunkFailure
		total      int
		needTitle  = hasTitle
		needSumm   = hasSummary
		bodyFailed bool
	)
	if size.NeedsSplit {
		segments := o.segmenter.Segment(src.Content)
		if o.cfg.Optimize {
			before := len(segments)
			segments = o.optimizer.Optimize(segments)
			log.Info("Optimized segments", "before", before, "after", len(segments))
		}
		res.Segments = len(segments)
		log.Info("Segmented document", "segments", len(segments))

		batch := tr.TranslateBatch(ctx, segments, initial)
		content = markdown.Join(batch.Segments, "")
		failures = append(failures, batch.Failures...)
		for _, r := range batch.Results {
			if !r.Skipped {
				total++
			}
		}
	} else {
		res.Segments = 1
		total = 1
		parsed, attempts, err := o.translateWhole(ctx, tr, src, initial)
		if err != nil {
			bodyFailed = true
			failures = append(failures, fieldFailure(0, markdown.Other, err, attempts))
			log.Error("Document translation failed", "attempts", attempts, "error", apperrors.PublicMessage(err))
		} else {
			content = parsed.Content
			if t := strings.TrimSpace(parsed.Title); t != "" {
				title = t
				needTitle = false
			}
			if hasSummary && parsed.Summary != nil && strings.TrimSpace(*parsed.Summary) != "" {
				s := strings.TrimSpace(*parsed.Summary)
				summary = &s
				needSumm = false
			}
		}
	}

	if hasTitle {
		total++
	}
	if hasSummary {
		total++
	}
	// A failed whole-document request leaves nothing to attach the fields
	// to; they are counted but not attempted.
	if bodyFailed {
		needTitle, needSumm = false, false
	}
	if needTitle {
		if t, attempts, err := o.translateField(ctx, tr, "title", src.Title); err != nil {
			failures = append(failures, fieldFailure(TitleOrder, markdown.Heading, err, attempts))
		} else {
			title = t
		}
	}
	if needSumm {
		if s, attempts, err := o.translateField(ctx, tr, "summary", *src.Summary); err != nil {
			failures = append(failures, fieldFailure(SummaryOrder, markdown.Paragraph, err, attempts))
		} else {
			summary = &s
		}
	}

	res.Failures = failures
	res.TotalChunks = total
	res.Status = statusFor(len(failures), total)
	if bodyFailed {
		res.Status = TranslationStatusFailure
	}
	res.Usage = tr.GetUsage()
	if res.Status != TranslationStatusFailure {
		res.Document = src.WithTranslation(title, summary, o.banner()+content)
	}
	log.Info("Translation finished",
		"status", res.Status,
		"failed", len(failures),
		"total", total,
		"usage_total", res.Usage.TotalTokens,
	)
	return res, nil
}

func (o *Orchestrator) banner() string {
	if o.cfg.NoBanner {
		return ""
	}
	return fmt.Sprintf(bannerTemplate, o.cfg.ProviderLabel, o.cfg.Model)
}

// DocumentSystemPrompt returns the system prompt of the whole-document request.
func (o *Orchestrator) DocumentSystemPrompt() string {
	return strings.NewReplacer("{source}", o.srcLang.Name, "{target}", o.tgtLang.Name).Replace(documentSystemTemplate)
}

// DocumentUserPrompt fills the whole-document input template.
func DocumentUserPrompt(title string, summary *string, content string) string {
	tmpl := "== title ==\n{title}\n\n== content ==\n{content}\n"
	if summary != nil {
		tmpl = "== title ==\n{title}\n\n== summary ==\n{summary}\n\n== content ==\n{content}\n"
	}
	r := strings.NewReplacer("{title}", title, "{content}", content)
	if summary != nil {
		r = strings.NewReplacer("{title}", title, "{summary}", *summary, "{content}", content)
	}
	return r.Replace(tmpl)
}

func (o *Orchestrator) translateWhole(ctx context.Context, tr *translator.Translator, src *document.Document, tc *tcontext.Context) (response.Result, int, error) {
	system := o.DocumentSystemPrompt()
	if terms := tc.Prompt(); terms != "" {
		system += "\n\n" + terms
	}
	req := llm.Request{
		System: system,
		User:   DocumentUserPrompt(src.Title, src.Summary, src.Content),
	}
	var parsed response.Result
	_, attempts, err := tr.CompleteAttempts(ctx, req, func(text string) error {
		parsed = response.Parse(text)
		if strings.TrimSpace(parsed.Content) == "" {
			return apperrors.Validation(errors.New("reply has no content section"))
		}
		return nil
	})
	return parsed, attempts, err
}

func (o *Orchestrator) translateField(ctx context.Context, tr *translator.Translator, field, text string) (string, int, error) {
	req := llm.Request{
		User: fmt.Sprintf(fieldPromptTemplate, o.srcLang.Name, field, o.tgtLang.Name, text, field),
	}
	out, attempts, err := tr.CompleteAttempts(ctx, req, func(reply string) error {
		if strings.TrimSpace(reply) == "" {
			return apperrors.Validation(fmt.Errorf("empty %s translation", field))
		}
		return nil
	})
	if err != nil {
		logger.Error("Field translation failed", "field", field, "attempts", attempts, "error", apperrors.PublicMessage(err))
		return "", attempts, err
	}
	return strings.TrimSpace(out), attempts, nil
}

func fieldFailure(order int, t markdown.SegmentType, err error, attempts int) translator.ChunkFailure {
	kind := apperrors.KindTransient
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = apperrors.KindCanceled
	} else if k, ok := apperrors.KindOf(err); ok {
		kind = k
	}
	return translator.ChunkFailure{
		Order:    order,
		Type:     t,
		Kind:     kind,
		Reason:   apperrors.PublicMessage(err),
		Attempts: attempts,
	}
}
