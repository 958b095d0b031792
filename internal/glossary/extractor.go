package glossary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/language"
	"github.com/oukeidos/mdtrans/internal/llm"
	"github.com/oukeidos/mdtrans/internal/tcontext"
)

// Completer sends one request with a retry policy. translator.Translator
// satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request, validate func(string) error) (string, error)
}

// Extractor asks a model for the technical terms of a document and their
// preferred translations.
type Extractor struct {
	completer Completer
}

func NewExtractor(completer Completer) *Extractor {
	return &Extractor{completer: completer}
}

const extractPrompt = `Read the following %s technical blog article written in Markdown.
List up to %d technical terms, product names and proper nouns whose translation into %s should stay consistent across the article.
For each term, give the term as written in the article and its standard %s rendering.
Return ONLY a JSON object of the form {"terms": [{"%s": "...", "%s": "..."}]} with no explanations and no code fences.

%s`

// DefaultMaxTerms bounds the number of extracted terms.
const DefaultMaxTerms = 30

var fenceRegex = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// Extract returns terms found in content. maxTerms <= 0 uses DefaultMaxTerms.
func (e *Extractor) Extract(ctx context.Context, content string, maxTerms int, sourceCode, targetCode string) ([]tcontext.Term, error) {
	src, ok := language.GetLanguage(sourceCode)
	if !ok {
		return nil, fmt.Errorf("unsupported source language: %s", sourceCode)
	}
	tgt, ok := language.GetLanguage(targetCode)
	if !ok {
		return nil, fmt.Errorf("unsupported target language: %s", targetCode)
	}
	if maxTerms <= 0 {
		maxTerms = DefaultMaxTerms
	}

	req := llm.Request{
		User: fmt.Sprintf(extractPrompt, src.Name, maxTerms, tgt.Name, tgt.Name, src.Code, tgt.Code, content),
	}
	var terms []tcontext.Term
	_, err := e.completer.Complete(ctx, req, func(text string) error {
		parsed, perr := parseTerms(text, src.Code, tgt.Code)
		if perr != nil {
			return apperrors.Validation(perr)
		}
		terms = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	return terms, nil
}

func parseTerms(text, sourceKey, targetKey string) ([]tcontext.Term, error) {
	text = strings.TrimSpace(text)
	if m := fenceRegex.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if text == "" {
		return nil, errors.New("empty glossary reply")
	}
	var raw struct {
		Terms []map[string]string `json:"terms"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse glossary reply: %w", err)
	}
	for _, entry := range raw.Terms {
		entry[sourceKey] = cleanTerm(entry[sourceKey])
		entry[targetKey] = cleanTerm(entry[targetKey])
	}
	terms, err := fromEntries(raw.Terms, sourceKey, targetKey)
	if err != nil {
		return nil, err
	}
	return dedupe(terms), nil
}

func dedupe(terms []tcontext.Term) []tcontext.Term {
	seen := make(map[string]bool, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if seen[t.Source] {
			continue
		}
		seen[t.Source] = true
		out = append(out, t)
	}
	return out
}

var (
	urlRegex     = regexp.MustCompile(`https?://[^\s\]\)]+`)
	bracketRegex = regexp.MustCompile(`\[[^\]]*\.[a-z]{2,}[^\]]*\]`)
)

// cleanTerm removes URLs and bracketed source annotations.
func cleanTerm(term string) string {
	term = urlRegex.ReplaceAllString(term, "")
	term = bracketRegex.ReplaceAllString(term, "")
	return strings.TrimSpace(term)
}
