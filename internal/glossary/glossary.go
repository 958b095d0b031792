// Package glossary reads and writes terminology files. A file is a JSON
// array of objects keyed by language code, e.g. [{"ja": "翻訳", "en": "translation"}].
package glossary

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/oukeidos/mdtrans/internal/files"
	"github.com/oukeidos/mdtrans/internal/language"
	"github.com/oukeidos/mdtrans/internal/tcontext"
)

// MaxFileBytes caps the size of a glossary file.
const MaxFileBytes = 1 << 20

func schemaKeys(sourceCode, targetCode string) (string, string, error) {
	src, ok := language.GetLanguage(sourceCode)
	if !ok {
		return "", "", fmt.Errorf("unsupported language: %s", sourceCode)
	}
	tgt, ok := language.GetLanguage(targetCode)
	if !ok {
		return "", "", fmt.Errorf("unsupported language: %s", targetCode)
	}
	return src.Code, tgt.Code, nil
}

// Encode renders terms as a glossary file.
func Encode(terms []tcontext.Term, sourceCode, targetCode string) ([]byte, error) {
	sourceKey, targetKey, err := schemaKeys(sourceCode, targetCode)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, map[string]string{
			sourceKey: t.Source,
			targetKey: t.Target,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

// Decode parses a glossary file. Entries keep file order; blank entries
// are dropped.
func Decode(data []byte, sourceCode, targetCode string) ([]tcontext.Term, error) {
	sourceKey, targetKey, err := schemaKeys(sourceCode, targetCode)
	if err != nil {
		return nil, err
	}
	var raw []map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return fromEntries(raw, sourceKey, targetKey)
}

func fromEntries(raw []map[string]string, sourceKey, targetKey string) ([]tcontext.Term, error) {
	terms := make([]tcontext.Term, 0, len(raw))
	for i, entry := range raw {
		src, ok := entry[sourceKey]
		if !ok {
			return nil, fmt.Errorf("entry %d: missing source field %q", i, sourceKey)
		}
		tgt, ok := entry[targetKey]
		if !ok {
			return nil, fmt.Errorf("entry %d: missing target field %q", i, targetKey)
		}
		src, tgt = strings.TrimSpace(src), strings.TrimSpace(tgt)
		if src == "" || tgt == "" {
			continue
		}
		terms = append(terms, tcontext.Term{Source: src, Target: tgt})
	}
	return terms, nil
}

// Load reads a glossary file for the given language pair.
func Load(path, sourceCode, targetCode string) ([]tcontext.Term, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read glossary file %s: %w", path, err)
	}
	if info.Size() > MaxFileBytes {
		return nil, fmt.Errorf("glossary file %s is too large (%d bytes)", path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read glossary file %s: %w", path, err)
	}
	terms, err := Decode(data, sourceCode, targetCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse glossary file %s: %w", path, err)
	}
	return terms, nil
}

// Save writes terms to path atomically.
func Save(path string, terms []tcontext.Term, sourceCode, targetCode string) error {
	data, err := Encode(terms, sourceCode, targetCode)
	if err != nil {
		return err
	}
	return files.AtomicWrite(path, data, 0644)
}

// Seed registers terms in tc in order.
func Seed(tc *tcontext.Context, terms []tcontext.Term) {
	for _, t := range terms {
		tc.AddTerminology(t.Source, t.Target)
	}
}
