// Package report persists the chunks a run could not translate so they can
// be reviewed or retried.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oukeidos/mdtrans/internal/files"
	"github.com/oukeidos/mdtrans/internal/language"
	"github.com/oukeidos/mdtrans/internal/translator"
)

// Report lists the untranslated chunks of one run.
type Report struct {
	Version      int                       `json:"report_version"`
	RunID        string                    `json:"run_id"`
	InputPath    string                    `json:"input_path"`
	OutputPath   string                    `json:"output_path,omitempty"`
	InputHash    string                    `json:"input_hash"`
	Provider     string                    `json:"provider"`
	Model        string                    `json:"model"`
	SourceLang   string                    `json:"source_lang"`
	TargetLang   string                    `json:"target_lang"`
	Split        bool                      `json:"split"`
	TotalChunks  int                       `json:"total_chunks"`
	Failures     []translator.ChunkFailure `json:"failures"`
	Status       string                    `json:"status"` // "Partial Success" or "Failure"
	StatusReason string                    `json:"status_reason,omitempty"`
}

const CurrentVersion = 1

// Validate checks that the report is consistent.
func (r *Report) Validate() error {
	if r.Version == 0 {
		r.Version = CurrentVersion
	}
	if r.Version != CurrentVersion {
		return fmt.Errorf("unsupported report_version: %d", r.Version)
	}
	if r.InputPath == "" {
		return fmt.Errorf("input_path is empty")
	}
	if filepath.IsAbs(r.InputPath) {
		return fmt.Errorf("input_path must be relative, not absolute: %s", r.InputPath)
	}
	if r.OutputPath != "" {
		if filepath.IsAbs(r.OutputPath) {
			return fmt.Errorf("output_path must be relative, not absolute: %s", r.OutputPath)
		}
		if strings.HasPrefix(filepath.Clean(r.OutputPath), "..") {
			return fmt.Errorf("output_path cannot traverse parent directories: %s", r.OutputPath)
		}
	}
	if !strings.HasPrefix(r.InputHash, "sha256:") {
		return fmt.Errorf("invalid input_hash: %q", r.InputHash)
	}
	if r.TotalChunks <= 0 {
		return fmt.Errorf("invalid total_chunks: %d", r.TotalChunks)
	}
	if len(r.Failures) == 0 {
		return fmt.Errorf("failures list is empty")
	}
	if len(r.Failures) > r.TotalChunks {
		return fmt.Errorf("more failures (%d) than chunks (%d)", len(r.Failures), r.TotalChunks)
	}
	if _, ok := language.GetLanguage(r.SourceLang); !ok {
		return fmt.Errorf("unsupported source language: %s", r.SourceLang)
	}
	if _, ok := language.GetLanguage(r.TargetLang); !ok {
		return fmt.Errorf("unsupported target language: %s", r.TargetLang)
	}
	if r.Model == "" {
		return fmt.Errorf("model name is empty")
	}
	if r.Status == "" {
		return fmt.Errorf("status is empty")
	}
	if r.StatusReason != "" && r.StatusReason != "canceled" {
		return fmt.Errorf("invalid status_reason: %s", r.StatusReason)
	}
	return nil
}

// Save writes the report as JSON without replacing an existing file. When
// path is taken a numbered name is used; the path written is returned.
func Save(path string, r *Report) (string, error) {
	if r.Version == 0 {
		r.Version = CurrentVersion
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return files.AtomicWriteExclusive(path, data, 0600)
}

// Load reads a report from path.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.Version == 0 {
		r.Version = CurrentVersion
	}
	return &r, nil
}

// GeneratePath picks an unused report filename next to outputPath:
// [basename]_untranslated.json, then _0 to _9, then a UUIDv7 suffix.
func GeneratePath(outputPath string) string {
	dir := filepath.Dir(outputPath)
	base := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	primary := filepath.Join(dir, base+"_untranslated.json")
	path, err := files.FreePath(primary, 0)
	if err != nil {
		return primary
	}
	return path
}

// HashFileHex returns a sha256-prefixed hex digest of the file contents.
func HashFileHex(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

// RelativePath expresses target relative to the directory holding the
// report at reportPath.
func RelativePath(reportPath, target string) (string, error) {
	absDir, err := filepath.Abs(filepath.Dir(reportPath))
	if err != nil {
		return "", err
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	return filepath.Rel(absDir, absTarget)
}

// ResolvePath turns a path stored in the report back into a usable path.
func ResolvePath(reportPath, stored string) string {
	if filepath.IsAbs(stored) {
		return stored
	}
	return filepath.Join(filepath.Dir(reportPath), stored)
}
