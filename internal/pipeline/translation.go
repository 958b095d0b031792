package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oukeidos/mdtrans/internal/document"
	"github.com/oukeidos/mdtrans/internal/files"
	"github.com/oukeidos/mdtrans/internal/glossary"
	"github.com/oukeidos/mdtrans/internal/llm"
	"github.com/oukeidos/mdtrans/internal/logger"
	"github.com/oukeidos/mdtrans/internal/report"
	"github.com/oukeidos/mdtrans/internal/tcontext"
)

// RunTranslation translates cfg.InputPath into cfg.OutputPath with the
// backend selected by cfg.Provider.
func RunTranslation(ctx context.Context, cfg Config) (TranslationResult, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.ValidateRuntime(); err != nil {
		return TranslationResult{}, fmt.Errorf("invalid configuration: %w", err)
	}
	client, closeClient, err := NewBackend(ctx, cfg)
	if err != nil {
		return TranslationResult{}, err
	}
	defer closeClient()
	return RunTranslationWithClient(ctx, cfg, client)
}

// RunTranslationWithClient is RunTranslation with an explicit backend.
func RunTranslationWithClient(ctx context.Context, cfg Config, client llm.Client) (TranslationResult, error) {
	cfg = cfg.WithDefaults()

	// 1. Validation & Setup
	absIn, err := CheckPaths(cfg.InputPath, cfg.OutputPath)
	if err != nil {
		return TranslationResult{}, err
	}
	overwrite, proceed := ConfirmOverwrite(cfg, cfg.OutputPath)
	if !proceed {
		return TranslationResult{Status: TranslationStatusSkipped}, nil // Not an error, just user cancellation
	}
	cfg, err = LoadGlossary(cfg)
	if err != nil {
		return TranslationResult{}, err
	}

	orch, err := NewOrchestrator(document.FileStore{}, client, cfg)
	if err != nil {
		return TranslationResult{}, err
	}

	// 2. Translate
	logger.Info("Starting translation", "model", cfg.Model, "provider", string(cfg.Provider))
	res, err := orch.Translate(ctx, absIn)
	if err != nil {
		return TranslationResult{RunID: res.RunID}, err
	}

	// 3. Handle Results
	return SaveResult(ctx, orch.Config(), res, absIn, cfg.OutputPath, overwrite)
}

// LoadGlossary appends the terms of cfg.GlossaryPath, if set, to
// cfg.Glossary.
func LoadGlossary(cfg Config) (Config, error) {
	if cfg.GlossaryPath == "" {
		return cfg, nil
	}
	terms, err := glossary.Load(cfg.GlossaryPath, cfg.SourceLang, cfg.TargetLang)
	if err != nil {
		return cfg, err
	}
	cfg.Glossary = append(append([]tcontext.Term(nil), cfg.Glossary...), terms...)
	logger.Info("Loaded glossary", "count", len(terms), "path", cfg.GlossaryPath)
	return cfg, nil
}

// CheckPaths rejects identical input and output files and symlinked
// output paths. It returns the absolute input path.
func CheckPaths(inputPath, outputPath string) (string, error) {
	absIn, err := filepath.Abs(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve input path: %w", err)
	}
	absOut, err := filepath.Abs(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output path: %w", err)
	}
	if absIn == absOut {
		return "", fmt.Errorf("input and output files are the same (%s)", absIn)
	}
	if inInfo, err := os.Stat(absIn); err == nil {
		if outInfo, err := os.Stat(absOut); err == nil {
			if os.SameFile(inInfo, outInfo) {
				return "", fmt.Errorf("input and output files are the same (%s)", absIn)
			}
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to stat output path: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to stat input path: %w", err)
	}
	if err := files.RejectSymlinkPath(outputPath); err != nil {
		return "", err
	}
	return absIn, nil
}

// ConfirmOverwrite decides what to do with an existing output file.
// overwrite reports that the file may be replaced in place; proceed is
// false when the user declined.
func ConfirmOverwrite(cfg Config, outputPath string) (overwrite, proceed bool) {
	if _, err := os.Stat(outputPath); err != nil {
		return false, true
	}
	overwrite = cfg.Overwrite
	if cfg.OnConfirmOverwrite != nil {
		overwrite = cfg.OnConfirmOverwrite(outputPath)
	}
	if !overwrite {
		logger.Info("Output file exists. Aborted by user.", "path", outputPath)
		return false, false
	}
	logger.Info("Overwriting output file", "path", outputPath)
	return true, true
}

// SaveResult writes the translated document and, when some chunks failed,
// an untranslated-chunks report next to it. A Failure run writes only the
// report.
func SaveResult(ctx context.Context, cfg Config, res Result, inputPath, outputPath string, overwrite bool) (TranslationResult, error) {
	result := TranslationResult{
		RunID:        res.RunID,
		Status:       res.Status,
		Usage:        res.Usage,
		FailedChunks: len(res.Failures),
		TotalChunks:  res.TotalChunks,
		Split:        res.Split,
	}

	effectiveOutputPath := outputPath
	if res.Document != nil {
		if !overwrite {
			safePath, changed, err := files.SafePath(outputPath)
			if err != nil {
				return result, fmt.Errorf("failed to resolve output path: %w", err)
			}
			if changed {
				logger.Warn("Output path adjusted to avoid overwrite", "original", outputPath, "effective", safePath)
				effectiveOutputPath = safePath
			}
		}
		if err := document.Save(effectiveOutputPath, res.Document); err != nil {
			return result, fmt.Errorf("failed to save output file: %w", err)
		}
		result.OutputPath = effectiveOutputPath
		logger.Info("Saved results", "path", effectiveOutputPath)
	}

	if len(res.Failures) == 0 {
		return result, nil
	}

	inputHash, err := report.HashFileHex(inputPath)
	if err != nil {
		return result, fmt.Errorf("failed to compute input hash for report: %w", err)
	}
	reportPath := report.GeneratePath(effectiveOutputPath)
	relIn, err := report.RelativePath(reportPath, inputPath)
	if err != nil {
		return result, fmt.Errorf("failed to convert input path to relative: %w", err)
	}
	rep := &report.Report{
		Version:     report.CurrentVersion,
		RunID:       res.RunID,
		InputPath:   relIn,
		InputHash:   inputHash,
		Provider:    string(cfg.Provider),
		Model:       cfg.Model,
		SourceLang:  cfg.SourceLang,
		TargetLang:  cfg.TargetLang,
		Split:       res.Split,
		TotalChunks: res.TotalChunks,
		Failures:    res.Failures,
		Status:      string(res.Status),
	}
	if result.OutputPath != "" {
		relOut, err := report.RelativePath(reportPath, result.OutputPath)
		if err != nil {
			return result, fmt.Errorf("failed to convert output path to relative: %w", err)
		}
		rep.OutputPath = relOut
	}
	if ctx.Err() != nil {
		rep.StatusReason = "canceled"
	}
	reportPath, err = report.Save(reportPath, rep)
	if err != nil {
		return result, fmt.Errorf("failed to save untranslated report: %w", err)
	}
	if res.Status == TranslationStatusPartialSuccess {
		logger.Warn("Partial success - untranslated report saved", "path", reportPath)
	} else {
		logger.Error("Translation failed - untranslated report saved", "path", reportPath)
	}
	result.ReportPath = reportPath
	return result, nil
}
