package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/oukeidos/mdtrans/internal/logger"
	"github.com/oukeidos/mdtrans/internal/pipeline"
	"github.com/oukeidos/mdtrans/internal/prompt"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate <input.md> <output.md>",
		Short: "Translate a Markdown document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				_ = cmd.Usage()
				return fmt.Errorf("input and output files are required")
			}
			return runTranslate(cmd, args)
		},
		SilenceUsage: true,
	}

	addTranslateFlags(cmd)
	return cmd
}

// addModelFlags registers the settings that drive size analysis and
// segmentation.
func addModelFlags(fs *pflag.FlagSet) {
	fs.String("provider", "openai", "Backend provider (openai or gemini)")
	fs.String("model", "", "Model name (default: gpt-4o-mini for openai, gemini-3-flash-preview for gemini)")
	fs.Int("capacity", 0, "Model context window in tokens (default: from the model catalogue)")
	fs.Int("segment-tokens", 4000, "Maximum estimated tokens per segment when splitting")
	fs.Bool("optimize", false, "Merge adjacent small paragraphs and lists before translating")
}

func addTranslateFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	addModelFlags(fs)
	fs.String("base-url", "", "OpenAI-compatible endpoint URL")
	fs.String("provider-label", "", "Backend name shown in the translation banner")
	fs.Int("context-history", 3, "Number of previous chunks kept as context")
	fs.Int("recent-context", 0, "Characters of recently translated text added to each chunk prompt")
	fs.Int("max-attempts", 3, "Attempts per chunk before it is left untranslated")
	fs.String("source", "ja", "Source language code")
	fs.String("target", "en", "Target language code")
	fs.String("glossary", "", "Path to a glossary JSON file")
	fs.BoolP("yes", "y", false, "Overwrite output file without asking")
	fs.Bool("no-banner", false, "Do not prepend the machine translation notice")
	fs.Bool("allow-env", false, "Allow reading API key from environment variables")
	fs.Bool("env-only", false, "Use only environment variables for API keys")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("input and output files are required")
	}
	errOut := cmd.ErrOrStderr()
	if len(args) > 2 {
		fmt.Fprintf(errOut, "Warning: expected 2 arguments but got %d. Did you forget quotes around file paths?\n", len(args))
		fmt.Fprintf(errOut, "  Using input: %s\n", args[0])
		fmt.Fprintf(errOut, "  Using output: %s\n", args[1])
	}
	if err := validateMarkdownPathExtensions(args[0], args[1]); err != nil {
		return err
	}

	v, err := prepare(cmd)
	if err != nil {
		return err
	}
	cfg, err := pipelineConfig(v)
	if err != nil {
		return err
	}
	cfg.InputPath = args[0]
	cfg.OutputPath = args[1]

	startTime := time.Now()

	actualKey, source, err := resolveAPIKey(cfg.Provider, v.GetBool("allow-env"), v.GetBool("env-only"))
	if err != nil {
		return err
	}
	logger.Info("Using API Key", "provider", string(cfg.Provider), "source", source)
	cfg.APIKey = actualKey
	cfg.OnProgress = logProgress
	overwrite := cfg.Overwrite
	cfg.OnConfirmOverwrite = func(path string) bool {
		confirmed, err := prompt.DefaultConfirmer().ConfirmOverwrite(path, overwrite)
		if err != nil {
			logger.Error("Overwrite confirmation failed", "error", err)
			return false
		}
		return confirmed
	}
	if err := cfg.ValidateRuntime(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signalContext()
	defer stop()
	client, closeClient, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	result, err := pipeline.RunTranslationWithClient(ctx, cfg, client)

	// Always print stats (even on partial success)
	printUsageStats(cmd.OutOrStdout(), result.Usage, time.Since(startTime), cfg.Model)

	if result.OutputPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", result.OutputPath)
	}
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("Translation canceled", "error", err)
			return nil
		}
		return err
	}
	return translationStatusError(result)
}

func translationStatusError(result pipeline.TranslationResult) error {
	switch result.Status {
	case pipeline.TranslationStatusSuccess:
		return nil
	case pipeline.TranslationStatusSkipped:
		return nil
	case pipeline.TranslationStatusPartialSuccess, pipeline.TranslationStatusFailure:
		if result.ReportPath != "" {
			return fmt.Errorf("translation finished with status: %s (%d/%d chunks untranslated, report: %s)",
				result.Status, result.FailedChunks, result.TotalChunks, result.ReportPath)
		}
		return fmt.Errorf("translation finished with status: %s", result.Status)
	default:
		return fmt.Errorf("translation finished with unknown status: %q", result.Status)
	}
}

var supportedMarkdownExtensions = map[string]struct{}{
	".md":       {},
	".markdown": {},
	".mdx":      {},
}

const supportedMarkdownExtensionsLabel = ".md, .markdown, .mdx"

func validateMarkdownPathExtensions(inputPath, outputPath string) error {
	if err := validateMarkdownExtension("input", inputPath); err != nil {
		return err
	}
	if err := validateMarkdownExtension("output", outputPath); err != nil {
		return err
	}
	return nil
}

func validateMarkdownExtension(kind, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := supportedMarkdownExtensions[ext]; ok {
		return nil
	}
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Errorf("unsupported %s extension %q (supported: %s)", kind, ext, supportedMarkdownExtensionsLabel)
}
