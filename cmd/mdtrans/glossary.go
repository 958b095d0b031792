package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oukeidos/mdtrans/internal/files"
	"github.com/oukeidos/mdtrans/internal/glossary"
	"github.com/oukeidos/mdtrans/internal/language"
	"github.com/oukeidos/mdtrans/internal/logger"
	"github.com/oukeidos/mdtrans/internal/prompt"
	"github.com/oukeidos/mdtrans/internal/translator"
	"github.com/spf13/cobra"
)

func newGlossaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glossary",
		Short: "Build and inspect terminology files",
	}
	cmd.AddCommand(newGlossaryExtractCmd(), newGlossaryShowCmd())
	return cmd
}

func newGlossaryExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <input.md | entry-id> <output.json>",
		Short: "Extract recurring terms from a document with the model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGlossaryExtract(cmd, args[0], args[1])
		},
		SilenceUsage: true,
	}
	fs := cmd.Flags()
	fs.String("provider", "openai", "Backend provider (openai or gemini)")
	fs.String("model", "", "Model name")
	fs.String("base-url", "", "OpenAI-compatible endpoint URL")
	fs.String("source", "ja", "Source language code")
	fs.String("target", "en", "Target language code")
	fs.Int("max-terms", glossary.DefaultMaxTerms, "Maximum number of terms to extract")
	fs.Int("max-attempts", 3, "Attempts before giving up")
	fs.BoolP("yes", "y", false, "Overwrite output file without asking")
	fs.Bool("allow-env", false, "Allow reading API key from environment variables")
	fs.Bool("env-only", false, "Use only environment variables for API keys")
	addEntryAPIFlag(fs)
	return cmd
}

func newGlossaryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <glossary.json>",
		Short: "Print the terms of a glossary file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := prepare(cmd)
			if err != nil {
				return err
			}
			src, err := resolveLanguageCode(v.GetString("source"))
			if err != nil {
				return err
			}
			tgt, err := resolveLanguageCode(v.GetString("target"))
			if err != nil {
				return err
			}
			terms, err := glossary.Load(args[0], src, tgt)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range terms {
				fmt.Fprintf(out, "%s -> %s\n", t.Source, t.Target)
			}
			fmt.Fprintf(out, "%d terms\n", len(terms))
			return nil
		},
		SilenceUsage: true,
	}
	cmd.Flags().String("source", "ja", "Source language code")
	cmd.Flags().String("target", "en", "Target language code")
	return cmd
}

func runGlossaryExtract(cmd *cobra.Command, inputPath, outputPath string) error {
	if !strings.EqualFold(filepath.Ext(outputPath), ".json") {
		return fmt.Errorf("glossary output must be a .json file")
	}
	v, err := prepare(cmd)
	if err != nil {
		return err
	}
	cfg, err := pipelineConfig(v)
	if err != nil {
		return err
	}
	srcLang, _ := language.GetLanguage(cfg.SourceLang)
	tgtLang, _ := language.GetLanguage(cfg.TargetLang)

	if _, err := os.Stat(outputPath); err == nil {
		confirmed, err := prompt.DefaultConfirmer().ConfirmOverwrite(outputPath, v.GetBool("yes"))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}
	if err := files.RejectSymlinkPath(outputPath); err != nil {
		return err
	}

	doc, err := fetchInput(cmd.Context(), v, inputPath)
	if err != nil {
		return err
	}

	startTime := time.Now()
	actualKey, source, err := resolveAPIKey(cfg.Provider, v.GetBool("allow-env"), v.GetBool("env-only"))
	if err != nil {
		return err
	}
	logger.Info("Using API Key", "provider", string(cfg.Provider), "source", source)
	cfg.APIKey = actualKey

	ctx, stop := signalContext()
	defer stop()
	client, closeClient, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	tr, err := translator.NewTranslator(client, translator.Options{
		SourceLang:  srcLang,
		TargetLang:  tgtLang,
		MaxAttempts: cfg.MaxAttempts,
	})
	if err != nil {
		return err
	}
	text := doc.Content
	if doc.Title != "" {
		text = doc.Title + "\n\n" + text
	}
	terms, err := glossary.NewExtractor(tr).Extract(ctx, text, v.GetInt("max-terms"), cfg.SourceLang, cfg.TargetLang)
	printUsageStats(cmd.OutOrStdout(), tr.GetUsage(), time.Since(startTime), cfg.Model)
	if err != nil {
		return err
	}
	if err := glossary.Save(outputPath, terms, cfg.SourceLang, cfg.TargetLang); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d terms to %s\n", len(terms), outputPath)
	return nil
}
