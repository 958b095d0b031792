package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/dispatch"
	"github.com/oukeidos/mdtrans/internal/document"
	"github.com/oukeidos/mdtrans/internal/llm"
	"github.com/oukeidos/mdtrans/internal/logger"
	"github.com/oukeidos/mdtrans/internal/pipeline"
	"github.com/spf13/cobra"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <out-dir> <input.md>...",
		Short: "Translate several documents in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				_ = cmd.Usage()
				return fmt.Errorf("output directory and at least one input file are required")
			}
			return runBatch(cmd, args)
		},
		SilenceUsage: true,
	}
	addTranslateFlags(cmd)
	cmd.Flags().Int("concurrency", 2, fmt.Sprintf("Documents translated at once (%d-%d)", pipeline.MinConcurrency, pipeline.MaxConcurrency))
	return cmd
}

type batchEntry struct {
	input  string
	output string
	result pipeline.TranslationResult
	err    error
}

func runBatch(cmd *cobra.Command, args []string) error {
	outDir, inputs := args[0], args[1:]
	for _, in := range inputs {
		if err := validateMarkdownExtension("input", in); err != nil {
			return err
		}
	}

	v, err := prepare(cmd)
	if err != nil {
		return err
	}
	cfg, err := pipelineConfig(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	entries, err := planBatch(outDir, inputs)
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
	cfg.OnProgress = logProgress
	if err := cfg.ValidateRuntime(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg, err = pipeline.LoadGlossary(cfg); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	client, closeClient, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	orch, err := pipeline.NewOrchestrator(document.FileStore{}, client, cfg)
	if err != nil {
		return err
	}
	effective := orch.Config()

	byInput := make(map[string]*batchEntry, len(entries))
	for _, e := range entries {
		byInput[e.input] = e
	}
	// Workers write to distinct entries; the map itself is read-only here.
	d := dispatch.New(ctx, orch, dispatch.Options{
		Workers:   effective.Concurrency,
		QueueSize: len(entries),
		OnOutcome: func(o dispatch.Outcome) {
			e := byInput[o.DocumentID]
			if o.Err != nil {
				e.err = o.Err
				return
			}
			e.result, e.err = pipeline.SaveResult(ctx, effective, o.Result, e.input, e.output, effective.Overwrite)
		},
	})
	for _, e := range entries {
		if _, err := d.Submit(e.input); err != nil {
			e.err = err
		}
	}
	d.Close()

	return summarizeBatch(cmd, entries, time.Since(startTime), effective.Model)
}

// planBatch maps every input to <out-dir>/<base name>. Two inputs with the
// same base name would overwrite each other and are rejected.
func planBatch(outDir string, inputs []string) ([]*batchEntry, error) {
	seen := make(map[string]string, len(inputs))
	entries := make([]*batchEntry, 0, len(inputs))
	for _, in := range inputs {
		out := filepath.Join(outDir, filepath.Base(in))
		if prev, ok := seen[out]; ok {
			return nil, fmt.Errorf("inputs %s and %s map to the same output %s", prev, in, out)
		}
		seen[out] = in
		absIn, err := pipeline.CheckPaths(in, out)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &batchEntry{input: absIn, output: out})
	}
	return entries, nil
}

func summarizeBatch(cmd *cobra.Command, entries []*batchEntry, elapsed time.Duration, model string) error {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].output < entries[j].output })

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OUTPUT\tSTATUS\tCHUNKS\tREPORT")
	var (
		usage  llm.Usage
		failed int
	)
	for _, e := range entries {
		usage = usage.Add(e.result.Usage)
		if e.err != nil {
			failed++
			fmt.Fprintf(tw, "%s\terror: %s\t-\t-\n", e.output, apperrors.PublicMessage(e.err))
			continue
		}
		if e.result.Status != pipeline.TranslationStatusSuccess {
			failed++
		}
		path := e.result.OutputPath
		if path == "" {
			path = e.output
		}
		report := e.result.ReportPath
		if report == "" {
			report = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n", path, e.result.Status,
			e.result.TotalChunks-e.result.FailedChunks, e.result.TotalChunks, report)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printUsageStats(out, usage, elapsed, model)

	if failed > 0 {
		return fmt.Errorf("%d of %d documents did not translate cleanly", failed, len(entries))
	}
	return nil
}
