package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/oukeidos/mdtrans/internal/document"
	"github.com/oukeidos/mdtrans/internal/logger"
	"github.com/oukeidos/mdtrans/internal/markdown"
	"github.com/oukeidos/mdtrans/internal/pipeline"
	"github.com/oukeidos/mdtrans/internal/sizer"
	"github.com/oukeidos/mdtrans/internal/tokens"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <input.md | entry-id>",
		Short: "Estimate tokens and show whether a document will be split",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0])
		},
		SilenceUsage: true,
	}
	addModelFlags(cmd.Flags())
	addEntryAPIFlag(cmd.Flags())
	cmd.Flags().Bool("json", false, "Print the analysis as JSON")
	return cmd
}

func newSegmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segment <input.md | entry-id>",
		Short: "Show how a document's body is split into segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSegment(cmd, args[0])
		},
		SilenceUsage: true,
	}
	addModelFlags(cmd.Flags())
	addEntryAPIFlag(cmd.Flags())
	cmd.Flags().Bool("json", false, "Print segments as JSON")
	return cmd
}

// inspection holds what analyze and segment both need.
type inspection struct {
	v         *viper.Viper
	cfg       pipeline.Config
	doc       *document.Document
	estimator *tokens.Estimator
}

func inspect(cmd *cobra.Command, path string) (*inspection, error) {
	v, err := prepare(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := pipelineConfig(v)
	if err != nil {
		return nil, err
	}
	cfg, notes := cfg.Normalize()
	for _, note := range notes {
		logger.Warn("Config normalized", "detail", note)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	doc, err := fetchInput(cmd.Context(), v, path)
	if err != nil {
		return nil, err
	}
	return &inspection{v: v, cfg: cfg, doc: doc, estimator: tokens.NewEstimator(cfg.Ratios)}, nil
}

func (in *inspection) segments() []markdown.Segment {
	segs := markdown.NewSegmenter(in.estimator, in.cfg.MaxSegmentTokens).Segment(in.doc.Content)
	if in.cfg.Optimize {
		segs = markdown.NewOptimizer(in.estimator, in.cfg.MaxSegmentTokens).Optimize(segs)
	}
	return segs
}

type analysisView struct {
	Document         string  `json:"document"`
	Model            string  `json:"model"`
	Capacity         int     `json:"capacity"`
	EstimatedTokens  int     `json:"estimated_tokens"`
	MaxAllowedTokens int     `json:"max_allowed_tokens"`
	SplitThreshold   int     `json:"split_threshold"`
	UsagePercentage  float64 `json:"usage_percentage"`
	NeedsSplit       bool    `json:"needs_split"`
	Segments         int     `json:"segments,omitempty"`
}

func runAnalyze(cmd *cobra.Command, path string) error {
	in, err := inspect(cmd, path)
	if err != nil {
		return err
	}
	analyzer, err := sizer.New(in.cfg.Capacity, sizer.Options{
		ResponseReserve: in.cfg.ResponseReserve,
		SplitMargin:     in.cfg.SplitMargin,
		Estimator:       in.estimator,
	})
	if err != nil {
		return err
	}
	res := analyzer.Analyze(in.doc.Content)
	view := analysisView{
		Document:         path,
		Model:            in.cfg.Model,
		Capacity:         analyzer.Capacity(),
		EstimatedTokens:  res.EstimatedTokens,
		MaxAllowedTokens: res.MaxAllowedTokens,
		SplitThreshold:   analyzer.Threshold(),
		UsagePercentage:  res.UsagePercentage,
		NeedsSplit:       res.NeedsSplit,
	}
	if res.NeedsSplit {
		view.Segments = len(in.segments())
	}

	out := cmd.OutOrStdout()
	if in.v.GetBool("json") {
		return writeJSON(out, view)
	}
	fmt.Fprintf(out, "Document: %s\n", view.Document)
	fmt.Fprintf(out, "Model: %s (capacity %d)\n", view.Model, view.Capacity)
	fmt.Fprintf(out, "Estimated tokens: %d\n", view.EstimatedTokens)
	fmt.Fprintf(out, "Max allowed tokens: %d (split above %d)\n", view.MaxAllowedTokens, view.SplitThreshold)
	fmt.Fprintf(out, "Usage: %.2f%%\n", view.UsagePercentage)
	if view.NeedsSplit {
		fmt.Fprintf(out, "Needs split: yes (%d segments)\n", view.Segments)
	} else {
		fmt.Fprintln(out, "Needs split: no")
	}
	return nil
}

type segmentView struct {
	Order    int                  `json:"order"`
	Type     markdown.SegmentType `json:"type"`
	Tokens   int                  `json:"tokens"`
	Metadata map[string]string    `json:"metadata,omitempty"`
	Content  string               `json:"content"`
}

func runSegment(cmd *cobra.Command, path string) error {
	in, err := inspect(cmd, path)
	if err != nil {
		return err
	}
	segs := in.segments()
	views := make([]segmentView, len(segs))
	for i, s := range segs {
		views[i] = segmentView{
			Order:    s.Order,
			Type:     s.Type,
			Tokens:   in.estimator.Estimate(s.Content),
			Metadata: s.Metadata,
			Content:  s.Content,
		}
	}

	out := cmd.OutOrStdout()
	if in.v.GetBool("json") {
		return writeJSON(out, views)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tTYPE\tTOKENS\tPREVIEW")
	for _, s := range views {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", s.Order, s.Type, s.Tokens, preview(s.Content, 40))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d segments (max %d tokens each)\n", len(views), in.cfg.MaxSegmentTokens)
	return nil
}

// preview returns the first non-blank line cut to limit runes.
func preview(content string, limit int) string {
	line := ""
	for _, l := range strings.Split(content, "\n") {
		if strings.TrimSpace(l) != "" {
			line = strings.TrimSpace(l)
			break
		}
	}
	r := []rune(line)
	if len(r) > limit {
		return string(r[:limit]) + "…"
	}
	return line
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
