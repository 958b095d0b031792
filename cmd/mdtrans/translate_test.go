package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/llm"
	"github.com/oukeidos/mdtrans/internal/pipeline"
)

func withBackend(t *testing.T, client llm.Client) {
	t.Helper()
	prev := newBackend
	newBackend = func(_ context.Context, _ pipeline.Config) (llm.Client, func() error, error) {
		return client, func() error { return nil }, nil
	}
	t.Cleanup(func() { newBackend = prev })
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

const sampleEntry = "---\ntitle: はじめてのGo\ntags:\n  - go\n---\n\n# はじめに\n\n本文です。\n"

const wholeReply = "== title ==\nHello Go\n\n== content ==\n# Intro\n\nBody."

func TestTranslationStatusError(t *testing.T) {
	cases := []struct {
		name    string
		result  pipeline.TranslationResult
		wantErr string
	}{
		{
			name:    "success",
			result:  pipeline.TranslationResult{Status: pipeline.TranslationStatusSuccess},
			wantErr: "",
		},
		{
			name: "partial_with_report",
			result: pipeline.TranslationResult{
				Status:       pipeline.TranslationStatusPartialSuccess,
				ReportPath:   "/tmp/out_untranslated.json",
				FailedChunks: 1,
				TotalChunks:  4,
			},
			wantErr: "translation finished with status: Partial Success (1/4 chunks untranslated, report: /tmp/out_untranslated.json)",
		},
		{
			name:    "failure_without_report",
			result:  pipeline.TranslationResult{Status: pipeline.TranslationStatusFailure},
			wantErr: "translation finished with status: Failure",
		},
		{
			name:    "skipped",
			result:  pipeline.TranslationResult{Status: pipeline.TranslationStatusSkipped},
			wantErr: "",
		},
		{
			name:    "unknown_status",
			result:  pipeline.TranslationResult{},
			wantErr: `translation finished with unknown status: ""`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := translationStatusError(tc.result)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %q, want contains %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestValidateMarkdownPathExtensions(t *testing.T) {
	tests := []struct {
		name    string
		in, out string
		wantErr string
	}{
		{name: "md", in: "in.md", out: "out.markdown"},
		{name: "upper case", in: "IN.MD", out: "out.mdx"},
		{name: "bad input", in: "in.txt", out: "out.md", wantErr: `unsupported input extension ".txt"`},
		{name: "no output extension", in: "in.md", out: "out", wantErr: `unsupported output extension "(none)"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateMarkdownPathExtensions(tt.in, tt.out)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestTranslateCmd_WritesDocument(t *testing.T) {
	withKeyStubs(t, false, "", "", "sk-test")
	client := &llm.MockClient{Replies: []llm.MockReply{{
		Text:  wholeReply,
		Usage: llm.Usage{PromptTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}}}
	withBackend(t, client)

	dir := t.TempDir()
	in := filepath.Join(dir, "in.md")
	out := filepath.Join(dir, "out.md")
	writeFile(t, in, sampleEntry)

	stdout, err := executeCommand(t, in, out, "--env-only")
	if err != nil {
		t.Fatalf("command failed: %v\n%s", err, stdout)
	}
	if client.Calls() != 1 {
		t.Fatalf("calls = %d, want 1", client.Calls())
	}
	got := readFile(t, out)
	for _, want := range []string{
		"title: Hello Go",
		"- go",
		"> ⚠️ This article was automatically translated by OpenAI (gpt-4o-mini).",
		"# Intro\n\nBody.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if !strings.Contains(stdout, "Tokens: In=10, Out=5, Total=15") {
		t.Errorf("stats missing from output: %s", stdout)
	}
}

func TestTranslateCmd_ConfigFileAndEnv(t *testing.T) {
	withKeyStubs(t, false, "", "", "sk-test")
	client := &llm.MockClient{Replies: []llm.MockReply{{Text: wholeReply}}}
	withBackend(t, client)

	dir := t.TempDir()
	in := filepath.Join(dir, "in.md")
	out := filepath.Join(dir, "out.md")
	cfgPath := filepath.Join(dir, "mdtrans.yaml")
	writeFile(t, in, sampleEntry)
	writeFile(t, cfgPath, "target: ko\nmodel: gpt-4\nallow-env: true\n")
	t.Setenv("MDTRANS_PROVIDER_LABEL", "ChatGPT")

	if _, err := executeCommand(t, "translate", in, out, "--config", cfgPath, "--target", "de"); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	reqs := client.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	// The flag wins over the config file.
	if !strings.Contains(reqs[0].System, "into German") {
		t.Errorf("system prompt does not target German: %q", reqs[0].System)
	}
	if got := readFile(t, out); !strings.Contains(got, "translated by ChatGPT (gpt-4)") {
		t.Errorf("banner does not use env label and config model:\n%s", got)
	}
}

func TestTranslateCmd_NoBanner(t *testing.T) {
	withKeyStubs(t, false, "", "", "sk-test")
	withBackend(t, &llm.MockClient{Replies: []llm.MockReply{{Text: wholeReply}}})

	dir := t.TempDir()
	in := filepath.Join(dir, "in.md")
	out := filepath.Join(dir, "out.md")
	writeFile(t, in, sampleEntry)

	if _, err := executeCommand(t, in, out, "--env-only", "--no-banner"); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if got := readFile(t, out); strings.Contains(got, "automatically translated") {
		t.Errorf("banner present:\n%s", got)
	}
}

func TestTranslateCmd_FailureWritesReport(t *testing.T) {
	withKeyStubs(t, false, "", "", "sk-test")
	withBackend(t, &llm.MockClient{Replies: []llm.MockReply{{Err: apperrors.Auth(errors.New("bad key"))}}})

	dir := t.TempDir()
	in := filepath.Join(dir, "in.md")
	out := filepath.Join(dir, "out.md")
	writeFile(t, in, sampleEntry)

	_, err := executeCommand(t, in, out, "--env-only")
	if err == nil || !strings.Contains(err.Error(), "status: Failure") {
		t.Fatalf("expected failure status error, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("output should not be written on failure, stat err = %v", statErr)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out_untranslated.json")); statErr != nil {
		t.Errorf("report not written: %v", statErr)
	}
}

func TestTranslateCmd_RequiresKey(t *testing.T) {
	withKeyStubs(t, false, "", "", "")
	client := &llm.MockClient{}
	withBackend(t, client)

	dir := t.TempDir()
	in := filepath.Join(dir, "in.md")
	writeFile(t, in, sampleEntry)

	if _, err := executeCommand(t, in, filepath.Join(dir, "out.md")); err == nil {
		t.Fatal("expected missing key error")
	}
	if client.Calls() != 0 {
		t.Fatalf("backend called without a key")
	}
}

func TestBatchCmd_TranslatesAll(t *testing.T) {
	withKeyStubs(t, false, "", "", "sk-test")
	client := &llm.MockClient{Replies: []llm.MockReply{{Text: wholeReply}}}
	withBackend(t, client)

	dir := t.TempDir()
	a := filepath.Join(dir, "src", "a.md")
	b := filepath.Join(dir, "src", "b.md")
	writeFile(t, a, sampleEntry)
	writeFile(t, b, "# 二つ目\n\n本文です。\n")
	outDir := filepath.Join(dir, "out")

	stdout, err := executeCommand(t, "batch", outDir, a, b, "--env-only", "--concurrency", "1")
	if err != nil {
		t.Fatalf("command failed: %v\n%s", err, stdout)
	}
	if client.Calls() != 2 {
		t.Fatalf("calls = %d, want 2", client.Calls())
	}
	for _, name := range []string{"a.md", "b.md"} {
		if got := readFile(t, filepath.Join(outDir, name)); !strings.Contains(got, "Body.") {
			t.Errorf("%s not translated:\n%s", name, got)
		}
	}
	if strings.Count(stdout, "Success") != 2 {
		t.Errorf("summary = %s", stdout)
	}
}

func TestBatchCmd_DuplicateBaseNames(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "x", "entry.md")
	b := filepath.Join(dir, "y", "entry.md")
	writeFile(t, a, sampleEntry)
	writeFile(t, b, sampleEntry)

	_, err := planBatch(filepath.Join(dir, "out"), []string{a, b})
	if err == nil || !strings.Contains(err.Error(), "map to the same output") {
		t.Fatalf("expected duplicate output error, got %v", err)
	}
}

func TestAnalyzeCmd_JSON(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.md")
	writeFile(t, in, "# 見出し\n\n"+strings.Repeat("日本語の文章です。", 200)+"\n\n```go\nfmt.Println(1)\n```\n")

	stdout, err := executeCommand(t, "analyze", in, "--json", "--capacity", "1000", "--segment-tokens", "200")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	var view analysisView
	if err := json.Unmarshal([]byte(stdout), &view); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if !view.NeedsSplit || view.Segments < 2 || view.Capacity != 1000 || view.MaxAllowedTokens != 700 {
		t.Fatalf("analysis = %+v", view)
	}
}

func TestSegmentCmd_Table(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.md")
	writeFile(t, in, "# 見出し\n\n本文です。\n\n```go\nfmt.Println(1)\n```\n")

	stdout, err := executeCommand(t, "segment", in)
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	for _, want := range []string{"heading", "code_block", "見出し", "segments (max 4000 tokens each)"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := preview("\n\n  first line  \nsecond", 40); got != "first line" {
		t.Errorf("preview = %q", got)
	}
	if got := preview("あいうえお", 3); got != "あいう…" {
		t.Errorf("preview = %q", got)
	}
}
