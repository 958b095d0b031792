package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
)

// captureStderr redirects os.Stderr while fn runs and returns what was
// written to it.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	prev := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stderr = w
	defer func() { os.Stderr = prev }()

	fn()

	_ = w.Close()
	out, _ := io.ReadAll(r)
	return string(out)
}

func stubTerminal(t *testing.T, tty bool) {
	t.Helper()
	prev := isTerminal
	isTerminal = func(int) bool { return tty }
	t.Cleanup(func() { isTerminal = prev })
}

func TestConsoleHandler_Attrs(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewConsoleHandler(&buf, &slog.HandlerOptions{Level: LevelDebug}, false))

	tests := []struct {
		name string
		log  func()
		want []string
	}{
		{
			name: "persistent and record attrs",
			log:  func() { l.With("run_id", "abc-123").Info("chunk done", "order", 3) },
			want: []string{"INFO ", "chunk done", "run_id=abc-123", "order=3"},
		},
		{
			name: "group prefix",
			log:  func() { l.WithGroup("usage").With("input_tokens", 100).Info("stats", "output_tokens", 7) },
			want: []string{"usage.input_tokens=100", "usage.output_tokens=7"},
		},
		{
			name: "nested groups",
			log:  func() { l.WithGroup("outer").WithGroup("inner").With("order", 1).Debug("msg") },
			want: []string{"DEBUG", "outer.inner.order=1"},
		},
		{
			name: "group attr",
			log:  func() { l.Info("msg", slog.Group("segment", "order", 2, "kind", "heading")) },
			want: []string{"segment.order=2", "segment.kind=heading"},
		},
		{
			name: "quoted values",
			log:  func() { l.Info("msg", "document", "my post.md", "empty", "") },
			want: []string{`document="my post.md"`, `empty=""`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log()
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q: %q", w, out)
				}
			}
			if strings.Count(out, "\n") != 1 {
				t.Errorf("expected exactly one line, got %q", out)
			}
		})
	}
}

func TestConsoleHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewConsoleHandler(&buf, &slog.HandlerOptions{Level: LevelWarn}, false))
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestConsoleHandler_ConcurrentLines(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(NewConsoleHandler(&buf, nil, false))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			l := base.With("worker", worker)
			for j := 0; j < 50; j++ {
				l.Info("segment translated", "order", j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 400 {
		t.Fatalf("expected 400 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if strings.Count(line, "segment translated") != 1 {
			t.Fatalf("interleaved line: %q", line)
		}
	}
}

func TestConsoleHandler_Redacts(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewConsoleHandler(&buf, &slog.HandlerOptions{ReplaceAttr: RedactAttr}, false))
	l.With("api_key", "sk-1234567890abcdef").Info("request", "content", "本文", slog.Group("req", "prompt", "秘密"))

	out := buf.String()
	for _, leak := range []string{"sk-1234567890abcdef", "本文", "秘密"} {
		if strings.Contains(out, leak) {
			t.Errorf("output leaks %q: %q", leak, out)
		}
	}
	if strings.Count(out, redacted) != 3 {
		t.Errorf("expected 3 redactions: %q", out)
	}
}

func TestRedactAttr(t *testing.T) {
	tests := []struct {
		key    string
		value  string
		redact bool
	}{
		{key: "api_key", value: "abc", redact: true},
		{key: "message", value: "bearer sk-1234567890abcdef", redact: true},
		{key: "note", value: "AIzaSyA1234567890abcdef", redact: true},
		{key: "user", value: "alice", redact: false},
		{key: "content", value: "本文", redact: true},
		{key: "title", value: "はじめてのGo", redact: true},
		{key: "summary", value: "概要", redact: true},
		{key: "source_text", value: "x", redact: true},
		{key: "access_token", value: "abc", redact: true},
		{key: "glossary_term", value: "コンテナ", redact: true},
		{key: "estimated_tokens", value: "1200", redact: false},
		{key: "prompt_tokens", value: "80", redact: false},
		{key: "key_count", value: "2", redact: true},
		{key: "usage_total", value: "99", redact: false},
		{key: "document", value: "posts/1.md", redact: false},
		{key: "run_id", value: "8f1c", redact: false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := RedactAttr(nil, slog.String(tt.key, tt.value))
			if isRedacted := got.Value.String() == redacted; isRedacted != tt.redact {
				t.Fatalf("RedactAttr(%q) redacted=%v, want %v", tt.key, isRedacted, tt.redact)
			}
		})
	}
}

func TestInit_NoColor(t *testing.T) {
	tests := []struct {
		name    string
		tty     bool
		logFile io.Writer
	}{
		{name: "not a terminal", tty: false},
		{name: "log file enabled", tty: true, logFile: &bytes.Buffer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubTerminal(t, tt.tty)
			out := captureStderr(t, func() {
				Init(LevelInfo, tt.logFile)
				Info("test message", "order", 1)
			})
			if strings.Contains(out, "\033[") {
				t.Fatalf("unexpected ANSI codes in output: %q", out)
			}
			if !strings.Contains(out, "test message") {
				t.Fatalf("missing message: %q", out)
			}
		})
	}
}

func TestInit_LogFileJSON(t *testing.T) {
	stubTerminal(t, false)
	var file bytes.Buffer
	captureStderr(t, func() {
		Init(LevelDebug, &file)
		With("run_id", "run-7").Debug("segment", "order", 4, "content", "本文")
	})

	var rec map[string]any
	if err := json.Unmarshal(file.Bytes(), &rec); err != nil {
		t.Fatalf("log file is not JSON: %v\n%s", err, file.String())
	}
	if rec["msg"] != "segment" || rec["run_id"] != "run-7" || rec["order"] != float64(4) {
		t.Errorf("record = %v", rec)
	}
	if rec["content"] != redacted {
		t.Errorf("content not redacted in log file: %v", rec["content"])
	}
}

func TestWith_AddsAttrs(t *testing.T) {
	stubTerminal(t, false)
	out := captureStderr(t, func() {
		Init(LevelInfo, nil)
		With("run_id", "run-42").Info("started")
	})
	if !strings.Contains(out, "run_id=run-42") {
		t.Fatalf("output missing run_id: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: LevelInfo},
		{in: "DEBUG", want: LevelDebug},
		{in: "warning", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "verbose", want: LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}
