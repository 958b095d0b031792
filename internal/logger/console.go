package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

const (
	ansiReset = "\033[0m"
	ansiGray  = "\033[90m"
)

var levelColors = map[slog.Level]string{
	slog.LevelDebug: ansiGray,
	slog.LevelInfo:  "\033[32m",
	slog.LevelWarn:  "\033[33m",
	slog.LevelError: "\033[31m",
}

// ConsoleHandler writes one human-readable line per record:
//
//	15:04:05 INFO  Chunk translated run_id=8f1c order=3
//
// Handlers derived through WithAttrs and WithGroup share the writer lock,
// so concurrent translation workers never interleave lines.
type ConsoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   slog.HandlerOptions
	color  bool
	prefix string // group path, e.g. "billing."
	attrs  []byte // preformatted attributes from WithAttrs
}

func NewConsoleHandler(w io.Writer, opts *slog.HandlerOptions, color bool) *ConsoleHandler {
	h := &ConsoleHandler{mu: &sync.Mutex{}, w: w, color: color}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	buf.WriteString(r.Time.Format("15:04:05"))
	buf.WriteByte(' ')
	if h.color {
		fmt.Fprintf(&buf, "%s%-5s%s", levelColors[r.Level], r.Level, ansiReset)
	} else {
		fmt.Fprintf(&buf, "%-5s", r.Level)
	}
	buf.WriteByte(' ')
	buf.WriteString(r.Message)
	buf.Write(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&buf, h.prefix, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	buf := bytes.NewBuffer(append([]byte(nil), h.attrs...))
	for _, a := range attrs {
		h.appendAttr(buf, h.prefix, a)
	}
	h2.attrs = buf.Bytes()
	return &h2
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func (h *ConsoleHandler) appendAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	if h.opts.ReplaceAttr != nil && a.Value.Kind() != slog.KindGroup {
		a = h.opts.ReplaceAttr(groupsOf(prefix), a)
	}
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := prefix
		if a.Key != "" {
			sub = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.appendAttr(buf, sub, ga)
		}
		return
	}

	key := prefix + a.Key
	if h.color {
		fmt.Fprintf(buf, " %s%s=%s%s", ansiGray, key, ansiReset, formatValue(a.Value))
		return
	}
	fmt.Fprintf(buf, " %s=%s", key, formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	s := v.String()
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func groupsOf(prefix string) []string {
	if prefix == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(prefix, "."), ".")
}
