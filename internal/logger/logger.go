// Package logger wraps log/slog with a console handler, an optional JSONL
// file handler and redaction of document text and credentials.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var (
	globalLogger *slog.Logger
	isTerminal   = term.IsTerminal
)

func init() {
	Init(LevelInfo, nil)
}

// Init replaces the global logger. Records at level and above go to stderr;
// when logFile is non-nil they are also written to it as JSON lines and the
// console output drops its colors.
func Init(level slog.Level, logFile io.Writer) {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: RedactAttr}

	color := logFile == nil && isTerminal(int(os.Stderr.Fd()))
	var h slog.Handler = NewConsoleHandler(os.Stderr, opts, color)
	if logFile != nil {
		h = fanout{h, slog.NewJSONHandler(logFile, opts)}
	}

	globalLogger = slog.New(h)
	slog.SetDefault(globalLogger)
}

// ParseLevel maps a CLI level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level: %q", name)
}

// With returns a logger that adds args to every record, e.g. a run ID.
func With(args ...any) *slog.Logger { return globalLogger.With(args...) }

func Debug(msg string, args ...any) { globalLogger.Debug(msg, args...) }
func Info(msg string, args ...any)  { globalLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { globalLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { globalLogger.Error(msg, args...) }
