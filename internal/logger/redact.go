package logger

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

const redacted = "[REDACTED]"

// Keys that always carry document text or credentials.
var sensitiveKeys = map[string]bool{
	"api_key": true, "apikey": true, "authorization": true, "bearer": true,
	"body": true, "content": true, "input": true, "output": true,
	"password": true, "prompt": true, "secret": true, "session": true,
	"summary": true, "title": true, "token": true, "translated_text": true,
}

var (
	credentialFragments = []string{"key", "secret"}
	sensitiveFragments  = append([]string{
		"password", "authorization", "bearer", "api", "prompt", "content",
		"body", "input", "output", "text", "glossary", "term",
	}, credentialFragments...)
)

// Counter keys such as prompt_tokens or usage_total are numbers; only
// credential fragments redact them.
var counterSuffixes = []string{"tokens", "_total", "_count"}

var sensitiveValues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsk-[A-Za-z0-9_-]{10,}\b`),
	regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{10,}\b`),
	regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9\-._~+/]+=*\b`),
	regexp.MustCompile(`(?i)\b(api[_-]?key|access[_-]?token|secret)\b\s*[:=]\s*\S+`),
}

// RedactAttr is a slog.ReplaceAttr function that masks attributes holding
// document text or credentials.
func RedactAttr(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKey(strings.ToLower(a.Key)) || sensitiveValue(a.Value) {
		return slog.String(a.Key, redacted)
	}
	return a
}

func sensitiveKey(key string) bool {
	if sensitiveKeys[key] || strings.HasSuffix(key, "token") || strings.Contains(key, "token_") {
		return true
	}
	fragments := sensitiveFragments
	if slices.ContainsFunc(counterSuffixes, func(s string) bool { return strings.HasSuffix(key, s) }) {
		fragments = credentialFragments
	}
	return slices.ContainsFunc(fragments, func(f string) bool { return strings.Contains(key, f) })
}

func sensitiveValue(v slog.Value) bool {
	var s string
	if v.Kind() == slog.KindString {
		s = v.String()
	} else {
		s = fmt.Sprint(v.Any())
	}
	if s == "" {
		return false
	}
	return slices.ContainsFunc(sensitiveValues, func(re *regexp.Regexp) bool { return re.MatchString(s) })
}
