// Package response extracts title, summary and content from a model reply
// written in the "== title ==" / "== summary ==" / "== content ==" format.
package response

import (
	"regexp"
	"strings"
)

const (
	TitleMarker   = "== title =="
	SummaryMarker = "== summary =="
	ContentMarker = "== content =="
)

var (
	thinkPattern   = regexp.MustCompile(`(?s)<think>.*?</think>`)
	titlePattern   = regexp.MustCompile(`(?s)== title ==\s*(.+?)\s*(?:== summary ==|== content ==)`)
	summaryPattern = regexp.MustCompile(`(?s)== summary ==\s*(.*?)\s*(?:== content ==|\z)`)
	contentPattern = regexp.MustCompile(`(?s)== content ==\s*(.*)`)
)

// Result holds the parsed sections. Summary is nil when the reply has no
// summary marker. Missing sections are empty strings.
type Result struct {
	Title   string
	Summary *string
	Content string
}

// Parse never fails; callers decide whether empty sections are acceptable.
func Parse(raw string) Result {
	text := strings.TrimSpace(thinkPattern.ReplaceAllString(raw, ""))

	var res Result
	if m := titlePattern.FindStringSubmatch(text); m != nil {
		res.Title = strings.TrimSpace(m[1])
	}
	if strings.Contains(text, SummaryMarker) {
		summary := ""
		if m := summaryPattern.FindStringSubmatch(text); m != nil {
			summary = strings.TrimSpace(m[1])
		}
		res.Summary = &summary
	}
	if m := contentPattern.FindStringSubmatch(text); m != nil {
		res.Content = strings.TrimSpace(m[1])
	}
	return res
}
