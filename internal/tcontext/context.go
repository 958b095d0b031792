// Package tcontext carries terminology and recent translations from one
// segment to the next within a single translation run.
package tcontext

import (
	"strings"
	"time"

	"github.com/oukeidos/mdtrans/internal/markdown"
	"github.com/rivo/uniseg"
)

// DefaultHistorySize is the number of translated segments retained.
const DefaultHistorySize = 3

// Entry is one translated segment kept in the history.
type Entry struct {
	Original   markdown.Segment
	Translated markdown.Segment
	Timestamp  time.Time
}

// Term is a glossary mapping.
type Term struct {
	Source string
	Target string
}

// Context is owned by exactly one run and is not safe for concurrent use.
type Context struct {
	entries []Entry
	start   int
	size    int

	terms []Term
	index map[string]int

	now func() time.Time
}

// New returns an empty context retaining up to historySize entries.
// A non-positive size uses DefaultHistorySize.
func New(historySize int) *Context {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Context{
		entries: make([]Entry, historySize),
		index:   make(map[string]int),
		now:     time.Now,
	}
}

// Capacity returns the maximum number of retained entries.
func (c *Context) Capacity() int { return len(c.entries) }

// Len returns the number of retained entries.
func (c *Context) Len() int { return c.size }

// AddTerminology sets the target for source. A repeated source keeps its
// original position and takes the new target.
func (c *Context) AddTerminology(source, target string) {
	if i, ok := c.index[source]; ok {
		c.terms[i].Target = target
		return
	}
	c.index[source] = len(c.terms)
	c.terms = append(c.terms, Term{Source: source, Target: target})
}

// Terminology returns the glossary in insertion order.
func (c *Context) Terminology() []Term {
	out := make([]Term, len(c.terms))
	copy(out, c.terms)
	return out
}

// UpdateContext records a translated segment, evicting the oldest entry
// when the history is full.
func (c *Context) UpdateContext(original, translated markdown.Segment) {
	e := Entry{Original: original, Translated: translated, Timestamp: c.now()}
	capacity := len(c.entries)
	if c.size < capacity {
		c.entries[(c.start+c.size)%capacity] = e
		c.size++
		return
	}
	c.entries[c.start] = e
	c.start = (c.start + 1) % capacity
}

// History returns retained entries, oldest first.
func (c *Context) History() []Entry {
	out := make([]Entry, 0, c.size)
	for i := 0; i < c.size; i++ {
		out = append(out, c.entries[(c.start+i)%len(c.entries)])
	}
	return out
}

// Prompt renders the glossary and the retained heading translations for
// inclusion in a translation request. It returns "" when there is nothing
// to render.
func (c *Context) Prompt() string {
	var b strings.Builder
	if len(c.terms) > 0 {
		b.WriteString("# Translation Terminology\n")
		for _, t := range c.terms {
			b.WriteString("- ")
			b.WriteString(t.Source)
			b.WriteString(" → ")
			b.WriteString(t.Target)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	if c.size > 0 {
		b.WriteString("# Previous Translations\n")
		for _, e := range c.History() {
			if e.Original.Type != markdown.Heading {
				continue
			}
			b.WriteString("Section: ")
			b.WriteString(strings.TrimSpace(e.Original.Content))
			b.WriteString(" → ")
			b.WriteString(strings.TrimSpace(e.Translated.Content))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// RecentTranslatedContent returns the newest translated text that fits in
// maxChars user-perceived characters. Entries are taken whole, newest
// first, skipping code blocks, and collection stops at the first entry that
// would overflow. The result is in document order.
func (c *Context) RecentTranslatedContent(maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	history := c.History()
	var parts []string
	used := 0
	for i := len(history) - 1; i >= 0; i-- {
		e := history[i]
		if e.Translated.Type == markdown.CodeBlock {
			continue
		}
		text := strings.TrimSpace(e.Translated.Content)
		block := text + "\n\n"
		n := uniseg.GraphemeClusterCount(text)
		if used+n > maxChars {
			break
		}
		used += uniseg.GraphemeClusterCount(block)
		parts = append(parts, block)
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString(parts[i])
	}
	return strings.TrimSpace(b.String())
}

// Clone returns an independent copy.
func (c *Context) Clone() *Context {
	cp := &Context{
		entries: make([]Entry, len(c.entries)),
		start:   c.start,
		size:    c.size,
		terms:   make([]Term, len(c.terms)),
		index:   make(map[string]int, len(c.index)),
		now:     c.now,
	}
	copy(cp.entries, c.entries)
	copy(cp.terms, c.terms)
	for k, v := range c.index {
		cp.index[k] = v
	}
	return cp
}
