// Package markdown partitions Markdown documents into typed segments that
// can be translated one at a time and concatenated back in order.
package markdown

import (
	"fmt"
	"maps"
)

// SegmentType classifies a segment. Every switch over SegmentType in this
// module lists all variants; segmentTypeCount must stay last.
type SegmentType int

const (
	Heading SegmentType = iota
	Paragraph
	List
	Table
	CodeBlock
	FrontMatter
	Other
	segmentTypeCount
)

// SegmentTypes returns every variant in declaration order.
func SegmentTypes() []SegmentType {
	out := make([]SegmentType, 0, segmentTypeCount)
	for t := Heading; t < segmentTypeCount; t++ {
		out = append(out, t)
	}
	return out
}

func (t SegmentType) String() string {
	switch t {
	case Heading:
		return "heading"
	case Paragraph:
		return "paragraph"
	case List:
		return "list"
	case Table:
		return "table"
	case CodeBlock:
		return "code_block"
	case FrontMatter:
		return "front_matter"
	case Other:
		return "other"
	}
	return fmt.Sprintf("SegmentType(%d)", int(t))
}

// ParseSegmentType is the inverse of SegmentType.String.
func ParseSegmentType(name string) (SegmentType, bool) {
	for _, t := range SegmentTypes() {
		if t.String() == name {
			return t, true
		}
	}
	return Other, false
}

func (t SegmentType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *SegmentType) UnmarshalText(b []byte) error {
	v, ok := ParseSegmentType(string(b))
	if !ok {
		return fmt.Errorf("unknown segment type %q", b)
	}
	*t = v
	return nil
}

// Atomic reports whether segments of this type must never be split,
// merged or translated.
func (t SegmentType) Atomic() bool {
	switch t {
	case CodeBlock, FrontMatter:
		return true
	case Heading, Paragraph, List, Table, Other:
		return false
	}
	return false
}

// Mergeable reports whether adjacent segments of this type may be coalesced.
func (t SegmentType) Mergeable() bool {
	switch t {
	case CodeBlock, Heading, FrontMatter:
		return false
	case Paragraph, List, Table, Other:
		return true
	}
	return false
}

// Segment is a contiguous, classified span of Markdown. Segments are values:
// the With* methods return modified copies.
type Segment struct {
	Content  string
	Type     SegmentType
	Order    int
	Metadata map[string]string
}

// WithContent returns a copy of s carrying new content.
func (s Segment) WithContent(content string) Segment {
	s.Content = content
	s.Metadata = maps.Clone(s.Metadata)
	return s
}

// WithMetadata returns a copy of s with key set to value.
func (s Segment) WithMetadata(key, value string) Segment {
	md := make(map[string]string, len(s.Metadata)+1)
	maps.Copy(md, s.Metadata)
	md[key] = value
	s.Metadata = md
	return s
}

// Join concatenates segment contents in slice order with sep between them.
func Join(segments []Segment, sep string) string {
	n := 0
	for _, s := range segments {
		n += len(s.Content) + len(sep)
	}
	buf := make([]byte, 0, n)
	for i, s := range segments {
		if i > 0 {
			buf = append(buf, sep...)
		}
		buf = append(buf, s.Content...)
	}
	return string(buf)
}
