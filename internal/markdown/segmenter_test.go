package markdown

import (
	"strings"
	"testing"

	"github.com/oukeidos/mdtrans/internal/tokens"
)

func TestSegment_MixedDocument(t *testing.T) {
	input := strings.Join([]string{
		"---",
		"title: x",
		"---",
		"# Title",
		"本文です。",
		"続き。",
		"",
		"- a",
		"- b",
		"| a | b |",
		"```go",
		"code",
		"```",
	}, "\n")

	segs := NewSegmenter(nil, 0).Segment(input)
	want := []struct {
		typ     SegmentType
		content string
	}{
		{FrontMatter, "---\ntitle: x\n---\n"},
		{Heading, "# Title\n"},
		{Paragraph, "本文です。\n続き。\n\n"},
		{List, "- a\n- b\n"},
		{Table, "| a | b |\n"},
		{CodeBlock, "```go\ncode\n```\n"},
	}
	if len(segs) != len(want) {
		t.Fatalf("got %d segments, want %d: %+v", len(segs), len(want), segs)
	}
	for i, w := range want {
		if segs[i].Type != w.typ || segs[i].Content != w.content {
			t.Errorf("segment %d = (%v, %q), want (%v, %q)", i, segs[i].Type, segs[i].Content, w.typ, w.content)
		}
	}
	if segs[1].Metadata[MetaLevel] != "1" {
		t.Errorf("heading level = %q, want 1", segs[1].Metadata[MetaLevel])
	}
	if segs[5].Metadata[MetaLang] != "go" {
		t.Errorf("code lang = %q, want go", segs[5].Metadata[MetaLang])
	}
}

func TestSegment_Empty(t *testing.T) {
	if segs := NewSegmenter(nil, 0).Segment(""); segs != nil {
		t.Fatalf("Segment(\"\") = %+v, want nil", segs)
	}
}

func TestSegment_ReproducesInput(t *testing.T) {
	inputs := []string{
		"plain paragraph",
		"# h1\n## h2\ntext\n",
		"---\na: 1\n---\nbody\n\n```\nx\n```\n- item\n",
		"| a |\n|---|\n| b |\n\nafter table",
		"```sh\n# comment\n---\n```\n### Done",
	}
	s := NewSegmenter(nil, 0)
	for _, in := range inputs {
		want := in
		if !strings.HasSuffix(want, "\n") {
			want += "\n"
		}
		if got := Join(s.Segment(in), ""); got != want {
			t.Errorf("Join(Segment(%q)) = %q, want %q", in, got, want)
		}
	}
}

func TestSegment_OrderStrictlyIncreasing(t *testing.T) {
	in := "# a\ntext\n- l\n| t |\n```\nc\n```\n# b\nmore\n"
	segs := NewSegmenter(nil, 0).Segment(in)
	for i, s := range segs {
		if s.Order != i {
			t.Fatalf("segment %d has order %d", i, s.Order)
		}
	}
}

func TestSegment_FenceNeverSplit(t *testing.T) {
	body := strings.Repeat(strings.Repeat("x", 80)+"\n", 50)
	in := "intro\n```\n" + body + "# not a heading\n---\n```\noutro\n"

	segs := NewSegmenter(nil, 10).Segment(in)
	var code []Segment
	for _, s := range segs {
		if s.Type == CodeBlock {
			code = append(code, s)
		}
	}
	if len(code) != 1 {
		t.Fatalf("got %d code blocks, want 1", len(code))
	}
	wantCode := "```\n" + body + "# not a heading\n---\n```\n"
	if code[0].Content != wantCode {
		t.Errorf("code block content mismatch:\n%q", code[0].Content)
	}
}

func TestSegment_UnterminatedFence(t *testing.T) {
	segs := NewSegmenter(nil, 0).Segment("text\n```python\nprint(1)\n")
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	last := segs[1]
	if last.Type != CodeBlock || last.Content != "```python\nprint(1)\n" {
		t.Fatalf("last = %+v", last)
	}
	if last.Metadata[MetaUnterminated] != "true" || last.Metadata[MetaLang] != "python" {
		t.Errorf("metadata = %v", last.Metadata)
	}
}

func TestSegment_FrontMatterOnlyAtStart(t *testing.T) {
	segs := NewSegmenter(nil, 0).Segment("intro\n---\ntitle: x\n---\n")
	for _, s := range segs {
		if s.Type == FrontMatter {
			t.Fatalf("unexpected front matter segment %q", s.Content)
		}
	}
	if len(segs) != 1 || segs[0].Type != Paragraph {
		t.Fatalf("segments = %+v, want one paragraph", segs)
	}
}

func TestSegment_HeadingRequiresSpace(t *testing.T) {
	segs := NewSegmenter(nil, 0).Segment("#tag\n####### seven\n")
	if len(segs) != 1 || segs[0].Type != Paragraph {
		t.Fatalf("segments = %+v, want one paragraph", segs)
	}
}

func TestSegment_CeilingSplitsParagraph(t *testing.T) {
	// Each line estimates to 15 tokens, above the ceiling of 10.
	line := strings.Repeat("a", 20)
	in := line + "\n" + line + "\n" + line + "\n"

	segs := NewSegmenter(tokens.Default(), 10).Segment(in)
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	for i, s := range segs {
		if s.Type != Paragraph || s.Content != line+"\n" {
			t.Errorf("segment %d = %+v", i, s)
		}
	}
	if segs[0].Metadata[MetaSplit] != "ceiling" || segs[2].Metadata[MetaSplit] != "" {
		t.Errorf("split metadata = %v / %v", segs[0].Metadata, segs[2].Metadata)
	}
}

func TestTransitions_Complete(t *testing.T) {
	for s := scanState(0); s < scanStateCount; s++ {
		for tok := lineToken(0); tok < lineTokenCount; tok++ {
			tr := transitions[s][tok]
			if tr.next < 0 || tr.next >= scanStateCount {
				t.Errorf("transition %v/%d has invalid next state %d", s, tok, tr.next)
			}
		}
	}
	if tr := transitions[stateInCodeBlock][tokFenceInfo]; tr.next != stateInCodeBlock {
		t.Errorf("fence with info string must not close a code block")
	}
	if tr := transitions[stateNormal][tokDelimiter]; tr.act != actText {
		t.Errorf("stray delimiter should be ordinary text")
	}
}

func TestSegmentTypes_AllVariantsHandled(t *testing.T) {
	types := SegmentTypes()
	if len(types) != int(segmentTypeCount) {
		t.Fatalf("SegmentTypes() returned %d variants, want %d", len(types), segmentTypeCount)
	}
	seen := map[string]bool{}
	for _, typ := range types {
		name := typ.String()
		if strings.HasPrefix(name, "SegmentType(") {
			t.Errorf("variant %d has no name", int(typ))
		}
		if seen[name] {
			t.Errorf("duplicate name %q", name)
		}
		seen[name] = true
		if back, ok := ParseSegmentType(name); !ok || back != typ {
			t.Errorf("ParseSegmentType(%q) = (%v, %v)", name, back, ok)
		}
		if typ.Atomic() && typ.Mergeable() {
			t.Errorf("%s is both atomic and mergeable", typ)
		}
	}
	for _, typ := range []SegmentType{Heading, CodeBlock, FrontMatter} {
		if typ.Mergeable() {
			t.Errorf("%s must not be mergeable", typ)
		}
	}
}

func TestSegment_WithMetadataCopies(t *testing.T) {
	orig := Segment{Content: "a", Metadata: map[string]string{"k": "v"}}
	changed := orig.WithMetadata("k", "w").WithContent("b")
	if orig.Metadata["k"] != "v" || orig.Content != "a" {
		t.Fatalf("original mutated: %+v", orig)
	}
	if changed.Metadata["k"] != "w" || changed.Content != "b" {
		t.Fatalf("changed = %+v", changed)
	}
}
