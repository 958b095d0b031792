package markdown

import (
	"strings"
	"testing"
)

func TestOptimize_MergesRuns(t *testing.T) {
	in := []Segment{
		{Content: "p0\n", Type: Paragraph, Order: 0, Metadata: map[string]string{"k": "first"}},
		{Content: "p1\n", Type: Paragraph, Order: 1},
		{Content: "# h\n", Type: Heading, Order: 2},
		{Content: "# h2\n", Type: Heading, Order: 3},
		{Content: "p4\n", Type: Paragraph, Order: 4},
		{Content: "```\na\n```\n", Type: CodeBlock, Order: 5},
		{Content: "```\nb\n```\n", Type: CodeBlock, Order: 6},
		{Content: "- x\n", Type: List, Order: 7},
		{Content: "- y\n", Type: List, Order: 8},
	}
	out := NewOptimizer(nil, 0).Optimize(in)

	want := []struct {
		order   int
		typ     SegmentType
		content string
	}{
		{0, Paragraph, "p0\np1\n"},
		{2, Heading, "# h\n"},
		{3, Heading, "# h2\n"},
		{4, Paragraph, "p4\n"},
		{5, CodeBlock, "```\na\n```\n"},
		{6, CodeBlock, "```\nb\n```\n"},
		{7, List, "- x\n- y\n"},
	}
	if len(out) != len(want) {
		t.Fatalf("got %d segments, want %d", len(out), len(want))
	}
	for i, w := range want {
		if out[i].Order != w.order || out[i].Type != w.typ || out[i].Content != w.content {
			t.Errorf("segment %d = %+v, want %+v", i, out[i], w)
		}
	}
	if out[0].Metadata["k"] != "first" {
		t.Errorf("merged segment lost first metadata: %v", out[0].Metadata)
	}
	if Join(out, "") != Join(in, "") {
		t.Error("optimization changed concatenated content")
	}
	if in[0].Content != "p0\n" {
		t.Error("input was modified")
	}
}

func TestOptimize_RespectsCeiling(t *testing.T) {
	// 20 characters estimate to 15 tokens; two of them exceed 20.
	p := strings.Repeat("a", 20)
	in := []Segment{
		{Content: p, Type: Paragraph, Order: 0},
		{Content: p, Type: Paragraph, Order: 1},
	}
	out := NewOptimizer(nil, 20).Optimize(in)
	if len(out) != 2 {
		t.Fatalf("got %d segments, want 2", len(out))
	}
}

func TestOptimize_Empty(t *testing.T) {
	if out := NewOptimizer(nil, 0).Optimize(nil); out != nil {
		t.Fatalf("Optimize(nil) = %v", out)
	}
}
