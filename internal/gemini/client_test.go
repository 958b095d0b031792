package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestReplyText(t *testing.T) {
	textCandidate := func(parts ...genai.Part) *genai.Candidate {
		return &genai.Candidate{Content: &genai.Content{Parts: parts}}
	}
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr string
	}{
		{name: "nil response", resp: nil, wantErr: "no response received from Gemini"},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: "no candidates returned from Gemini"},
		{
			name:    "no parts",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{textCandidate(), {}}},
			wantErr: "no text parts found in Gemini response",
		},
		{
			name: "non-text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				textCandidate(genai.Blob{MIMEType: "application/octet-stream", Data: []byte{0x01}}),
			}},
			wantErr: "no text parts found in Gemini response",
		},
		{
			name: "multi-part text",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				textCandidate(genai.Text("## 見出し\n"), genai.Text("本文")),
			}},
			want: "## 見出し\n本文",
		},
		{
			name: "first candidate empty",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				textCandidate(),
				textCandidate(genai.Text("second")),
			}},
			want: "second",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := replyText(tt.resp)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("replyText() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("replyText() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestUsageOf(t *testing.T) {
	if got := usageOf(&genai.GenerateContentResponse{}); got.TotalTokens != 0 {
		t.Fatalf("expected zero usage, got %+v", got)
	}
	resp := &genai.GenerateContentResponse{
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 7, CandidatesTokenCount: 3, TotalTokenCount: 10},
	}
	got := usageOf(resp)
	if got.PromptTokens != 7 || got.OutputTokens != 3 || got.TotalTokens != 10 {
		t.Fatalf("usageOf() = %+v", got)
	}
}

func TestNewModel_SystemInstruction(t *testing.T) {
	c := &Client{genai: &genai.Client{}, modelName: "gemini-test"}
	if m := c.newModel("  "); m.SystemInstruction != nil {
		t.Fatalf("expected no system instruction")
	}
	m := c.newModel("be precise")
	if m.SystemInstruction == nil || len(m.SystemInstruction.Parts) != 1 {
		t.Fatalf("expected system instruction to be set")
	}
	if text, ok := m.SystemInstruction.Parts[0].(genai.Text); !ok || string(text) != "be precise" {
		t.Fatalf("unexpected system instruction %v", m.SystemInstruction.Parts[0])
	}
	if m.ResponseMIMEType != "text/plain" {
		t.Fatalf("ResponseMIMEType = %q", m.ResponseMIMEType)
	}
}
