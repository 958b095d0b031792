package openai

import "fmt"

// Wire types for the subset of the Responses API this package uses.

type responsesRequest struct {
	Model           string      `json:"model"`
	Instructions    string      `json:"instructions,omitempty"`
	Input           []inputItem `json:"input"`
	MaxOutputTokens int         `json:"max_output_tokens,omitempty"`
}

type inputItem struct {
	Type    string `json:"type"`
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type responsesReply struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	IncompleteDetails *struct {
		Reason string `json:"reason"`
	} `json:"incomplete_details,omitempty"`
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// text concatenates the output_text parts of every message item.
func (r *responsesReply) text() string {
	var out []byte
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				out = append(out, part.Text...)
			}
		}
	}
	return string(out)
}

func (r *responsesReply) incompleteReason() string {
	if r.IncompleteDetails == nil {
		return "unknown"
	}
	return r.IncompleteDetails.Reason
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func (e apiError) code() string {
	if e.Code == nil {
		return ""
	}
	return fmt.Sprint(e.Code)
}
