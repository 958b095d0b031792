package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/oukeidos/mdtrans/internal/apperrors"
	"google.golang.org/api/googleapi"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      apperrors.Kind
		retryable bool
	}{
		{name: "400", err: &googleapi.Error{Code: 400}, kind: apperrors.KindBadRequest},
		{name: "401", err: &googleapi.Error{Code: 401}, kind: apperrors.KindAuth},
		{name: "403 wrapped", err: fmt.Errorf("call: %w", &googleapi.Error{Code: 403}), kind: apperrors.KindAuth},
		{name: "404", err: &googleapi.Error{Code: 404}, kind: apperrors.KindBadRequest},
		{name: "409", err: &googleapi.Error{Code: 409}, kind: apperrors.KindBadRequest},
		{name: "429", err: &googleapi.Error{Code: 429}, kind: apperrors.KindRateLimit, retryable: true},
		{name: "503", err: &googleapi.Error{Code: 503}, kind: apperrors.KindTransient, retryable: true},
		{name: "502", err: &googleapi.Error{Code: 502}, kind: apperrors.KindTransient, retryable: true},
		{name: "blocked prompt", err: &genai.BlockedError{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety}}, kind: apperrors.KindBadRequest},
		{name: "blocked candidate", err: &genai.BlockedError{Candidate: &genai.Candidate{FinishReason: genai.FinishReasonSafety}}, kind: apperrors.KindValidation, retryable: true},
		{name: "transport", err: errors.New("dial tcp: timeout"), kind: apperrors.KindTransient, retryable: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError(tt.err)
			var appErr *apperrors.Error
			if !errors.As(err, &appErr) {
				t.Fatalf("expected apperrors.Error, got %T", err)
			}
			if appErr.Kind != tt.kind {
				t.Fatalf("kind = %s, want %s", appErr.Kind, tt.kind)
			}
			if apperrors.IsRetryable(err) != tt.retryable {
				t.Fatalf("IsRetryable() = %v, want %v", !tt.retryable, tt.retryable)
			}
			if !errors.Is(err, tt.err) {
				t.Fatal("original error should stay in the chain")
			}
		})
	}
}

func TestClassifyError_DoesNotExposeRawMessage(t *testing.T) {
	err := classifyError(errors.New("SECRET_ARTICLE_TEXT"))
	if strings.Contains(err.Error(), "SECRET_ARTICLE_TEXT") {
		t.Fatalf("expected safe message, got %q", err.Error())
	}
}

func TestClassifyError_CanceledPassesThrough(t *testing.T) {
	err := classifyError(fmt.Errorf("rpc: %w", context.Canceled))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, ok := apperrors.KindOf(err); ok {
		t.Fatalf("canceled error should not be classified")
	}
	if classifyError(nil) != nil {
		t.Fatal("nil should stay nil")
	}
}
