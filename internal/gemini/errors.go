package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/generative-ai-go/genai"
	"github.com/oukeidos/mdtrans/internal/apperrors"
	"google.golang.org/api/googleapi"
)

// classifyError maps a GenerateContent failure onto an apperrors kind.
// Cancellation passes through unchanged. A blocked prompt is final, a
// blocked candidate is retried. Errors without an HTTP status are transport
// failures and are treated as transient.
func classifyError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	cause := fmt.Errorf("gemini generate content failed: %w", err)

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		if blocked.PromptFeedback != nil {
			return apperrors.New(apperrors.KindBadRequest, "Gemini blocked the request.", cause)
		}
		return apperrors.New(apperrors.KindValidation, "Gemini withheld the response.", cause)
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return apperrors.New(apperrors.KindTransient,
			"Gemini request failed due to a temporary network/runtime error.", cause)
	}

	code := gerr.Code
	switch {
	case code == http.StatusBadRequest:
		return apperrors.New(apperrors.KindBadRequest, "Gemini request rejected (400).", cause)
	case code == http.StatusNotFound:
		return apperrors.New(apperrors.KindBadRequest, "Gemini model not found or no access (404).", cause)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperrors.New(apperrors.KindAuth, fmt.Sprintf("Gemini authentication/authorization failed (%d).", code), cause)
	case code == http.StatusTooManyRequests:
		return apperrors.New(apperrors.KindRateLimit, "Gemini rate limit exceeded (429). Please try again later.", cause)
	case code >= 500:
		return apperrors.New(apperrors.KindTransient, fmt.Sprintf("Gemini service temporary error (%d). Please retry.", code), cause)
	default:
		return apperrors.New(apperrors.KindBadRequest, fmt.Sprintf("Gemini API error (%d).", code), cause)
	}
}
