package openai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/oukeidos/mdtrans/internal/apperrors"
)

// statusError classifies a non-200 reply. The API message may quote the
// request, so it only goes into the cause.
func statusError(code int, status string, body []byte) error {
	var envelope struct {
		Error apiError `json:"error"`
	}
	_ = json.Unmarshal(body, &envelope)
	details := envelope.Error
	cause := fmt.Errorf("openai status=%s type=%s code=%s message=%s", status, details.Type, details.code(), details.Message)

	kind, msg := classify(code, status, details)
	return apperrors.New(kind, msg, cause)
}

func classify(code int, status string, details apiError) (apperrors.Kind, string) {
	switch {
	case code == http.StatusTooManyRequests && details.code() == "insufficient_quota":
		return apperrors.KindBadRequest, "OpenAI API quota exhausted (429): check your plan and billing details."
	case code == http.StatusTooManyRequests:
		return apperrors.KindRateLimit, "OpenAI API rate limit exceeded (429): please try again later."
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperrors.KindAuth, fmt.Sprintf("OpenAI API authentication/authorization failed (%d): please verify your API key and permissions.", code)
	case code == http.StatusNotFound && modelNotFound(details):
		return apperrors.KindBadRequest, "The model does not exist or you do not have access to it."
	case code == http.StatusNotFound:
		return apperrors.KindBadRequest, "OpenAI resource not found (404)."
	case code >= 500:
		return apperrors.KindTransient, fmt.Sprintf("OpenAI server error (%d): please try again later.", code)
	default:
		return apperrors.KindBadRequest, fmt.Sprintf("OpenAI API error (%d): %s", code, status)
	}
}

func modelNotFound(details apiError) bool {
	text := strings.ToLower(strings.Join([]string{details.code(), details.Type, details.Message}, " "))
	return strings.Contains(text, "model_not_found") ||
		strings.Contains(text, "does not exist or you do not have access to it")
}
