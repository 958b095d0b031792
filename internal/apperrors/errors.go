// Package apperrors classifies failures so callers can decide on retries
// and show messages that never leak document text or credentials.
package apperrors

import (
	"errors"
	"strings"
)

// Kind is the failure class of an *Error.
type Kind string

const (
	KindTransient  Kind = "transient"
	KindRateLimit  Kind = "rate_limit"
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindBadRequest Kind = "bad_request"
	KindCanceled   Kind = "canceled"
)

type kindInfo struct {
	message   string
	retryable bool
}

// Validation is retryable: model output varies between calls, so an empty
// or malformed reply may succeed on the next attempt.
var kinds = map[Kind]kindInfo{
	KindTransient:  {"Temporary upstream error. Please try again.", true},
	KindRateLimit:  {"Rate limit exceeded. Please try again later.", true},
	KindAuth:       {"Authentication failed. Please verify your API key and permissions.", false},
	KindValidation: {"Response validation failed.", true},
	KindBadRequest: {"Request rejected by upstream API.", false},
	KindCanceled:   {"Translation was canceled.", false},
}

// Retryable reports whether another attempt of the same request may succeed.
func (k Kind) Retryable() bool {
	return kinds[k].retryable
}

func (k Kind) defaultMessage() string {
	if info, ok := kinds[k]; ok {
		return info.message
	}
	return "Request failed."
}

// Error pairs a message that is safe to print with the internal cause.
// Error() returns only the safe message; the cause stays reachable through
// errors.Is and errors.As.
type Error struct {
	Kind        Kind
	SafeMessage string
	Cause       error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case strings.TrimSpace(e.SafeMessage) != "":
		return strings.TrimSpace(e.SafeMessage)
	case e.Cause != nil:
		return e.Cause.Error()
	default:
		return "unknown error"
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New classifies cause. An empty safeMessage selects the default text for
// kind.
func New(kind Kind, safeMessage string, cause error) error {
	msg := strings.TrimSpace(safeMessage)
	if msg == "" {
		msg = kind.defaultMessage()
	}
	return &Error{Kind: kind, SafeMessage: msg, Cause: cause}
}

func Transient(err error) error  { return New(KindTransient, "", err) }
func RateLimit(err error) error  { return New(KindRateLimit, "", err) }
func Auth(err error) error       { return New(KindAuth, "", err) }
func Validation(err error) error { return New(KindValidation, "", err) }
func BadRequest(err error) error { return New(KindBadRequest, "", err) }
func Canceled(err error) error   { return New(KindCanceled, "", err) }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	if e, ok := asError(err); ok {
		return e.Kind, true
	}
	return "", false
}

// PublicMessage returns the safe message of a classified error, or err's
// own text otherwise.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := asError(err); ok {
		return e.Error()
	}
	return err.Error()
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func IsRetryable(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind.Retryable()
}

func IsRateLimit(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindRateLimit
}
