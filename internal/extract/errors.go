package extract

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FailureMessage is the only text a caller ever sees for a failed extraction.
const FailureMessage = "Failed to extract information from your paper"

var (
	// ErrExtraction matches every *Error with errors.Is.
	ErrExtraction = errors.New(FailureMessage)

	ErrEmptyDocument = errors.New("document is empty")
	ErrNoData        = errors.New("extraction result has no data")
	ErrNoAPIKey      = errors.New("api key is not set")
)

// Kind tags a failure so callers can pick a retry policy.
type Kind string

const (
	KindTransient     Kind = "transient"     // network, timeouts, 408/429/5xx
	KindPermanent     Kind = "permanent"     // rejected input, bad or missing data
	KindConfiguration Kind = "configuration" // missing or rejected credentials
)

// Error is the normalized extraction failure. Its message is always
// FailureMessage; the underlying cause is kept for logs via Cause.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string { return FailureMessage }

func (e *Error) Is(target error) bool { return target == ErrExtraction }

// Cause returns the error that triggered the failure. Log it, never show it.
func (e *Error) Cause() error { return e.cause }

// Retryable reports whether trying again later might succeed.
func (e *Error) Retryable() bool { return e.Kind == KindTransient }

// KindOf returns the Kind of an extraction error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func fail(err error) *Error {
	return &Error{Kind: classify(err), cause: err}
}

// statusError is a non-2xx answer from the service.
type statusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.Code, e.Body)
}

func classify(err error) Kind {
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden:
			return KindConfiguration
		case se.Code == http.StatusRequestTimeout || se.Code == http.StatusTooManyRequests || se.Code >= 500:
			return KindTransient
		default:
			return KindPermanent
		}
	}
	if errors.Is(err, ErrNoAPIKey) {
		return KindConfiguration
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return KindTransient
	}
	return KindPermanent
}
