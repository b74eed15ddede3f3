package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is a stable category for provider failures.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindTransport     ErrorKind = "transport"
	KindEmptyResponse ErrorKind = "empty_response"
)

// Error is a categorized provider failure. Adapters decide Retryable; the
// client only consults the flag.
type Error struct {
	Kind       ErrorKind
	Backend    Backend
	StatusCode int
	Message    string
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	prefix := string(e.Kind)
	if e.Backend != "" {
		prefix = fmt.Sprintf("%s %s", e.Backend, e.Kind)
	}
	if e.StatusCode != 0 {
		prefix = fmt.Sprintf("%s (status %d)", prefix, e.StatusCode)
	}

	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	default:
		return prefix
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewConfigurationError reports a missing or invalid setting for a backend.
func NewConfigurationError(backend Backend, message string) error {
	return &Error{Kind: KindConfiguration, Backend: backend, Message: message}
}

// NewEmptyResponseError reports a successful call that carried no content.
func NewEmptyResponseError(backend Backend, agent string) error {
	return &Error{Kind: KindEmptyResponse, Backend: backend, Message: fmt.Sprintf("%s returned empty response", agent)}
}

// NewTransportError wraps a failed exchange. Network failures without a
// status code are not retryable unless the backend says otherwise.
func NewTransportError(backend Backend, statusCode int, message string, retryable bool, err error) error {
	return &Error{
		Kind:       KindTransport,
		Backend:    backend,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  retryable,
		Err:        err,
	}
}

// KindOf returns the category for err, or "" when err is not categorized.
func KindOf(err error) ErrorKind {
	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Kind
	}

	return ""
}

// IsRetryable reports whether the adapter marked err as transient.
func IsRetryable(err error) bool {
	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Retryable
	}

	return false
}

// IsServerError reports whether status is in the 5xx class.
func IsServerError(status int) bool {
	return status >= http.StatusInternalServerError && status <= 599
}
