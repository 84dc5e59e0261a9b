package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across llmgate.
type ErrorCode string

// Failure classes. The Retryable field on Error is authoritative for retry
// decisions; codes exist so callers can distinguish failure causes.
const (
	// ErrConfiguration covers malformed settings and missing required
	// credentials. Fatal, never retried.
	ErrConfiguration ErrorCode = "CONFIGURATION"

	// ErrSchema covers schemas rejected at contract build time or by a
	// backend's complexity limits at call time. Fatal, never retried.
	ErrSchema ErrorCode = "SCHEMA"

	// ErrAuthentication covers credentials rejected by a backend. Fatal,
	// never retried.
	ErrAuthentication ErrorCode = "AUTHENTICATION"

	// ErrInvalidRequest covers HTTP 4xx other than 401/403/408/429.
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrNetwork covers connection failures and resets. Retryable.
	ErrNetwork ErrorCode = "NETWORK"

	// ErrTimeout covers per-attempt deadline expiry and HTTP 408. Retryable.
	ErrTimeout ErrorCode = "TIMEOUT"

	// ErrRateLimited covers HTTP 429 and backend throttling. Retryable.
	ErrRateLimited ErrorCode = "RATE_LIMITED"

	// ErrUpstream covers HTTP 5xx and malformed upstream payloads. Retryable.
	ErrUpstream ErrorCode = "UPSTREAM"

	// ErrValidation marks backend output that fails JSON parsing or schema
	// validation. Retryable within a candidate's attempt budget; generation
	// is stochastic, so another attempt may succeed.
	ErrValidation ErrorCode = "VALIDATION"

	// ErrBackendIncompatible marks a candidate that structurally cannot
	// honor the request shape. Never retried against that candidate; the
	// orchestrator advances to the next one immediately.
	ErrBackendIncompatible ErrorCode = "BACKEND_INCOMPATIBLE"

	// ErrExecution is terminal: every backend candidate was exhausted
	// without producing a valid result.
	ErrExecution ErrorCode = "EXECUTION_FAILED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Backend    string    `json:"backend,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithBackend sets the backend identifier that produced the error.
func (e *Error) WithBackend(backend string) *Error {
	e.Backend = backend
	return e
}

// IsRetryable checks if an error is retryable. Errors that are not *Error
// are conservatively treated as non-retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error, or "" if the error
// does not carry one.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsFatal reports whether an error must propagate immediately without
// consuming further attempts or backend candidates.
func IsFatal(err error) bool {
	switch GetErrorCode(err) {
	case ErrConfiguration, ErrAuthentication, ErrSchema:
		return true
	}
	return false
}
