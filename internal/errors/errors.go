package errors

import (
	"fmt"
)

// HippoError is the structured error type for HippoMind.
// It provides rich context for error handling, logging, and user presentation.
type HippoError struct {
	// Code is the unique error code (e.g., "ERR_403_SESSION_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Index, Upstream, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *HippoError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *HippoError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with HippoError.
func (e *HippoError) Is(target error) bool {
	if t, ok := target.(*HippoError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *HippoError) WithDetail(key, value string) *HippoError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new HippoError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *HippoError {
	return &HippoError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a HippoError from an existing error.
// The error's message becomes the HippoError message.
func Wrap(code string, err error) *HippoError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// RetrievalUnavailable creates an error for an unreachable chunk store.
// Surfaced to the caller; the session is left unmodified.
func RetrievalUnavailable(cause error) *HippoError {
	return New(ErrCodeRetrievalUnavailable, "vector store is unreachable", cause)
}

// SessionNotFound creates a not-found error for the given session id.
func SessionNotFound(id string) *HippoError {
	return New(ErrCodeSessionNotFound, fmt.Sprintf("session %q not found", id), nil)
}

// InvalidTransition creates an error for a session operation that is not
// valid in the session's current state.
func InvalidTransition(message string) *HippoError {
	return New(ErrCodeInvalidTransition, message, nil)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *HippoError {
	return New(ErrCodeInvalidInput, message, cause)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *HippoError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *HippoError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a HippoError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if he, ok := err.(*HippoError); ok {
		return he.Retryable
	}
	return false
}

// GetCode extracts the error code from a HippoError.
// Returns empty string if not a HippoError.
func GetCode(err error) string {
	if he, ok := err.(*HippoError); ok {
		return he.Code
	}
	return ""
}

// GetCategory extracts the category from a HippoError.
// Returns empty string if not a HippoError.
func GetCategory(err error) Category {
	if he, ok := err.(*HippoError); ok {
		return he.Category
	}
	return ""
}
