// Package apperror provides the structured error type surfaced to the CLI
// and the MCP tools.
package apperror

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeInternal = "INTERNAL_ERROR"
	CodeStore    = "STORE_ERROR"

	// Input errors
	CodeValidation = "VALIDATION_ERROR"
	CodeSchema     = "SCHEMA_ERROR"

	// Missing schema, store or data
	CodePrecondition = "PRECONDITION_FAILED"
)

// AppError is the standard error type for the application.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field issues, paths, etc.)
	Details map[string]any `json:"details,omitempty"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error.
func NewValidation(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// NewPrecondition creates an error for an operation attempted in the wrong state.
func NewPrecondition(message string) *AppError {
	return &AppError{Code: CodePrecondition, Message: message}
}

// NewSchema creates a schema import error.
func NewSchema(message string) *AppError {
	return &AppError{Code: CodeSchema, Message: message}
}

// NewStore wraps a record store failure.
func NewStore(op string, err error) *AppError {
	return &AppError{
		Code:    CodeStore,
		Message: fmt.Sprintf("record store %s failed", op),
		Details: map[string]any{"operation": op},
		Err:     err,
	}
}

// NewInternal creates an internal error.
func NewInternal(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "Internal error", Err: err}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in the chain, or CodeInternal.
func CodeOf(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternal
}
