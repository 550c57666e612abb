// Package errors provides structured error types for skylayer.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the engine
//   - Machine-readable error codes for programmatic handling
//   - Distinguishing "document could not be parsed" from "document parsed but
//     contains nothing usable"
//
// # Error Codes
//
// The engine reports four failure kinds for a single run:
//   - PARSE_FAILURE: input is not a well-formed vector document
//   - NO_BUILDINGS_FOUND: the document parsed but yielded zero buildings
//   - INDETERMINATE_SHAPE: one shape's bounding box cannot be computed
//   - DEGENERATE_CANVAS: the canvas has a non-positive width or height
//
// The remaining codes cover the service surrounding the engine.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDegenerateCanvas, "canvas height %g is not positive", h)
//	if errors.Is(err, errors.ErrCodeDegenerateCanvas) {
//	    // report upstream
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeParseFailure, xmlErr, "decode document")
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Engine errors
	ErrCodeParseFailure       Code = "PARSE_FAILURE"
	ErrCodeNoBuildings        Code = "NO_BUILDINGS_FOUND"
	ErrCodeIndeterminateShape Code = "INDETERMINATE_SHAPE"
	ErrCodeDegenerateCanvas   Code = "DEGENERATE_CANVAS"

	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidPercent  Code = "INVALID_PERCENT"
	ErrCodeInvalidFilename Code = "INVALID_FILENAME"
	ErrCodeInvalidID       Code = "INVALID_ID"
	ErrCodeTooLarge        Code = "TOO_LARGE"

	// Resource errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeProjectNotFound Code = "PROJECT_NOT_FOUND"
	ErrCodeMissingMaster   Code = "MISSING_MASTER"

	// Infrastructure errors
	ErrCodeStorage  Code = "STORAGE_ERROR"
	ErrCodeCache    Code = "CACHE_ERROR"
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error code to the status code the API responds with.
// Unknown codes map to 500.
func HTTPStatus(code Code) int {
	switch code {
	case ErrCodeParseFailure, ErrCodeInvalidInput, ErrCodeInvalidPercent,
		ErrCodeInvalidFilename, ErrCodeInvalidID, ErrCodeMissingMaster:
		return http.StatusBadRequest
	case ErrCodeNoBuildings, ErrCodeDegenerateCanvas, ErrCodeIndeterminateShape:
		return http.StatusUnprocessableEntity
	case ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeNotFound, ErrCodeProjectNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
