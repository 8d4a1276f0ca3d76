// Package errors provides structured error types for the StickerSmash application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the About/Home controllers and the web runtime
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages for alerts
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow the failure taxonomy of the two core flows:
//   - PERMISSION_*, SERVICES_*: location permission negotiation (user-actionable)
//   - FETCH_FAILED, TIMEOUT: the positioning subsystem failed (retryable)
//   - SETTINGS_LAUNCH_FAILED: the OS settings page could not be opened (alert only)
//   - EXPORT_FAILED: capture, encode or persistence failed (retryable, no partial file)
//   - INVALID_*, NOT_MOUNTED: input validation failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "sticker size must be positive, got %d", size)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeExport, origErr, "save %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidImage  Code = "INVALID_IMAGE"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeNotMounted    Code = "NOT_MOUNTED"

	// Permission and location errors
	ErrCodePermissionDenied Code = "PERMISSION_DENIED"
	ErrCodeFetch            Code = "FETCH_FAILED"
	ErrCodeTimeout          Code = "TIMEOUT"

	// Side-channel errors
	ErrCodeSettingsLaunch Code = "SETTINGS_LAUNCH_FAILED"

	// Export errors
	ErrCodeExport Code = "EXPORT_FAILED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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
// Only the outermost *Error is considered, so a wrapped code does not leak
// through a re-coded wrapper.
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

// Alert is a one-shot user notification produced when an error is recovered
// locally instead of being turned into a state transition.
type Alert struct {
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// AlertError pairs an error with the alert the user should see for it.
type AlertError struct {
	Alert Alert
	Err   error
}

// Error implements the error interface.
func (e *AlertError) Error() string {
	if e.Err == nil {
		return e.Alert.Title
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *AlertError) Unwrap() error { return e.Err }

// AsAlert extracts the alert attached to err, if any.
func AsAlert(err error) (Alert, bool) {
	var ae *AlertError
	if errors.As(err, &ae) {
		return ae.Alert, true
	}
	return Alert{}, false
}
