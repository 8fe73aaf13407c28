// Package errors provides structured error types for the Cartopack application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention that mirrors how
// failures propagate through a layout run:
//   - CONFIG_*: invalid options, detected before any computation; fatal
//   - DATA_*: a single group's data cannot be laid out; the group is
//     skipped and the run continues
//   - LAYOUT_*: packing or subdivision failed for one group; skipped,
//     always reported
//   - IO_* / INTERNAL_*: everything outside the per-group taxonomy
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDegenerateRange, "all values equal %v", v)
//	if errors.IsData(err) {
//	    // Skip the group, record the reason
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeReadInput, origErr, "read %s", path)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors: rejected before any layout computation.
	ErrCodeInvalidConfig   Code = "CONFIG_INVALID"
	ErrCodeSizeRange       Code = "CONFIG_SIZE_RANGE"
	ErrCodeMissingField    Code = "CONFIG_MISSING_FIELD"
	ErrCodeInvalidSortMode Code = "CONFIG_SORT_MODE"
	ErrCodeInvalidTool     Code = "CONFIG_TOOL"

	// Data errors: scoped to one group, non-fatal.
	ErrCodeEmptyGroup      Code = "DATA_EMPTY_GROUP"
	ErrCodeZeroSum         Code = "DATA_ZERO_SUM"
	ErrCodeTooFewMembers   Code = "DATA_TOO_FEW_MEMBERS"
	ErrCodeDegenerateRange Code = "DATA_DEGENERATE_RANGE"
	ErrCodeValueOutOfRange Code = "DATA_VALUE_OUT_OF_RANGE"
	ErrCodeBadValue        Code = "DATA_BAD_VALUE"

	// Layout errors: one primitive or group failed, non-fatal.
	ErrCodePackFailed      Code = "LAYOUT_PACK_FAILED"
	ErrCodeSubdivideFailed Code = "LAYOUT_SUBDIVIDE_FAILED"
	ErrCodeContainment     Code = "LAYOUT_CONTAINMENT"

	// I/O errors
	ErrCodeReadInput   Code = "IO_READ_INPUT"
	ErrCodeWriteOutput Code = "IO_WRITE_OUTPUT"

	// Resource errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
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

// IsConfiguration reports whether err carries a CONFIG_* code.
// Configuration errors abort a run before any group is processed.
func IsConfiguration(err error) bool {
	return strings.HasPrefix(string(GetCode(err)), "CONFIG_")
}

// IsData reports whether err carries a DATA_* code.
// Data errors skip a single group and never abort the run.
func IsData(err error) bool {
	return strings.HasPrefix(string(GetCode(err)), "DATA_")
}

// IsLayout reports whether err carries a LAYOUT_* code.
// Layout errors skip a single group and are always surfaced in the summary.
func IsLayout(err error) bool {
	return strings.HasPrefix(string(GetCode(err)), "LAYOUT_")
}

// IsGroupScoped reports whether err is non-fatal for the run as a whole,
// i.e. a data or layout error confined to one group.
func IsGroupScoped(err error) bool {
	return IsData(err) || IsLayout(err)
}
