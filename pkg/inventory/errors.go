package inventory

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code. Codes follow a
// hierarchical naming convention: INVALID_* for validation failures,
// NOT_FOUND_* for missing resources, STORE_* for backend failures.
type Code string

const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidName     Code = "INVALID_NAME"
	ErrCodeInvalidRegion   Code = "INVALID_REGION"
	ErrCodeInvalidQuantity Code = "INVALID_QUANTITY"
	ErrCodeInvalidImage    Code = "INVALID_IMAGE"

	// Resource not found errors
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeLocationNotFound Code = "LOCATION_NOT_FOUND"
	ErrCodeRegionNotFound   Code = "REGION_NOT_FOUND"
	ErrCodeItemNotFound     Code = "ITEM_NOT_FOUND"

	// Storage backend errors
	ErrCodeStore       Code = "STORE_ERROR"
	ErrCodeStoreRemote Code = "STORE_REMOTE_ERROR"

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

// NewError creates a new Error with the given code and formatted message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError creates a new Error wrapping an existing error.
func WrapError(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// HasCode reports whether err carries the given error code anywhere in its
// chain.
func HasCode(err error, code Code) bool {
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

// IsNotFound reports whether err is any of the not-found codes.
func IsNotFound(err error) bool {
	switch GetCode(err) {
	case ErrCodeNotFound, ErrCodeLocationNotFound, ErrCodeRegionNotFound, ErrCodeItemNotFound:
		return true
	}
	return false
}
