// Package domainerrors provides coded errors for the service layer.
//
// Stores return infrastructure sentinels (pkg/platform/sentinel); services
// translate them into coded errors here; the HTTP layer maps codes to status
// codes. Codes travel with the error through wrapping, so handlers never
// string-match messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and the transport layer.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return New(code, message)
	}
	return &Error{Code: code, Message: message, cause: err}
}

// CodeOf returns the code carried by err, or CodeInternal when err carries
// none. A nil err has no code and returns "".
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}

// MessageOf returns the user-facing message of a coded error, or "" when err
// is not coded.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
