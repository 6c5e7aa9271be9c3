// Package errors provides structured error types for cassette.
//
// Every fallible geometry boundary (offsetting, inflection points, sawtooth
// generation, kernel calls) returns an *Error carrying one of the codes
// below, so callers can tell a degenerate corner from a failed loft without
// string matching.
//
//	err := errors.New(errors.ErrCodeDegenerateAngle, "corner %s: angle %.6f", key, angle)
//	if errors.Is(err, errors.ErrCodeDegenerateAngle) {
//	    // skip this panel
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	// Geometry taxonomy
	ErrCodeDegenerateAngle  Code = "DEGENERATE_ANGLE"
	ErrCodeIntersection     Code = "INTERSECTION_FAILURE"
	ErrCodeTopologyMismatch Code = "TOPOLOGY_MISMATCH"
	ErrCodeKernelOperation  Code = "KERNEL_OPERATION_FAILURE"

	// General
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeInternal     Code = "INTERNAL_ERROR"
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

// UserMessage returns the message of an *Error without the code prefix,
// or the plain error string for other errors.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
