// Package errors provides structured application errors with stable codes so
// callers can branch on categories instead of string matching.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes an application error.
type ErrorCode string

const (
	ErrCodeNotFound   ErrorCode = "not_found"
	ErrCodeConflict   ErrorCode = "conflict"   // unique constraint, duplicate write
	ErrCodeValidation ErrorCode = "validation" // input rejected by us or the schema
	ErrCodeInternal   ErrorCode = "internal"
	ErrCodeTimeout    ErrorCode = "timeout"
	ErrCodeCanceled   ErrorCode = "canceled"
)

// AppError carries a code, a human message and an optional cause.
// Unwrap exposes the cause to errors.Is and errors.As.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *AppError) Unwrap() error { return e.Cause }

// Wrap attaches a code and message to err. A nil err stays nil so callers
// can wrap unconditionally.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Constructors for the codes callers raise directly.

func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

func NotFoundf(format string, args ...any) *AppError {
	return NotFound(fmt.Sprintf(format, args...))
}

func Conflict(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message}
}

func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// IsNotFound reports whether err carries ErrCodeNotFound anywhere in its chain.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsConflict reports whether err carries ErrCodeConflict anywhere in its chain.
func IsConflict(err error) bool { return hasCode(err, ErrCodeConflict) }

// IsValidation reports whether err carries ErrCodeValidation anywhere in its chain.
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

func hasCode(err error, code ErrorCode) bool {
	var app *AppError
	return errors.As(err, &app) && app.Code == code
}
