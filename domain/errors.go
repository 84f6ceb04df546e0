package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeInvalid          ErrorCode = "INVALID"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal         ErrorCode = "INTERNAL"
	ErrCodeUnavailable      ErrorCode = "UNAVAILABLE"
	ErrCodeInvalidReference ErrorCode = "INVALID_REFERENCE"
	ErrCodeMalformedRecord  ErrorCode = "MALFORMED_RECORD"
	ErrCodeNotInitialized   ErrorCode = "NOT_INITIALIZED"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches domain errors by code so sentinel comparisons survive wrapping.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || e == nil || other == nil {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Unavailable marks a backend failure as retryable storage unavailability.
func Unavailable(component string, err error) *Error {
	return WrapError(ErrCodeUnavailable, component+" unavailable", err)
}

// Common domain errors.
var (
	ErrTaskNotFound     = NewError(ErrCodeNotFound, "task not found")
	ErrReminderNotFound = NewError(ErrCodeNotFound, "reminder not found")
	ErrJobNotFound      = NewError(ErrCodeNotFound, "reminder job not found")
	ErrUnauthorized     = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload   = NewError(ErrCodeInvalid, "invalid payload")
	ErrInvalidReference = NewError(ErrCodeInvalidReference, "invalid notification reference")
	ErrMalformedRecord  = NewError(ErrCodeMalformedRecord, "malformed record")
	ErrNotInitialized   = NewError(ErrCodeNotInitialized, "component not initialized")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
