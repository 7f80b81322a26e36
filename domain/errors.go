package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
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

// Common domain errors.
var (
	ErrUserNotFound         = NewError(ErrCodeNotFound, "user not found")
	ErrTaskNotFound         = NewError(ErrCodeNotFound, "task not found")
	ErrCategoryNotFound     = NewError(ErrCodeNotFound, "category not found")
	ErrSubscriptionNotFound = NewError(ErrCodeNotFound, "subscription not found")
	ErrSessionNotFound      = NewError(ErrCodeNotFound, "session not found")
	ErrAlreadySubscribed    = NewError(ErrCodeConflict, "user is already subscribed to this task")
	ErrUsernameTaken        = NewError(ErrCodeConflict, "username already exists")
	ErrEmailTaken           = NewError(ErrCodeConflict, "email already exists")
	ErrInvalidCredentials   = NewError(ErrCodeUnauthorized, "invalid credentials")
	ErrUnauthorized         = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload       = NewError(ErrCodeInvalid, "invalid payload")
	ErrInvalidStatus        = NewError(ErrCodeInvalid, "invalid task state value")
)

// Invalid builds an INVALID error with a field-specific message.
func Invalid(message string) *Error {
	return NewError(ErrCodeInvalid, message)
}

// Internal wraps an unexpected failure. The message is safe to show to clients,
// the wrapped error is not.
func Internal(message string, err error) *Error {
	return WrapError(ErrCodeInternal, message, err)
}

// CodeOf returns the code of a domain error, or ErrCodeInternal for anything else.
func CodeOf(err error) ErrorCode {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return ErrCodeInternal
}

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
