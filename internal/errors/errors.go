// Package errors defines the typed failures the client surfaces:
// input/format errors, transport errors, protocol errors, and
// cryptographic errors. Protocol errors from misbehaving relays are
// recovered locally and never abort multi-relay operations; the other
// classes are always returned to the caller.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an error for callers that branch on class
// rather than code.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeCrypto     ErrorType = "crypto"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeProtocol   ErrorType = "protocol"
	ErrorTypeTimeout    ErrorType = "timeout"
)

// AppError is the concrete error type carried across package
// boundaries. Code is stable and machine-checkable; Message is for
// humans.
type AppError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches two AppErrors by code, so sentinel constructors work with
// errors.Is.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// New creates an AppError without a cause.
func New(t ErrorType, code, message string) *AppError {
	return &AppError{Type: t, Code: code, Message: message}
}

// Wrap creates an AppError around a cause.
func Wrap(cause error, t ErrorType, code, message string) *AppError {
	return &AppError{Type: t, Code: code, Message: message, Cause: cause}
}
