package models

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrInvalidQuery ErrorType = iota
	ErrUnsupportedPlatform
	ErrNotFound
	ErrBackend
	ErrManifest
	ErrInvalidConfig
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrInvalidQuery:
		return "InvalidQuery"
	case ErrUnsupportedPlatform:
		return "UnsupportedPlatform"
	case ErrNotFound:
		return "NotFound"
	case ErrBackend:
		return "BackendFailure"
	case ErrManifest:
		return "Manifest"
	case ErrInvalidConfig:
		return "InvalidConfig"
	default:
		return "Unknown"
	}
}

// Error represents a categorized failure inside relserve
type Error struct {
	Type    ErrorType
	Subject string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Subject, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a categorized error with a formatted message.
func NewError(t ErrorType, subject string, format string, args ...any) *Error {
	return &Error{Type: t, Subject: subject, Err: fmt.Errorf(format, args...)}
}

// WrapError categorizes err. A nil err stays nil.
func WrapError(t ErrorType, subject string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Type: t, Subject: subject, Err: err}
}

// IsType reports whether any error in err's chain is an *Error of type t.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// TypeOf returns the category of err and whether it carried one.
func TypeOf(err error) (ErrorType, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Type, true
	}
	return 0, false
}
