package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the class of failure inside a run
type ErrorType string

const (
	ErrorTypeSession     ErrorType = "session"
	ErrorTypeExtraction  ErrorType = "extraction"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeDownload    ErrorType = "download"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeInterrupted ErrorType = "interrupted"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error carries a type alongside the wrapped cause
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same type, so sentinels compare by class
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// New creates a typed error
func New(errType ErrorType, msg string, err error) *Error {
	return &Error{Type: errType, Message: msg, Err: err}
}

var (
	// ErrNoValidURLs ends a run before any download is attempted
	ErrNoValidURLs = &Error{Type: ErrorTypeValidation, Message: "no valid item URLs found"}
	// ErrInterrupted marks a user-requested early exit
	ErrInterrupted = &Error{Type: ErrorTypeInterrupted, Message: "interrupted by user"}
	// ErrSessionUnavailable is returned when no rendering session can be acquired
	ErrSessionUnavailable = &Error{Type: ErrorTypeSession, Message: "browser session unavailable"}
)

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsFatal reports whether an error of this type must end the run
func IsFatal(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeSession, ErrorTypeConfig, ErrorTypeUnknown:
		return true
	case ErrorTypeExtraction, ErrorTypeDownload, ErrorTypeTimeout:
		return false
	case ErrorTypeValidation, ErrorTypeInterrupted:
		// terminal for the run, but not a crash
		return false
	default:
		return true
	}
}
