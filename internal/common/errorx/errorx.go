package errorx

import (
	"errors"
	"fmt"
)

// Category classifies errors surfaced by the session, gateway and realtime layers.
type Category string

const (
	CategoryNetwork    Category = "network"
	CategoryAuth       Category = "auth"
	CategoryProtocol   Category = "protocol"
	CategoryExhausted  Category = "connection_exhausted"
	CategoryValidation Category = "validation"
)

// Error is a categorized error. Detail carries server-provided context when
// the error originates from an HTTP response.
type Error struct {
	Category Category
	Message  string
	Detail   string
	Err      error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Category, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewNetworkError wraps a transport failure. Retryable by the caller.
func NewNetworkError(message string, err error) *Error {
	return &Error{Category: CategoryNetwork, Message: message, Err: err}
}

// NewAuthError reports an explicit credential rejection. Not retryable
// without re-login.
func NewAuthError(message, detail string) *Error {
	return &Error{Category: CategoryAuth, Message: message, Detail: detail}
}

// NewProtocolError reports a malformed inbound frame.
func NewProtocolError(message string, err error) *Error {
	return &Error{Category: CategoryProtocol, Message: message, Err: err}
}

// NewValidationError reports caller-supplied bad input, rejected synchronously.
func NewValidationError(message string) *Error {
	return &Error{Category: CategoryValidation, Message: message}
}

// ErrConnectionExhausted is returned after reconnection attempts are
// exhausted. Terminal until an explicit Connect.
var ErrConnectionExhausted = &Error{
	Category: CategoryExhausted,
	Message:  "reconnection attempts exhausted",
}

// Is reports whether err carries the given category.
func Is(err error, c Category) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == c
	}
	return false
}

// IsAuth reports whether err is an explicit credential rejection.
func IsAuth(err error) bool { return Is(err, CategoryAuth) }

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool { return Is(err, CategoryNetwork) }
