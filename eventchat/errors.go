package eventchat

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// ErrorConnection means the transport never reached Connected.
	ErrorConnection

	// ErrorAuthRejected means the server refused the bearer credential,
	// either at the handshake or by closing the socket afterwards. Terminal
	// for the room; the user has to re-open it.
	ErrorAuthRejected

	// ErrorNotConnected means a send was attempted outside the Connected
	// state. Recoverable locally; never fatal.
	ErrorNotConnected

	// ErrorMalformedFrame means an inbound frame failed to decode. The frame
	// is dropped and the connection stays open.
	ErrorMalformedFrame

	// ErrorTimeout means the handshake deadline elapsed before the server
	// completed the upgrade.
	ErrorTimeout

	ErrorInvalidConfig

	// ErrorClosed means the session was explicitly closed; unlike
	// ErrorNotConnected there is nothing to wait for.
	ErrorClosed
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorConnection:
		return "connection_error"
	case ErrorAuthRejected:
		return "auth_rejected"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorMalformedFrame:
		return "malformed_frame"
	case ErrorTimeout:
		return "timeout"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ChatError is a structured error with code and context.
type ChatError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *ChatError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface for error comparison.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new ChatError with the given code and message.
func NewError(code ErrorCode, message string) *ChatError {
	return &ChatError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with a ChatError.
func WrapError(code ErrorCode, message string, err error) *ChatError {
	return &ChatError{
		Code:    code,
		Message: message,
		Wrapped: err,
	}
}

// ErrNotConnected is returned by send paths outside the Connected state.
// Callers typically react by disabling the composer, not by failing.
var ErrNotConnected = NewError(ErrorNotConnected, "session is not connected")

// ErrClosed is returned by send paths after an explicit Close.
var ErrClosed = NewError(ErrorClosed, "session is closed")

// IsAuthRejected checks whether an error means the credential was refused.
func IsAuthRejected(err error) bool {
	return hasCode(err, ErrorAuthRejected)
}

// IsConnectionError checks if an error is a connection-related error.
func IsConnectionError(err error) bool {
	return hasCode(err, ErrorConnection) || hasCode(err, ErrorTimeout)
}

func hasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	var ce *ChatError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == code
}
