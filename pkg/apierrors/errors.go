// Package apierrors defines the error kinds raised by the message model, streams,
// transports and the API client. Every kind matches its sentinel through errors.Is
// and can be extracted with errors.As.
package apierrors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument matches every *InvalidArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStream matches every *StreamError.
	ErrStream = errors.New("stream error")
	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("transport error")
	// ErrClient matches every *ClientError.
	ErrClient = errors.New("client error")
)

// InvalidArgumentError reports a malformed value passed to a constructor or mutator.
// The value being built is never partially updated.
type InvalidArgumentError struct {
	Message string
}

// InvalidArgument formats a new *InvalidArgumentError.
func InvalidArgument(format string, args ...any) *InvalidArgumentError {
	return &InvalidArgumentError{Message: fmt.Sprintf(format, args...)}
}

func (e *InvalidArgumentError) Error() string { return e.Message }

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// StreamError reports an operation on a detached stream, an operation the
// attached mode does not allow, or a failure of the underlying handle.
type StreamError struct {
	Message string
	Err     error
}

// Stream builds a *StreamError without an underlying cause.
func Stream(message string) *StreamError {
	return &StreamError{Message: message}
}

// StreamCause builds a *StreamError wrapping the handle failure.
func StreamCause(message string, err error) *StreamError {
	return &StreamError{Message: message, Err: err}
}

func (e *StreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *StreamError) Unwrap() error { return e.Err }

func (e *StreamError) Is(target error) bool { return target == ErrStream }

// TransportError reports an unsupported method or a failed engine execution.
// Code carries the engine's numeric error code, zero when the failure happened
// before the engine ran.
type TransportError struct {
	Message string
	Code    int
	Err     error
}

// Transport formats a *TransportError that did not come from the engine.
func Transport(format string, args ...any) *TransportError {
	return &TransportError{Message: fmt.Sprintf(format, args...)}
}

// TransportCode builds a *TransportError for an engine failure.
func TransportCode(message string, code int, err error) *TransportError {
	return &TransportError{Message: message, Code: code, Err: err}
}

func (e *TransportError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (errno: %d)", e.Message, e.Code)
	}
	return e.Message
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ClientError reports an API-level failure surfaced by the API client, such as
// an unauthorized response.
type ClientError struct {
	Message    string
	StatusCode int
}

// Client builds a *ClientError for the given response status.
func Client(statusCode int, message string) *ClientError {
	return &ClientError{Message: message, StatusCode: statusCode}
}

func (e *ClientError) Error() string { return e.Message }

func (e *ClientError) Is(target error) bool { return target == ErrClient }
