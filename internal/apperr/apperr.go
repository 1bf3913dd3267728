// Package apperr defines the error kinds the service exposes over HTTP and
// the mapping from kinds to status codes and response bodies.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindUnauthorized
	KindNotFound
	KindTooManyRequests
	KindServiceUnavailable
	KindInternal
)

// scrubbedMessage replaces internal error details in responses. The raw
// cause goes to the log only.
const scrubbedMessage = "An unexpected error occurred"

// Error is a typed application error carrying a caller-visible message and
// an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to expose to callers. Internal
// errors are scrubbed.
func (e *Error) PublicMessage() string {
	if e.Kind == KindInternal {
		return scrubbedMessage
	}
	return e.Message
}

// BadRequest builds a caller-visible validation error.
func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

// Unauthorized builds an authentication failure error.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// NotFound builds a resource-absent error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// TooManyRequests builds a rate-limit or attempt-cap error.
func TooManyRequests(message string) *Error {
	return &Error{Kind: KindTooManyRequests, Message: message}
}

// ServiceUnavailable builds an external-dependency failure error.
func ServiceUnavailable(message string) *Error {
	return &Error{Kind: KindServiceUnavailable, Message: message}
}

// Internal wraps an unexpected failure. The message and cause are logged;
// callers only ever see the scrubbed message.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// As unwraps err into an *Error if possible.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
