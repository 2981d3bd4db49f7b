// Package apperr carries HTTP-aware errors from handlers, guards and services
// to the error responders in the middleware package.
package apperr

import (
	"errors"
	"net/http"
)

// Error is an error with an HTTP status. Details, when present, replace the
// message in response bodies (validation failures report every message).
type Error struct {
	Status  int
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Body returns what should be rendered as the "message" field.
func (e *Error) Body() any {
	if len(e.Details) > 0 {
		return e.Details
	}
	return e.Message
}

func New(status int, msg string) *Error {
	return &Error{Status: status, Message: msg}
}

func BadRequest(msg string, details ...string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg, Details: details}
}

func Unauthorized(msg string) *Error { return New(http.StatusUnauthorized, msg) }
func Forbidden(msg string) *Error { return New(http.StatusForbidden, msg) }
func NotFound(msg string) *Error { return New(http.StatusNotFound, msg) }
func Conflict(msg string) *Error { return New(http.StatusConflict, msg) }
func TooManyRequests(msg string) *Error { return New(http.StatusTooManyRequests, msg) }

// Internal wraps an unexpected failure. The cause is logged, never rendered.
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: "Internal server error", Err: err}
}

// Unavailable reports a dependency that cannot be reached.
func Unavailable(msg string, err error) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Message: msg, Err: err}
}

// From converts any error into an *Error, defaulting to Internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// StatusOf returns the HTTP status that err maps to.
func StatusOf(err error) int {
	return From(err).Status
}
