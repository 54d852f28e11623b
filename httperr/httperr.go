// Package httperr defines relay's tagged error catalog: a single
// "response error" shape carrying a status and a message, plus the
// constructors the router, chain engine, and acceptor raise by name.
package httperr

import "net/http"

// Error is the one error shape the core ever raises: a status code paired
// with a user-facing message. Middleware and handlers may also construct
// one directly to drive the configured error handler.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// New constructs an Error with the given status and message.
func New(status int, message string) *Error { return &Error{Status: status, Message: message} }

// NotFound builds the 404 error lookup raises when no endpoint node
// matches.
func NotFound(message string) *Error { return New(http.StatusNotFound, message) }

// MethodNotAllowed builds the 405 error lookup raises when an endpoint
// node exists but has no handler registered for the requested method.
func MethodNotAllowed(message string) *Error { return New(http.StatusMethodNotAllowed, message) }

// BadRequest builds a 400 error, typically raised by a body-decoding
// middleware.
func BadRequest(message string) *Error { return New(http.StatusBadRequest, message) }

// UnsupportedMediaType builds a 415 error, typically raised by a
// content-type-checking decoding middleware.
func UnsupportedMediaType(message string) *Error {
	return New(http.StatusUnsupportedMediaType, message)
}

// Unauthorized builds a 401 error for user-raised authentication failures.
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }

// Forbidden builds a 403 error for user-raised authorization failures.
func Forbidden(message string) *Error { return New(http.StatusForbidden, message) }

// Conflict builds a 409 error for user-raised resource conflicts.
func Conflict(message string) *Error { return New(http.StatusConflict, message) }

// Internal builds a 500 error for uncaught programmer errors, including
// recovered panics.
func Internal(message string) *Error { return New(http.StatusInternalServerError, message) }

// NotFoundf formats the "Cannot {METHOD} {path}" message used verbatim for
// both not-found and method-not-allowed lookup failures.
func NotFoundf(method, path string) *Error {
	return NotFound("Cannot " + method + " " + path)
}

// MethodNotAllowedf mirrors NotFoundf for the 405 case.
func MethodNotAllowedf(method, path string) *Error {
	return MethodNotAllowed("Cannot " + method + " " + path)
}
