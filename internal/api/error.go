// Package api defines the JSON response envelope and the typed error taxonomy
// shared by all HTTP handlers.
package api

import (
	"errors"
	"net/http"
)

// Error is a domain error carrying an HTTP status code and an optional
// structured details payload. Services raise it; only the handler boundary
// converts it to a response.
type Error struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// BadRequest returns a 400 error. details may be nil.
func BadRequest(message string, details any) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message, Details: details}
}

// Unauthorized returns a 401 error.
func Unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

// Forbidden returns a 403 error.
func Forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Message: message}
}

// NotFound returns a 404 error.
func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

// Conflict returns a 409 error.
func Conflict(message string) *Error {
	return &Error{Status: http.StatusConflict, Message: message}
}

// Internal returns a 500 error. The message must not contain sensitive
// request data; the underlying cause is logged, not returned.
func Internal(message string) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: message}
}

// AsError returns the *Error inside err, or a generic 500 when err is not
// part of the taxonomy.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal("Internal Server Error")
}
