package webutil

import (
	"errors"
	"net/http"
)

const (
	msgBadRequest      = "Bad Request"
	msgNotFound        = "Resource not found"
	msgInternalServer  = "Internal Server Error"
	msgUnauthorized    = "Unauthorized"
	msgForbidden       = "Forbidden"
	msgTooManyRequests = "Too Many Requests"
)

// HTTPError is an error carrying the status code and the message the client
// sees. The cause, if any, is only logged.
type HTTPError struct {
	cause   error
	Code    int
	Message string
}

func (he HTTPError) Error() string {
	return he.Message
}

func (he HTTPError) Unwrap() error {
	return he.cause
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

// NewHTTPError creates an HTTPError with no underlying cause.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		cause:   errors.New(message),
		Code:    code,
		Message: message,
	}
}

// NewHTTPErrorWrap creates an HTTPError that keeps cause for logging while
// exposing only message to the client.
func NewHTTPErrorWrap(code int, message string, cause error) *HTTPError {
	return &HTTPError{
		cause:   cause,
		Code:    code,
		Message: message,
	}
}

func ErrBadRequest(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, messageOr(message, msgBadRequest))
}

func ErrBadRequestWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusBadRequest, messageOr(message, msgBadRequest), cause)
}

func ErrNotFound(message string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, messageOr(message, msgNotFound))
}

func ErrUnauthorized(message string) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, messageOr(message, msgUnauthorized))
}

func ErrForbidden(message string) *HTTPError {
	return NewHTTPError(http.StatusForbidden, messageOr(message, msgForbidden))
}

func ErrTooManyRequestsWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusTooManyRequests, messageOr(message, msgTooManyRequests), cause)
}

// ErrInternalServerWrap hides cause behind message, which defaults to the
// generic internal error text.
func ErrInternalServerWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusInternalServerError, messageOr(message, msgInternalServer), cause)
}
