package apperror

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation is returned when input is missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a recipe or user id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the actor does not own the resource.
	ErrForbidden = errors.New("not authorized")
	// ErrUnauthenticated is returned when no valid credential was presented.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrUpstream is returned when every AI candidate failed.
	ErrUpstream = errors.New("upstream service unavailable")
)

// Error carries a client-facing message together with its kind.
type Error struct {
	Kind    error
	Message string
	// Detail is the underlying cause reported alongside the message, if any.
	Detail string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Validation creates a validation error with the given message.
func Validation(message string) *Error {
	return &Error{Kind: ErrValidation, Message: message}
}

// NotFound creates a not-found error with the given message.
func NotFound(message string) *Error {
	return &Error{Kind: ErrNotFound, Message: message}
}

// Forbidden creates an authorization error with the given message.
func Forbidden(message string) *Error {
	return &Error{Kind: ErrForbidden, Message: message}
}

// Unauthenticated creates an authentication error with the given message.
func Unauthenticated(message string) *Error {
	return &Error{Kind: ErrUnauthenticated, Message: message}
}

// Upstream creates an upstream error carrying the last failure detail.
func Upstream(message, detail string) *Error {
	return &Error{Kind: ErrUpstream, Message: message, Detail: detail}
}

// ErrorResponse is the JSON body written for failed requests.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// HTTPStatus maps an error to its status code and response body.
// Unclassified errors are reported as a generic server error.
func HTTPStatus(err error) (int, ErrorResponse) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, ErrorResponse{Message: "internal server error"}
	}

	resp := ErrorResponse{Message: appErr.Message, Error: appErr.Detail}
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, resp
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrForbidden):
		return http.StatusUnauthorized, resp
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, resp
	case errors.Is(err, ErrUpstream):
		return http.StatusServiceUnavailable, resp
	default:
		return http.StatusInternalServerError, ErrorResponse{Message: "internal server error"}
	}
}
