// Package apperr is the error vocabulary services speak. Services
// return kinds, the HTTP layer maps kinds to status codes, and nothing
// in between inspects error strings.
package apperr

import (
	"fmt"
	"net/http"
)

// Kind categorizes an error for transport mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	// KindConflict covers duplicates and busy coordinators.
	KindConflict
	KindForbidden
	KindUnauthorized
	KindBadRequest
	KindInternal
)

// Error is a kinded domain error.
type Error struct {
	Kind    Kind
	Message string
	Op      string      // failing operation, optional
	Err     error       // wrapped cause, optional
	Details interface{} // extra payload for the response, optional
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the kind to a status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New builds an error from a kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a kinded error around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetails attaches a response payload and returns the error.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Constructors per kind.

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

func Internal(message string) *Error {
	return New(KindInternal, message)
}

// GetKind reports the error's kind, KindUnknown for untyped errors.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
