// Package apperr defines the error taxonomy shared by all domain services.
// Services return a typed *Error; the HTTP layer maps the kind to a status
// code and a stable message without leaking storage internals.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota
	KindUnauthorized
	KindNotFound
	KindForbidden
	KindConflict
	KindDuplicateReview
	KindAlreadyClaimed
	KindAlreadyOwner
	KindInvalidTransition
	KindBookingDisabled
	KindInternal
)

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

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func DuplicateReview() *Error {
	return &Error{Kind: KindDuplicateReview, Message: "you have already reviewed this facility"}
}

func AlreadyClaimed() *Error {
	return &Error{Kind: KindAlreadyClaimed, Message: "facility already has an owner"}
}

func AlreadyOwner() *Error {
	return &Error{Kind: KindAlreadyOwner, Message: "you are already registered as an owner"}
}

func InvalidTransition(from, to string) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf("cannot change status from %s to %s", from, to)}
}

func BookingDisabled() *Error {
	return &Error{Kind: KindBookingDisabled, Message: "appointments are currently disabled for this facility"}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// Status maps an error kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindBookingDisabled:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict, KindDuplicateReview, KindAlreadyClaimed, KindAlreadyOwner, KindInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// As unwraps err to a typed *Error, or nil when it is not one.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

func IsKind(err error, k Kind) bool {
	e := As(err)
	return e != nil && e.Kind == k
}
