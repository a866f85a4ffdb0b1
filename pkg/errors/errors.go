// Package errors defines the typed error values the API surfaces to clients.
// Handlers map an *Error straight onto the response envelope using its Code
// and Status, so every failure path in the services funnels through here.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error carries a stable machine code, a client-facing message and the HTTP
// status the handler layer should respond with. The wrapped cause never
// reaches the wire.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds an Error without an underlying cause.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap builds an Error around a cause so errors.Is/As keep working on it.
func Wrap(err error, code string, status int, message string) *Error {
	e := New(code, status, message)
	e.Err = err
	return e
}

// Clone copies err, optionally overriding the message. Sentinels below are
// shared values, so callers must clone before customising them.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	out := *err
	if message != "" {
		out.Message = message
	}
	return &out
}

// FromError coerces an arbitrary error into an *Error, defaulting unknown
// failures to ErrInternal so nothing leaks raw driver messages.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Sentinel errors, grouped by concern.
var (
	// Authentication and account state.
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrPendingApproval    = New("PENDING_APPROVAL", http.StatusForbidden, "account awaiting admin approval")

	// Generic request outcomes.
	ErrNotFound   = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict   = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal   = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// Training domain.
	ErrDateOutOfWindow = New("DATE_OUT_OF_WINDOW", http.StatusBadRequest, "dates fall outside the training window")
	ErrAlreadyEnrolled = New("ALREADY_ENROLLED", http.StatusConflict, "already enrolled in course")
	ErrAmbiguousMatch  = New("AMBIGUOUS_MATCH", http.StatusConflict, "multiple users share this name")

	// Infrastructure.
	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)
