// Package apperr defines the error taxonomy shared by the stores,
// policies, and HTTP handlers.
//
// Every operation failure maps to exactly one kind, and each kind maps
// to one HTTP status. Stores and policies return these errors; handlers
// translate them with WriteError and never invent their own statuses.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an operation failure.
type Kind int

const (
	// KindValidation: malformed or missing input; caller-fixable. 400.
	KindValidation Kind = iota
	// KindUnauthorized: no authenticated caller. 401.
	KindUnauthorized
	// KindForbidden: caller lacks the required role or relationship. 403.
	KindForbidden
	// KindNotFound: a referenced aggregate does not exist. 404.
	KindNotFound
	// KindConflict: the operation would violate a relationship
	// invariant (already friends, already a member, duplicate name). 400.
	KindConflict
	// KindTransient: transaction conflict or store unavailability.
	// Retry is the caller's responsibility. 500.
	KindTransient
)

// Error carries a kind, a caller-facing message, and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a KindValidation error.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

// Forbidden builds a KindForbidden error.
func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Conflict builds a KindConflict error.
func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Transient wraps a store/transaction failure.
func Transient(err error) error {
	return &Error{Kind: KindTransient, Msg: "store operation failed", Err: err}
}

// KindOf returns the kind of err, or KindTransient for unclassified
// errors (unknown failures are treated as retryable store trouble).
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindTransient
}

// Is reports whether err is an apperr of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// HTTPStatus maps an error to its response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteError writes err as a JSON error response. Internal causes are
// not leaked for transient failures; the caller-facing message is the
// generic one.
func WriteError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "an unexpected error occurred"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Success: false, Error: msg})
}

// WriteJSON writes a success envelope with the given payload.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Success bool `json:"success"`
		Data    any  `json:"data,omitempty"`
	}{Success: true, Data: data})
}
