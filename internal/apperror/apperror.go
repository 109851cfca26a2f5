// Package apperror defines the error taxonomy shared by every service
// operation. Each error carries a kind that maps to an HTTP status so
// handlers can translate failures uniformly. All of these errors abort
// the enclosing store transaction; partial writes never persist.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure detected by a service operation.
type Kind int

const (
	// Internal is the fallback for unexpected failures.
	Internal Kind = iota
	// NotFound means an entity id could not be resolved.
	NotFound
	// Conflict means a uniqueness or constraint violation (duplicate
	// slot for date+hour+name, duplicate monthly batch, member already
	// on the roster).
	Conflict
	// InvalidState means the operation is disallowed in the entity's
	// current state, such as joining an expired slot.
	InvalidState
	// CapacityExceeded means the roster would go over maxOccupants.
	CapacityExceeded
	// InsufficientFunds means the projected balance would go negative.
	InsufficientFunds
	// Unauthorized means a non-admin attempted an admin-only action.
	Unauthorized
	// Validation means malformed or missing input.
	Validation
)

// Error is the concrete error type returned by services.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a kinded error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from err, or Internal when err is not an
// apperror.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

// Status maps an error to the HTTP status handlers should respond with.
func Status(err error) int {
	switch KindOf(err) {
	case NotFound:
		return http.StatusNotFound
	case Conflict, InvalidState, CapacityExceeded:
		return http.StatusConflict
	case InsufficientFunds, Validation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
