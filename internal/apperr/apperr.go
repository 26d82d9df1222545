// Package apperr defines the error taxonomy shared by the workflow engine
// and the HTTP layer. Handlers map these to status codes in one place.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated means no valid session was presented.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the actor is authenticated but lacks the role or
	// ownership the action requires.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError identifies the first violated input constraint.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError marks an absent ticket/user/attachment.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func NotFound(entity string) error { return &NotFoundError{Entity: entity} }

// LimitExceededError marks attachment count/size violations. The whole batch
// is rejected; nothing is persisted.
type LimitExceededError struct {
	Reason string
}

func (e *LimitExceededError) Error() string { return e.Reason }

func LimitExceeded(reason string) error { return &LimitExceededError{Reason: reason} }

// HTTPStatus maps an error to the response code per the API contract.
// Anything unrecognized is a storage/internal failure and stays generic.
func HTTPStatus(err error) int {
	var ve *ValidationError
	var nf *NotFoundError
	var le *LimitExceededError
	switch {
	case errors.As(err, &ve), errors.As(err, &le):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &nf):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message. Internal failures are not leaked.
func Message(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
