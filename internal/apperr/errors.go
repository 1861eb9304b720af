// Package apperr holds the error categories shared by the service layer and
// the HTTP handlers. Concrete errors wrap one of these sentinels.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates missing or malformed input rejected before persistence.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized indicates a missing, invalid or expired credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound covers both absent entries and entries owned by someone else.
	ErrNotFound = errors.New("entry not found")
)

// Error is a client-facing message tagged with one of the categories above.
// Error() returns only the message; errors.Is matches the category.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// New returns an *Error of the given kind.
func New(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Validation returns an ErrValidation error with a formatted message.
func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}
