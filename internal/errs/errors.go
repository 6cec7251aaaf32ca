package errs

import (
	"errors"
	"fmt"
)

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	// ErrUnprocessable is used for semantic validation failures (HTTP 422)
	ErrUnprocessable = errors.New("unprocessable")
	// ErrImmutable indicates an attempt to change immutable fields
	ErrImmutable = errors.New("immutable")
	// ErrConsistency marks a cross-entity link that crosses users, or a unit of work
	// that could not commit as a whole. Nothing is persisted when it is returned.
	ErrConsistency = errors.New("consistency")
)

// FieldError carries the offending field of a validation failure. It matches ErrInvalid.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Msg }

func (e *FieldError) Is(target error) bool { return target == ErrInvalid }

// Field builds a FieldError.
func Field(field, msg string) error { return &FieldError{Field: field, Msg: msg} }

// Consistency wraps ErrConsistency with a description of the violated link.
func Consistency(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConsistency, fmt.Sprintf(format, args...))
}

// Conflict wraps ErrConflict with detail.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound naming what was looked up.
func NotFound(what string) error { return fmt.Errorf("%w: %s", ErrNotFound, what) }
