// Package apperrors defines the error kinds shared across the domain and
// infrastructure layers. Callers classify failures with errors.Is against the
// exported sentinels; messages carry the detail.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvariantViolation = errors.New("invariant violation")
)

// Error is a message tagged with one of the kinds above.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.kind
}

// Kind returns the sentinel this error was created with.
func (e *Error) Kind() error {
	return e.kind
}

func New(kind error, msg string) error {
	return &Error{kind: kind, msg: msg}
}

func Newf(kind error, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return Newf(ErrNotFound, format, args...)
}

func Conflict(format string, args ...any) error {
	return Newf(ErrConflict, format, args...)
}

func InvalidArgument(format string, args ...any) error {
	return Newf(ErrInvalidArgument, format, args...)
}

func InvariantViolation(format string, args ...any) error {
	return Newf(ErrInvariantViolation, format, args...)
}
