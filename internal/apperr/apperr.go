// Package apperr defines the user-facing error type shared across codetime
package apperr

import (
	"errors"
	"fmt"
)

// Error represents an error that is safe to display to the user. Message may
// contain fmt verbs which are filled in through Fmt.
type Error struct {
	Cause   error
	Message string
	tmpl    string
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}

	return e.Message + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same message template, so that
// errors derived through Fmt or Wrap still match their sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Message == e.Message || t.Message == e.template()
}

// Fmt returns a copy of the error with its message formatted with args.
func (e *Error) Fmt(args ...any) *Error {
	return &Error{
		Message: fmt.Sprintf(e.Message, args...),
		Cause:   e.Cause,
		tmpl:    e.Message,
	}
}

// Wrap returns a copy of the error that wraps err.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		Message: e.Message,
		Cause:   err,
		tmpl:    e.tmpl,
	}
}

func (e *Error) template() string {
	if e.tmpl == "" {
		return e.Message
	}

	return e.tmpl
}
