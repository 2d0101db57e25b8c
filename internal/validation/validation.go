// Package validation holds the error type shared by every example that
// rejects malformed input.
package validation

import (
	"errors"
	"fmt"
)

// Error reports a missing or malformed input field. It is recoverable:
// callers report it to the client and leave state untouched.
type Error struct {
	Field  string
	Reason string
}

// New creates a validation error for field.
func New(field, reason string) *Error {
	return &Error{Field: field, Reason: reason}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// As reports whether err is, or wraps, a validation error.
func As(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
