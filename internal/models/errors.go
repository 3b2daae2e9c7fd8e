package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by repositories, services and the HTTP boundary.
// ErrNotFound deliberately covers both "row absent" and "row belongs to a
// different company" so tenant ids cannot be probed.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrValidation         = errors.New("validation error")
)

// Errorf wraps one of the sentinel errors with detail while keeping it
// matchable via errors.Is.
func Errorf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
