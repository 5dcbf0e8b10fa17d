package database

import (
	"context"
	"errors"

	"github.com/koustreak/dbstream/internal/errs"
)

// Constructor helpers shared by the backends. Each backend maps its native
// error codes first and falls back to these for everything it cannot name.

// ErrConnection wraps a failure to reach, open or keep a session.
func ErrConnection(msg string, cause error) *errs.Error {
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, cause)
}

// ErrQuery wraps a prepare, execute or fetch failure.
func ErrQuery(msg string, cause error) *errs.Error {
	return errs.Wrap(errs.ErrKindQueryFailed, msg, cause)
}

// ErrTimeout wraps a deadline or cancellation.
func ErrTimeout(msg string, cause error) *errs.Error {
	return errs.Wrap(errs.ErrKindTimeout, msg, cause)
}

// ErrPermission wraps an access or authentication refusal.
func ErrPermission(msg string, cause error) *errs.Error {
	return errs.Wrap(errs.ErrKindPermissionDenied, msg, cause)
}

// IsContextErr reports whether err came from a cancelled or expired context.
func IsContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
