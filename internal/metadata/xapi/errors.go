package xapi

import (
	"errors"
	"fmt"
)

// Sentinel errors for user lookups.
var (
	ErrNotFound        = errors.New("xapi: user not found")
	ErrRateLimited     = errors.New("xapi: rate limited by server")
	ErrUnauthorized    = errors.New("xapi: bearer token rejected")
	ErrLookupFailed    = errors.New("xapi: lookup failed")
	ErrNotConfigured   = errors.New("xapi: bearer token not configured")
	ErrInvalidUsername = errors.New("xapi: empty username")
)

// StatusError is a non-2xx response not covered by a more specific sentinel.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("xapi: unexpected status %d: %s", e.Code, e.Body)
}

// Unwrap lets callers match any unexpected status with ErrLookupFailed.
func (e *StatusError) Unwrap() error {
	return ErrLookupFailed
}

// Error wraps an underlying error with operation context.
type Error struct {
	Op       string // Operation: "lookup", "resolve"
	Username string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("xapi %s [%s]: %v", e.Op, e.Username, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, username string, err error) error {
	return &Error{Op: op, Username: username, Err: err}
}
