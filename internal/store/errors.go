package store

import "errors"

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("store: not found")
