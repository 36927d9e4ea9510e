package storage

import "errors"

var (
	// ErrNotFound is returned for a counter that was never incremented.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a request log row for the same
	// (kind, request id) already exists. Request logs are append-only.
	ErrDuplicateKey = errors.New("duplicate request log key")

	// ErrInvalidInput is returned when a row or key fails validation.
	ErrInvalidInput = errors.New("invalid input")
)
