package storage

import "errors"

// Predefined errors shared by all adapter implementations.
var (
	// ErrNotFound indicates that the requested memory does not exist.
	ErrNotFound = errors.New("memory not found")

	// ErrStorageFailure indicates a backend failure: serialization error,
	// non-success network status, or parse failure.
	ErrStorageFailure = errors.New("storage operation failed")

	// ErrTimeout indicates that a remote request exceeded its configured
	// timeout.
	ErrTimeout = errors.New("storage request timed out")
)
