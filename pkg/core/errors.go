package core

import (
	"errors"
	"fmt"

	"github.com/schoolhub/memorybank/pkg/storage"
)

// Predefined errors for common failure scenarios. The storage sentinels
// are re-exported here so callers only need to import core.
var (
	// ErrNotFound indicates that an update or delete target is absent.
	ErrNotFound = storage.ErrNotFound

	// ErrStorageFailure indicates a backend failure: serialization error,
	// non-success network status, or parse failure.
	ErrStorageFailure = storage.ErrStorageFailure

	// ErrTimeout indicates that a remote request exceeded its configured
	// duration.
	ErrTimeout = storage.ErrTimeout

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidType indicates a memory type outside the closed enumeration.
	ErrInvalidType = errors.New("unknown memory type")

	// ErrValidation indicates a malformed record or an unparsable import
	// payload.
	ErrValidation = errors.New("invalid memory record")
)

// BankError wraps errors with operation context.
//
// It records which operation failed, making error messages more
// informative for debugging:
//
//	err := &BankError{Op: "AddMemory", Err: ErrStorageFailure}
//	// Error() returns: "memorybank: AddMemory: storage operation failed"
type BankError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
func (e *BankError) Error() string {
	return fmt.Sprintf("memorybank: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error, enabling errors.Is and errors.As.
func (e *BankError) Unwrap() error {
	return e.Err
}

// NewBankError creates a BankError wrapping the given error. If err is
// nil, returns nil, allowing unconditional wrapping at return sites.
func NewBankError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BankError{
		Op:  op,
		Err: err,
	}
}
