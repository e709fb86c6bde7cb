// Package storage provides the adapter contract and shared types for
// memory persistence backends.
//
// It defines the Adapter interface that all storage implementations must
// satisfy, along with the stored record type, query semantics, and pure
// helpers for in-memory filtering and sorting.
package storage

import (
	"context"
	"time"
)

// Memory represents a memory record as seen by a storage backend.
//
// This type is defined in the storage package to avoid circular dependencies
// with the core package. It mirrors the core.Memory structure with the
// memory type flattened to a plain string.
type Memory struct {
	// ID is the unique identifier of the memory. Immutable.
	ID string `json:"id"`

	// Content is the text body of the memory.
	Content string `json:"content"`

	// Type is the memory classification (conversation, fact, preference,
	// context, system).
	Type string `json:"type"`

	// Timestamp is when the memory was created. Immutable.
	// Serialized as RFC 3339 text by the standard JSON encoding.
	Timestamp time.Time `json:"timestamp"`

	// Metadata contains caller-supplied attributes.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Importance is the retention priority in [0.0, 1.0].
	Importance float64 `json:"importance"`

	// AccessCount is how many times the memory was retrieved by id.
	AccessCount int `json:"access_count"`

	// LastAccessed is when the memory was last retrieved (nil if never).
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
}

// Query describes a filter over stored memories.
//
// All fields are optional and combine with AND semantics across fields.
// Multi-valued fields (Keywords) match with OR semantics within the field.
type Query struct {
	// Type requires an exact match on the memory type.
	Type string

	// MinImportance is an inclusive lower bound on importance.
	MinImportance float64

	// Keywords matches memories whose content contains ANY of the given
	// substrings, case-insensitively.
	Keywords []string

	// DateRange bounds the creation timestamp, inclusive on both ends.
	DateRange *DateRange

	// Metadata requires an exact key-to-value match for every listed key.
	Metadata map[string]string

	// Limit caps the number of results, applied after sorting.
	Limit int
}

// DateRange is an inclusive timestamp interval.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Patch carries a partial update for a stored memory.
//
// Nil fields are preserved; the record's ID and Timestamp are never
// modified by a patch.
type Patch struct {
	Content      *string
	Type         *string
	Metadata     map[string]string
	Importance   *float64
	AccessCount  *int
	LastAccessed *time.Time
}

// Adapter defines the capability contract for memory persistence backends.
//
// All implementations (local SQLite, remote HTTP, PostgreSQL) must satisfy
// this interface. Every operation suspends on I/O and honors context
// cancellation.
type Adapter interface {
	// Store upserts a memory by id, overwriting any existing record.
	Store(ctx context.Context, memory *Memory) error

	// Retrieve returns the memory with the given id, or ErrNotFound.
	// Absence is a normal outcome, not a backend failure.
	Retrieve(ctx context.Context, id string) (*Memory, error)

	// Search returns all memories matching the query, pre-sorted by
	// priority (see SortByPriority) and capped at query.Limit if given.
	Search(ctx context.Context, query *Query) ([]*Memory, error)

	// Update merges the patch into the record with the given id,
	// preserving the record's id and original timestamp.
	// Returns ErrNotFound if the id is absent.
	Update(ctx context.Context, id string, patch *Patch) (*Memory, error)

	// Delete removes the record with the given id.
	// Returns ErrNotFound if the id is absent.
	Delete(ctx context.Context, id string) error

	// GetAll returns the full collection.
	GetAll(ctx context.Context) ([]*Memory, error)

	// Clear wipes the full collection.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Sizer is an optional capability for adapters that can report the
// approximate byte size of their backing store.
type Sizer interface {
	StorageSize(ctx context.Context) (int64, error)
}
