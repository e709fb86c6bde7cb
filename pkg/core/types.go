// Package core provides the memory bank engine: the Memory entity, the
// Service business logic, and the Bank facade with event notification and
// scheduled cleanup.
package core

import "time"

// MemoryType classifies a memory. The enumeration is closed; Valid reports
// membership.
type MemoryType string

const (
	// TypeConversation marks a memory captured from a dialog exchange.
	TypeConversation MemoryType = "conversation"

	// TypeFact marks a standalone factual statement.
	TypeFact MemoryType = "fact"

	// TypePreference marks a user preference.
	TypePreference MemoryType = "preference"

	// TypeContext marks ambient context about the current situation.
	TypeContext MemoryType = "context"

	// TypeSystem marks an engine-internal memory.
	TypeSystem MemoryType = "system"
)

// Valid reports whether t is a member of the closed type enumeration.
func (t MemoryType) Valid() bool {
	switch t {
	case TypeConversation, TypeFact, TypePreference, TypeContext, TypeSystem:
		return true
	}
	return false
}

// Memory is one stored text record with importance, access tracking, and
// classification type.
//
// Example:
//
//	memory := &core.Memory{
//	    ID:         "1234567890",
//	    Content:    "Student prefers morning study sessions",
//	    Type:       core.TypePreference,
//	    Importance: 0.7,
//	}
type Memory struct {
	// ID is the unique opaque identifier, assigned at creation. Immutable.
	ID string `json:"id"`

	// Content is the text body of the memory.
	Content string `json:"content"`

	// Type is the memory classification.
	Type MemoryType `json:"type"`

	// Timestamp is the creation time. Immutable.
	Timestamp time.Time `json:"timestamp"`

	// Metadata contains optional caller-supplied attributes.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Importance is the retention priority in [0.0, 1.0].
	Importance float64 `json:"importance"`

	// AccessCount is incremented each time the memory is retrieved by id.
	AccessCount int `json:"access_count"`

	// LastAccessed is set whenever AccessCount increments (nil if never).
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
}

// Query is the filter/sort/limit specification used by SearchMemories.
//
// All fields are optional and combine with AND semantics across fields;
// Keywords matches with OR semantics within the field.
type Query struct {
	// Type requires an exact match on the memory type.
	Type MemoryType

	// MinImportance is an inclusive lower bound on importance.
	MinImportance float64

	// Keywords matches memories whose content contains any one of the
	// given substrings, case-insensitively.
	Keywords []string

	// DateRange bounds the creation timestamp, inclusive on both ends.
	DateRange *DateRange

	// Metadata requires an exact key-to-value match for every listed key.
	Metadata map[string]string

	// Limit caps the result count, applied after sorting.
	Limit int
}

// DateRange is an inclusive timestamp interval.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Patch carries a partial update for UpdateMemory. Nil fields preserve
// the stored values; ID and Timestamp can never be patched.
type Patch struct {
	Content      *string
	Type         *MemoryType
	Metadata     map[string]string
	Importance   *float64
	AccessCount  *int
	LastAccessed *time.Time
}

// Stats summarizes the stored collection.
type Stats struct {
	// TotalMemories is the stored record count.
	TotalMemories int `json:"total_memories"`

	// MemoriesByType is the record count grouped by type.
	MemoriesByType map[MemoryType]int `json:"memories_by_type"`

	// AverageImportance is the mean importance across all records
	// (0 for an empty collection).
	AverageImportance float64 `json:"average_importance"`

	// StorageSize is the adapter-reported backing size in bytes, present
	// only when the adapter implements the optional Sizer capability.
	StorageSize *int64 `json:"storage_size,omitempty"`
}
