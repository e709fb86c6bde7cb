package core

// EventKind identifies a bank notification variant.
type EventKind string

const (
	// KindMemoryAdded fires after a memory is stored, including merges
	// into an existing near-duplicate.
	KindMemoryAdded EventKind = "memoryAdded"

	// KindMemoryUpdated fires after a successful partial update.
	KindMemoryUpdated EventKind = "memoryUpdated"

	// KindMemoryDeleted fires after a successful delete.
	KindMemoryDeleted EventKind = "memoryDeleted"

	// KindMemorySearched fires after every search, including empty and
	// degraded results.
	KindMemorySearched EventKind = "memorySearched"

	// KindCleanupPerformed fires after a cleanup pass that evicted at
	// least one memory.
	KindCleanupPerformed EventKind = "cleanupPerformed"
)

// Event is implemented by every bank notification. The set of variants is
// closed: switch on the concrete type or on Kind to consume a payload.
type Event interface {
	Kind() EventKind
}

// MemoryAdded carries the stored memory.
type MemoryAdded struct {
	Memory *Memory
}

// Kind implements Event.
func (MemoryAdded) Kind() EventKind { return KindMemoryAdded }

// MemoryUpdated carries the post-update memory.
type MemoryUpdated struct {
	Memory *Memory
}

// Kind implements Event.
func (MemoryUpdated) Kind() EventKind { return KindMemoryUpdated }

// MemoryDeleted carries the id of the removed memory.
type MemoryDeleted struct {
	ID string
}

// Kind implements Event.
func (MemoryDeleted) Kind() EventKind { return KindMemoryDeleted }

// MemorySearched carries the executed query and its results.
type MemorySearched struct {
	Query   *Query
	Results []*Memory
}

// Kind implements Event.
func (MemorySearched) Kind() EventKind { return KindMemorySearched }

// CleanupPerformed carries the number of evicted memories.
type CleanupPerformed struct {
	Evicted int
}

// Kind implements Event.
func (CleanupPerformed) Kind() EventKind { return KindCleanupPerformed }

// Listener receives bank events. Listeners run synchronously on the
// goroutine that performed the operation, in registration order; a slow
// listener delays the caller.
type Listener func(Event)

// ListenerHandle identifies one registration for removal via Bank.Off.
type ListenerHandle int
