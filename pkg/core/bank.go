package core

import (
	"context"
	"fmt"
	"sync"
)

// Bank is the top-level facade over the Service: every memory operation,
// plus event notification and the optional auto-cleanup scheduler.
//
// Example:
//
//	store, _ := local.New(&local.Config{DBPath: "./memories.db"})
//	bank, err := core.NewBank(&core.Config{Adapter: store})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bank.Destroy()
//
//	bank.OnMemoryAdded(func(e core.MemoryAdded) {
//	    fmt.Println("stored:", e.Memory.ID)
//	})
//
//	memory, _ := bank.AddMemory(ctx, "Prefers visual explanations", core.TypePreference)
type Bank struct {
	svc *Service

	listenerMu sync.Mutex
	listeners  []listenerEntry
	nextHandle ListenerHandle

	scheduler *cleanupScheduler
	destroyed bool
	destroyMu sync.Mutex
}

// listenerEntry pins a listener to its registration handle. The kind is
// empty for listeners subscribed to every event.
type listenerEntry struct {
	handle ListenerHandle
	kind   EventKind
	fn     Listener
}

// NewBank creates a Bank from the given configuration and, when
// EnableAutoCleanup is set, starts the periodic capacity check.
func NewBank(cfg *Config) (*Bank, error) {
	svc, err := NewService(cfg)
	if err != nil {
		return nil, err
	}

	b := &Bank{svc: svc}
	if cfg.EnableAutoCleanup {
		b.startScheduler()
	}
	return b, nil
}

func (b *Bank) startScheduler() {
	b.scheduler = newCleanupScheduler(b.svc.cfg.CleanupInterval, func() {
		if _, err := b.MaybeCleanup(context.Background()); err != nil {
			b.svc.log.Warn().Err(err).Msg("scheduled cleanup failed")
		}
	})
	b.scheduler.start()
}

// On registers a listener for one event kind and returns a handle for
// removal. An empty kind subscribes to every event.
func (b *Bank) On(kind EventKind, fn Listener) ListenerHandle {
	b.listenerMu.Lock()
	defer b.listenerMu.Unlock()

	b.nextHandle++
	b.listeners = append(b.listeners, listenerEntry{
		handle: b.nextHandle,
		kind:   kind,
		fn:     fn,
	})
	return b.nextHandle
}

// Off removes the registration identified by the handle. Unknown handles
// are ignored.
func (b *Bank) Off(handle ListenerHandle) {
	b.listenerMu.Lock()
	defer b.listenerMu.Unlock()

	for i, entry := range b.listeners {
		if entry.handle == handle {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

// OnMemoryAdded registers a typed listener for stored memories.
func (b *Bank) OnMemoryAdded(fn func(MemoryAdded)) ListenerHandle {
	return b.On(KindMemoryAdded, func(e Event) {
		fn(e.(MemoryAdded))
	})
}

// OnMemoryUpdated registers a typed listener for memory updates.
func (b *Bank) OnMemoryUpdated(fn func(MemoryUpdated)) ListenerHandle {
	return b.On(KindMemoryUpdated, func(e Event) {
		fn(e.(MemoryUpdated))
	})
}

// OnMemoryDeleted registers a typed listener for memory deletes.
func (b *Bank) OnMemoryDeleted(fn func(MemoryDeleted)) ListenerHandle {
	return b.On(KindMemoryDeleted, func(e Event) {
		fn(e.(MemoryDeleted))
	})
}

// OnMemorySearched registers a typed listener for searches.
func (b *Bank) OnMemorySearched(fn func(MemorySearched)) ListenerHandle {
	return b.On(KindMemorySearched, func(e Event) {
		fn(e.(MemorySearched))
	})
}

// OnCleanupPerformed registers a typed listener for cleanup passes.
func (b *Bank) OnCleanupPerformed(fn func(CleanupPerformed)) ListenerHandle {
	return b.On(KindCleanupPerformed, func(e Event) {
		fn(e.(CleanupPerformed))
	})
}

// dispatch invokes matching listeners synchronously in registration
// order. A panicking listener is logged and does not stop the others.
func (b *Bank) dispatch(event Event) {
	b.listenerMu.Lock()
	entries := make([]listenerEntry, len(b.listeners))
	copy(entries, b.listeners)
	b.listenerMu.Unlock()

	for _, entry := range entries {
		if entry.kind != "" && entry.kind != event.Kind() {
			continue
		}
		b.safeInvoke(entry, event)
	}
}

func (b *Bank) safeInvoke(entry listenerEntry, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.svc.log.Error().
				Str("event", string(event.Kind())).
				Str("panic", fmt.Sprint(r)).
				Msg("event listener panicked")
		}
	}()
	entry.fn(event)
}

// AddMemory stores a new memory and dispatches a MemoryAdded event. See
// Service.AddMemory for importance resolution and deduplication.
func (b *Bank) AddMemory(ctx context.Context, content string, mtype MemoryType, opts ...AddOption) (*Memory, error) {
	memory, err := b.svc.AddMemory(ctx, content, mtype, opts...)
	if err != nil {
		return nil, err
	}
	b.dispatch(MemoryAdded{Memory: memory})
	return memory, nil
}

// GetMemory retrieves a memory by id, recording the access. A missing id
// returns (nil, nil).
func (b *Bank) GetMemory(ctx context.Context, id string) (*Memory, error) {
	return b.svc.GetMemory(ctx, id)
}

// SearchMemories runs a filtered search and dispatches a MemorySearched
// event carrying the query and its results.
func (b *Bank) SearchMemories(ctx context.Context, query *Query) ([]*Memory, error) {
	results, err := b.svc.SearchMemories(ctx, query)
	if err != nil {
		return nil, err
	}
	b.dispatch(MemorySearched{Query: query, Results: results})
	return results, nil
}

// GetRelevantMemories ranks stored memories against a free-text context.
func (b *Bank) GetRelevantMemories(ctx context.Context, contextText string, limit int) ([]*Memory, error) {
	return b.svc.GetRelevantMemories(ctx, contextText, limit)
}

// UpdateMemory applies a partial update and dispatches a MemoryUpdated
// event on success.
func (b *Bank) UpdateMemory(ctx context.Context, id string, patch *Patch) (*Memory, error) {
	updated, err := b.svc.UpdateMemory(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	b.dispatch(MemoryUpdated{Memory: updated})
	return updated, nil
}

// DeleteMemory removes a memory by id and dispatches a MemoryDeleted
// event on success.
func (b *Bank) DeleteMemory(ctx context.Context, id string) error {
	if err := b.svc.DeleteMemory(ctx, id); err != nil {
		return err
	}
	b.dispatch(MemoryDeleted{ID: id})
	return nil
}

// CleanupMemories enforces the capacity ceiling and dispatches a
// CleanupPerformed event when at least one memory was evicted.
func (b *Bank) CleanupMemories(ctx context.Context) (int, error) {
	evicted, err := b.svc.CleanupMemories(ctx)
	if err != nil {
		return evicted, err
	}
	if evicted > 0 {
		b.dispatch(CleanupPerformed{Evicted: evicted})
	}
	return evicted, nil
}

// MaybeCleanup runs CleanupMemories only when the stored count has
// crossed the proactive threshold (MaxMemories times CleanupThreshold).
// Returns the number of memories evicted, zero when below the threshold.
func (b *Bank) MaybeCleanup(ctx context.Context) (int, error) {
	b.svc.mu.RLock()
	all, err := b.svc.adapter.GetAll(ctx)
	threshold := float64(b.svc.cfg.MaxMemories) * b.svc.cfg.CleanupThreshold
	b.svc.mu.RUnlock()

	if err != nil {
		return 0, NewBankError("MaybeCleanup", err)
	}
	if float64(len(all)) <= threshold {
		return 0, nil
	}
	return b.CleanupMemories(ctx)
}

// GetStats summarizes the stored collection.
func (b *Bank) GetStats(ctx context.Context) (*Stats, error) {
	return b.svc.GetStats(ctx)
}

// ExportMemories serializes every stored memory to a JSON array.
func (b *Bank) ExportMemories(ctx context.Context) ([]byte, error) {
	return b.svc.ExportMemories(ctx)
}

// ImportMemories loads memories from a JSON array, skipping malformed
// records, and returns the number stored.
func (b *Bank) ImportMemories(ctx context.Context, payload []byte) (int, error) {
	return b.svc.ImportMemories(ctx, payload)
}

// ClearMemories removes every stored memory.
func (b *Bank) ClearMemories(ctx context.Context) error {
	return b.svc.ClearMemories(ctx)
}

// UpdateConfig merges a partial configuration into the bank. Nil fields
// keep their current values; a non-nil Adapter replaces the storage
// backend wholesale. The merged configuration is validated before it
// takes effect: a rejected update leaves the bank unchanged. On success
// the scheduler is restarted to honor interval or enablement changes.
func (b *Bank) UpdateConfig(update *ConfigUpdate) error {
	if update == nil {
		return nil
	}

	b.svc.mu.Lock()
	merged := *b.svc.cfg
	if update.MaxMemories != nil {
		merged.MaxMemories = *update.MaxMemories
	}
	if update.DefaultImportance != nil {
		merged.DefaultImportance = *update.DefaultImportance
	}
	if update.EnableAutoCleanup != nil {
		merged.EnableAutoCleanup = *update.EnableAutoCleanup
	}
	if update.CleanupThreshold != nil {
		merged.CleanupThreshold = *update.CleanupThreshold
	}
	if update.CleanupInterval != nil {
		merged.CleanupInterval = *update.CleanupInterval
	}
	if update.DedupThreshold != nil {
		merged.DedupThreshold = *update.DedupThreshold
	}
	if update.EstimateImportance != nil {
		merged.EstimateImportance = *update.EstimateImportance
	}
	if update.Adapter != nil {
		merged.Adapter = update.Adapter
	}

	if err := merged.Validate(); err != nil {
		b.svc.mu.Unlock()
		return err
	}

	*b.svc.cfg = merged
	b.svc.adapter = merged.Adapter
	b.svc.mu.Unlock()

	b.destroyMu.Lock()
	defer b.destroyMu.Unlock()
	if b.destroyed {
		return nil
	}
	if b.scheduler != nil {
		b.scheduler.halt()
		b.scheduler = nil
	}
	if merged.EnableAutoCleanup {
		b.startScheduler()
	}
	return nil
}

// Destroy stops the cleanup scheduler, removes every listener, and closes
// the storage adapter. Safe to call more than once.
func (b *Bank) Destroy() error {
	b.destroyMu.Lock()
	defer b.destroyMu.Unlock()

	if b.destroyed {
		return nil
	}
	b.destroyed = true

	if b.scheduler != nil {
		b.scheduler.halt()
		b.scheduler = nil
	}

	b.listenerMu.Lock()
	b.listeners = nil
	b.listenerMu.Unlock()

	return b.svc.Close()
}
