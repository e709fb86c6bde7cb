package core_test

import (
	"context"
	"sync"

	"github.com/schoolhub/memorybank/pkg/storage"
)

// memAdapter is an in-memory storage.Adapter for exercising the engine
// without a database. Error fields, when set, are returned by the
// corresponding operation to simulate backend outages.
type memAdapter struct {
	mu       sync.Mutex
	records  map[string]*storage.Memory
	sizeErr  error
	getErr   error
	storeErr error
	delErr   map[string]error
	closed   bool
}

func newMemAdapter() *memAdapter {
	return &memAdapter{
		records: make(map[string]*storage.Memory),
		delErr:  make(map[string]error),
	}
}

func (a *memAdapter) Store(_ context.Context, memory *storage.Memory) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.storeErr != nil {
		return a.storeErr
	}
	a.records[memory.ID] = storage.Clone(memory)
	return nil
}

func (a *memAdapter) Retrieve(_ context.Context, id string) (*storage.Memory, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.getErr != nil {
		return nil, a.getErr
	}
	m, ok := a.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return storage.Clone(m), nil
}

func (a *memAdapter) Search(_ context.Context, query *storage.Query) ([]*storage.Memory, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.getErr != nil {
		return nil, a.getErr
	}
	var matched []*storage.Memory
	for _, m := range a.records {
		if storage.Matches(m, query) {
			matched = append(matched, storage.Clone(m))
		}
	}
	limit := 0
	if query != nil {
		limit = query.Limit
	}
	return storage.SortByPriority(matched, limit), nil
}

func (a *memAdapter) Update(_ context.Context, id string, patch *storage.Patch) (*storage.Memory, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	updated := storage.Clone(m)
	storage.ApplyPatch(updated, patch)
	updated.ID = m.ID
	updated.Timestamp = m.Timestamp
	a.records[id] = updated
	return storage.Clone(updated), nil
}

func (a *memAdapter) Delete(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err, ok := a.delErr[id]; ok {
		return err
	}
	if _, ok := a.records[id]; !ok {
		return storage.ErrNotFound
	}
	delete(a.records, id)
	return nil
}

func (a *memAdapter) GetAll(_ context.Context) ([]*storage.Memory, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.getErr != nil {
		return nil, a.getErr
	}
	all := make([]*storage.Memory, 0, len(a.records))
	for _, m := range a.records {
		all = append(all, storage.Clone(m))
	}
	return all, nil
}

func (a *memAdapter) Clear(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = make(map[string]*storage.Memory)
	return nil
}

func (a *memAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func (a *memAdapter) StorageSize(_ context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sizeErr != nil {
		return 0, a.sizeErr
	}
	return int64(len(a.records) * 100), nil
}

func (a *memAdapter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}
