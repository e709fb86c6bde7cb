package core

import (
	"context"
	"sync"
)

// AsyncBank provides asynchronous memory bank operations.
//
// It wraps the synchronous Bank and executes all operations in separate
// goroutines, making it suitable for callers that overlap many memory
// operations. All async methods return channels that receive the result
// when the operation completes. The bank tracks its goroutines and
// provides Wait to ensure all operations finish.
//
// Example:
//
//	asyncBank, _ := core.NewAsyncBank(cfg)
//	defer asyncBank.Destroy()
//
//	resultChan := asyncBank.AddMemoryAsync(ctx, "Enjoys group projects", core.TypePreference)
//	result := <-resultChan
//	if result.Error != nil {
//	    log.Fatal(result.Error)
//	}
type AsyncBank struct {
	*Bank
	wg sync.WaitGroup
}

// NewAsyncBank creates an asynchronous bank from the given configuration.
func NewAsyncBank(cfg *Config) (*AsyncBank, error) {
	bank, err := NewBank(cfg)
	if err != nil {
		return nil, err
	}

	return &AsyncBank{
		Bank: bank,
	}, nil
}

// MemoryResult contains the result of a single-memory operation.
type MemoryResult struct {
	// Memory is the memory returned by the operation (nil on error).
	Memory *Memory

	// Error is the error returned by the operation.
	Error error
}

// MemoriesResult contains the result of a multi-memory operation.
type MemoriesResult struct {
	// Memories is the list of returned memories.
	Memories []*Memory

	// Error is the error returned by the operation.
	Error error
}

// CountResult contains the result of a counting operation such as cleanup
// or import.
type CountResult struct {
	// Count is the number of affected records.
	Count int

	// Error is the error returned by the operation.
	Error error
}

// AddMemoryAsync stores a new memory in a separate goroutine.
func (ab *AsyncBank) AddMemoryAsync(ctx context.Context, content string, mtype MemoryType, opts ...AddOption) <-chan *MemoryResult {
	resultChan := make(chan *MemoryResult, 1)
	ab.wg.Add(1)

	go func() {
		defer ab.wg.Done()
		memory, err := ab.AddMemory(ctx, content, mtype, opts...)
		resultChan <- &MemoryResult{
			Memory: memory,
			Error:  err,
		}
		close(resultChan)
	}()

	return resultChan
}

// GetMemoryAsync retrieves a memory by id in a separate goroutine.
func (ab *AsyncBank) GetMemoryAsync(ctx context.Context, id string) <-chan *MemoryResult {
	resultChan := make(chan *MemoryResult, 1)
	ab.wg.Add(1)

	go func() {
		defer ab.wg.Done()
		memory, err := ab.GetMemory(ctx, id)
		resultChan <- &MemoryResult{
			Memory: memory,
			Error:  err,
		}
		close(resultChan)
	}()

	return resultChan
}

// SearchMemoriesAsync runs a filtered search in a separate goroutine.
func (ab *AsyncBank) SearchMemoriesAsync(ctx context.Context, query *Query) <-chan *MemoriesResult {
	resultChan := make(chan *MemoriesResult, 1)
	ab.wg.Add(1)

	go func() {
		defer ab.wg.Done()
		memories, err := ab.SearchMemories(ctx, query)
		resultChan <- &MemoriesResult{
			Memories: memories,
			Error:    err,
		}
		close(resultChan)
	}()

	return resultChan
}

// GetRelevantMemoriesAsync ranks stored memories against a context in a
// separate goroutine.
func (ab *AsyncBank) GetRelevantMemoriesAsync(ctx context.Context, contextText string, limit int) <-chan *MemoriesResult {
	resultChan := make(chan *MemoriesResult, 1)
	ab.wg.Add(1)

	go func() {
		defer ab.wg.Done()
		memories, err := ab.GetRelevantMemories(ctx, contextText, limit)
		resultChan <- &MemoriesResult{
			Memories: memories,
			Error:    err,
		}
		close(resultChan)
	}()

	return resultChan
}

// UpdateMemoryAsync applies a partial update in a separate goroutine.
func (ab *AsyncBank) UpdateMemoryAsync(ctx context.Context, id string, patch *Patch) <-chan *MemoryResult {
	resultChan := make(chan *MemoryResult, 1)
	ab.wg.Add(1)

	go func() {
		defer ab.wg.Done()
		memory, err := ab.UpdateMemory(ctx, id, patch)
		resultChan <- &MemoryResult{
			Memory: memory,
			Error:  err,
		}
		close(resultChan)
	}()

	return resultChan
}

// DeleteMemoryAsync removes a memory by id in a separate goroutine.
func (ab *AsyncBank) DeleteMemoryAsync(ctx context.Context, id string) <-chan error {
	errChan := make(chan error, 1)
	ab.wg.Add(1)

	go func() {
		defer ab.wg.Done()
		errChan <- ab.DeleteMemory(ctx, id)
		close(errChan)
	}()

	return errChan
}

// CleanupMemoriesAsync enforces the capacity ceiling in a separate
// goroutine.
func (ab *AsyncBank) CleanupMemoriesAsync(ctx context.Context) <-chan *CountResult {
	resultChan := make(chan *CountResult, 1)
	ab.wg.Add(1)

	go func() {
		defer ab.wg.Done()
		evicted, err := ab.CleanupMemories(ctx)
		resultChan <- &CountResult{
			Count: evicted,
			Error: err,
		}
		close(resultChan)
	}()

	return resultChan
}

// Wait blocks until all goroutines started by async methods have
// finished. Call it before program exit to ensure all operations
// complete.
func (ab *AsyncBank) Wait() {
	ab.wg.Wait()
}

// Destroy waits for all asynchronous operations to complete, then tears
// down the underlying bank.
func (ab *AsyncBank) Destroy() error {
	ab.Wait()
	return ab.Bank.Destroy()
}
