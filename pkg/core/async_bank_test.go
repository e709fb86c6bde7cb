package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub/memorybank/pkg/core"
)

func newTestAsyncBank(t *testing.T) *core.AsyncBank {
	t.Helper()

	bank, err := core.NewAsyncBank(&core.Config{Adapter: newMemAdapter()})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = bank.Destroy()
	})
	return bank
}

func TestAsyncAddAndGet(t *testing.T) {
	bank := newTestAsyncBank(t)
	ctx := context.Background()

	added := <-bank.AddMemoryAsync(ctx, "async content", core.TypeFact)
	require.NoError(t, added.Error)
	require.NotNil(t, added.Memory)

	got := <-bank.GetMemoryAsync(ctx, added.Memory.ID)
	require.NoError(t, got.Error)
	assert.Equal(t, "async content", got.Memory.Content)
	assert.Equal(t, 1, got.Memory.AccessCount)
}

func TestAsyncOperationsOverlap(t *testing.T) {
	bank := newTestAsyncBank(t)
	ctx := context.Background()

	channels := make([]<-chan *core.MemoryResult, 0, 10)
	for i := 0; i < 10; i++ {
		channels = append(channels, bank.AddMemoryAsync(ctx, "concurrent add", core.TypeConversation))
	}

	for _, ch := range channels {
		result := <-ch
		require.NoError(t, result.Error)
		assert.NotEmpty(t, result.Memory.ID)
	}

	search := <-bank.SearchMemoriesAsync(ctx, &core.Query{Type: core.TypeConversation})
	require.NoError(t, search.Error)
	assert.Len(t, search.Memories, 10)
}

func TestAsyncErrorsTravelOnChannel(t *testing.T) {
	bank := newTestAsyncBank(t)
	ctx := context.Background()

	result := <-bank.AddMemoryAsync(ctx, "", core.TypeFact)
	assert.ErrorIs(t, result.Error, core.ErrValidation)
	assert.Nil(t, result.Memory)

	err := <-bank.DeleteMemoryAsync(ctx, "absent")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAsyncWaitDrainsOperations(t *testing.T) {
	bank := newTestAsyncBank(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		bank.AddMemoryAsync(ctx, "fire and forget", core.TypeFact)
	}
	bank.Wait()

	stats, err := bank.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalMemories)
}
