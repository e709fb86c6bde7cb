package local_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub/memorybank/pkg/storage"
	"github.com/schoolhub/memorybank/pkg/storage/local"
)

func newTestStore(t *testing.T) *local.Store {
	t.Helper()

	store, err := local.New(&local.Config{
		DBPath:    filepath.Join(t.TempDir(), "test.db"),
		Namespace: "test_ns",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func testMemory(id, content string) *storage.Memory {
	return &storage.Memory{
		ID:         id,
		Content:    content,
		Type:       "fact",
		Timestamp:  time.Now().UTC().Truncate(time.Second),
		Importance: 0.5,
	}
}

func TestStoreAndRetrieve(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	m := testMemory("m1", "gravity pulls objects downward")
	require.NoError(t, store.Store(ctx, m))

	got, err := store.Retrieve(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)
	assert.Equal(t, "gravity pulls objects downward", got.Content)
	assert.Equal(t, 0.5, got.Importance)
}

func TestRetrieveMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Retrieve(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStoreUpsertsById(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testMemory("m1", "first")))
	require.NoError(t, store.Store(ctx, testMemory("m1", "second")))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "second", all[0].Content)
}

func TestSearchFiltersAndSorts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	low := testMemory("low", "the moon orbits the earth")
	low.Importance = 0.2
	high := testMemory("high", "the earth orbits the sun")
	high.Importance = 0.9
	other := testMemory("other", "photosynthesis needs light")

	require.NoError(t, store.Store(ctx, low))
	require.NoError(t, store.Store(ctx, high))
	require.NoError(t, store.Store(ctx, other))

	results, err := store.Search(ctx, &storage.Query{Keywords: []string{"orbits"}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "high", results[0].ID, "sorted by importance descending")
	assert.Equal(t, "low", results[1].ID)
}

func TestUpdatePreservesIdAndTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	m := testMemory("m1", "original")
	require.NoError(t, store.Store(ctx, m))

	content := "patched"
	updated, err := store.Update(ctx, "m1", &storage.Patch{Content: &content})
	require.NoError(t, err)

	assert.Equal(t, "m1", updated.ID)
	assert.Equal(t, "patched", updated.Content)
	assert.True(t, updated.Timestamp.Equal(m.Timestamp))
}

func TestUpdateMissing(t *testing.T) {
	store := newTestStore(t)

	content := "x"
	_, err := store.Update(context.Background(), "nope", &storage.Patch{Content: &content})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteAndIdempotence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testMemory("m1", "to delete")))
	require.NoError(t, store.Delete(ctx, "m1"))

	// Second delete reports the id as gone.
	err := store.Delete(ctx, "m1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testMemory("m1", "a")))
	require.NoError(t, store.Store(ctx, testMemory("m2", "b")))
	require.NoError(t, store.Clear(ctx))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStorageSizeTracksCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testMemory("m1", "some content worth bytes")))

	size, err := store.StorageSize(ctx)
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))
}
