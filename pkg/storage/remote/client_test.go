package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub/memorybank/pkg/storage"
	"github.com/schoolhub/memorybank/pkg/storage/remote"
)

func newTestClient(t *testing.T, handler http.Handler) *remote.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := remote.New(&remote.Config{
		BaseURL: server.URL,
		Token:   "test-token",
	})
	require.NoError(t, err)
	return client
}

func TestStoreSendsMemoryWithAuth(t *testing.T) {
	var gotAuth string
	var gotMemory storage.Memory

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/memories", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotMemory))
		w.WriteHeader(http.StatusCreated)
	}))

	err := client.Store(context.Background(), &storage.Memory{
		ID:      "m1",
		Content: "remote content",
		Type:    "fact",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "m1", gotMemory.ID)
}

func TestRetrieveMissingMapsToNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := client.Retrieve(context.Background(), "absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestServerErrorMapsToStorageFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.GetAll(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorageFailure)
}

func TestStalledRequestMapsToTimeout(t *testing.T) {
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(server.Close)
	// Cleanups run last-in first-out: the handler must be released before
	// server.Close waits on it.
	t.Cleanup(func() { close(release) })

	client, err := remote.New(&remote.Config{
		BaseURL: server.URL,
		Timeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.Retrieve(context.Background(), "m1")
	assert.ErrorIs(t, err, storage.ErrTimeout)
}

func TestSearchEncodesQueryParameters(t *testing.T) {
	var gotQuery map[string]string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/memories/search", r.URL.Path)
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}
		_ = json.NewEncoder(w).Encode([]*storage.Memory{{ID: "m1"}})
	}))

	results, err := client.Search(context.Background(), &storage.Query{
		Type:          "fact",
		MinImportance: 0.4,
		Keywords:      []string{"exam", "study"},
		Metadata:      map[string]string{"subject": "math"},
		Limit:         5,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "fact", gotQuery["type"])
	assert.Equal(t, "0.4", gotQuery["minImportance"])
	assert.Equal(t, "exam,study", gotQuery["keywords"])
	assert.Equal(t, "5", gotQuery["limit"])
	assert.JSONEq(t, `{"subject":"math"}`, gotQuery["metadata"])
}

func TestUpdateOmitsAbsentPatchFields(t *testing.T) {
	var gotPayload map[string]interface{}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/memories/m1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_ = json.NewEncoder(w).Encode(&storage.Memory{ID: "m1", Importance: 0.9})
	}))

	importance := 0.9
	updated, err := client.Update(context.Background(), "m1", &storage.Patch{Importance: &importance})
	require.NoError(t, err)

	assert.Equal(t, 0.9, updated.Importance)
	assert.Contains(t, gotPayload, "importance")
	assert.NotContains(t, gotPayload, "content", "absent fields stay off the wire")
	assert.NotContains(t, gotPayload, "type")
}

func TestDeleteAndClearPaths(t *testing.T) {
	var paths []string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	ctx := context.Background()
	require.NoError(t, client.Delete(ctx, "m1"))
	require.NoError(t, client.Clear(ctx))

	assert.Equal(t, []string{"/memories/m1", "/memories"}, paths)
}

func TestStorageSizeReadsStats(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/memories/stats", r.URL.Path)
		_, _ = w.Write([]byte(`{"size_bytes": 2048}`))
	}))

	size, err := client.StorageSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2048), size)
}

func TestHealthProbe(t *testing.T) {
	healthy := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	assert.NoError(t, healthy.Health(context.Background()))

	sick := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	assert.ErrorIs(t, sick.Health(context.Background()), storage.ErrStorageFailure)
}
