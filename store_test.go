package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "cache.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreResponseRoundTrip(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.StoreResponse("h1", []byte("first"), 100))
	require.NoError(t, store.StoreResponse("h1", []byte("second"), 200))

	data, ok := store.GetResponse("h1", 150)
	assert.True(t, ok)
	assert.Equal(t, "second", string(data), "newer response replaces the old one")

	_, ok = store.GetResponse("h1", 201)
	assert.False(t, ok, "expired rows are not served")

	_, ok = store.GetResponse("missing", 0)
	assert.False(t, ok)

	require.NoError(t, store.DeleteBefore(201))
	_, ok = store.GetResponse("h1", 0)
	assert.False(t, ok)
}

func TestStoreUsers(t *testing.T) {
	store := newTestStore(t)

	assert.False(t, store.TestUser("admin", "secret"))
	require.NoError(t, store.AddUser("admin", "secret", 1))
	assert.True(t, store.TestUser("admin", "secret"))
	assert.True(t, store.TestUser("admin", "secret"), "served from the user cache")
	assert.False(t, store.TestUser("admin", "wrong"))

	require.NoError(t, store.AddUser("admin", "rotated", 2))
	assert.True(t, store.TestUser("admin", "rotated"))

	assert.Error(t, store.AddUser("", "x", 1))
}

func TestReqCacheServesRepeatsFromStore(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		fmt.Fprintf(w, "response %d", n)
	}))
	defer upstream.Close()

	rc := NewReqCache(newTestStore(t), zap.NewNop())
	now := time.Unix(1_700_000_000, 0)
	rc.now = func() time.Time { return now }

	fetch := func() string {
		req, err := http.NewRequest(http.MethodGet, upstream.URL+"/search?q=homes", nil)
		require.NoError(t, err)
		res, err := rc.CachedFetch(req, upstream.Client(), time.Hour)
		require.NoError(t, err)
		defer res.Body.Close()
		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		return string(body)
	}

	assert.Equal(t, "response 1", fetch())
	assert.Equal(t, "response 1", fetch())
	assert.EqualValues(t, 1, hits.Load())

	now = now.Add(2 * time.Hour)
	assert.Equal(t, "response 2", fetch(), "expired responses are fetched again")
	assert.EqualValues(t, 2, hits.Load())
}

func TestReqCacheSkipsErrorResponses(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	rc := NewReqCache(newTestStore(t), zap.NewNop())
	for i := 0; i < 2; i++ {
		req, err := http.NewRequest(http.MethodGet, upstream.URL, nil)
		require.NoError(t, err)
		res, err := rc.CachedFetch(req, upstream.Client(), time.Hour)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, res.StatusCode)
		res.Body.Close()
	}
	assert.EqualValues(t, 2, hits.Load())
}

func TestAdapterUsesReqCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(pexelsBody))
	}))
	defer srv.Close()

	api := NewPexelsApi("k", ApiDeps{Cache: NewReqCache(newTestStore(t), zap.NewNop())})
	api.baseUrl = srv.URL

	for i := 0; i < 3; i++ {
		images, err := api.Search(context.Background(), "homes", "", 4)
		require.NoError(t, err)
		assert.Len(t, images, 2)
	}
	assert.EqualValues(t, 1, hits.Load())
}
