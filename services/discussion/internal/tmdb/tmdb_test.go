package tmdb

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubUpstream(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("api_key") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/movie/550":
			w.Write([]byte(`{"id":550,"title":"Fight Club"}`))
		case "/search/movie":
			w.Write([]byte(`{"results":[{"id":550,"title":"Fight Club"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMovieLookupCached(t *testing.T) {
	var hits atomic.Int64
	srv := newStubUpstream(t, &hits)
	c := NewClientWithBaseURL(srv.URL, "test-key", time.Minute)
	ctx := t.Context()

	payload, err := c.Movie(ctx, 550)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "Fight Club")

	// second lookup served from cache
	_, err = c.Movie(ctx, 550)
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())

	// a different movie is a different cache key
	_, err = c.Movie(ctx, 999)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.EqualValues(t, 2, hits.Load())
}

func TestSearchMovies(t *testing.T) {
	var hits atomic.Int64
	srv := newStubUpstream(t, &hits)
	c := NewClientWithBaseURL(srv.URL, "test-key", time.Minute)

	payload, err := c.SearchMovies(t.Context(), "fight club")
	require.NoError(t, err)
	assert.Contains(t, string(payload), "results")

	_, err = c.SearchMovies(t.Context(), "fight club")
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load(), "repeat query cached")
}

func TestCacheExpiry(t *testing.T) {
	cache := newResponseCache(time.Minute)
	now := time.Now()

	cache.put("k", []byte("v"), now)
	_, ok := cache.get("k", now.Add(30*time.Second))
	assert.True(t, ok)

	_, ok = cache.get("k", now.Add(2*time.Minute))
	assert.False(t, ok, "stale entry reads as a miss")
}

func TestErrorsAreNotCached(t *testing.T) {
	var hits atomic.Int64
	srv := newStubUpstream(t, &hits)
	c := NewClientWithBaseURL(srv.URL, "test-key", time.Minute)

	_, err := c.Movie(t.Context(), 999)
	require.ErrorIs(t, err, ErrUpstream)
	_, err = c.Movie(t.Context(), 999)
	require.ErrorIs(t, err, ErrUpstream)
	assert.EqualValues(t, 2, hits.Load())
}
