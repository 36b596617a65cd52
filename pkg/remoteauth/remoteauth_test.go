package remoteauth

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetalk/cinetalk/pkg/authclient"
	"github.com/cinetalk/cinetalk/pkg/tokens"
)

type fakeValidator struct {
	calls  int
	result *authclient.ValidateResult
	err    error
}

func (f *fakeValidator) ValidateToken(c echo.Context, token string) (*authclient.ValidateResult, error) {
	f.calls++
	return f.result, f.err
}

func runMiddleware(t *testing.T, m *Middleware, token string) (*httptest.ResponseRecorder, echo.Context, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/favorites", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := m.RequireAuth(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return rec, c, handler(c)
}

func TestRequireAuth_NoToken(t *testing.T) {
	t.Parallel()

	fake := &fakeValidator{}
	m := NewWithValidator(fake, NewCache(time.Minute, 10))

	_, _, err := runMiddleware(t, m, "")

	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
	assert.Zero(t, fake.calls)
}

func TestRequireAuth_ValidTokenCachedAndAccepted(t *testing.T) {
	t.Parallel()

	fake := &fakeValidator{
		result: &authclient.ValidateResult{
			Valid: true,
			User:  &authclient.User{UserID: "u-1", Username: "alice"},
		},
	}
	m := NewWithValidator(fake, NewCache(time.Minute, 10))

	rec, c, err := runMiddleware(t, m, "some-token")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", c.Get(CtxUserID))
	assert.Equal(t, "alice", c.Get(CtxUsername))
	assert.Equal(t, 1, fake.calls)

	// second request is served from cache, no remote call
	rec, _, err = runMiddleware(t, m, "some-token")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fake.calls)
}

func TestRequireAuth_ExpiredCacheEntryForcesRemoteCheck(t *testing.T) {
	t.Parallel()

	fake := &fakeValidator{
		result: &authclient.ValidateResult{
			Valid: true,
			User:  &authclient.User{UserID: "u-1", Username: "alice"},
		},
	}
	cache := NewCache(time.Minute, 10)
	m := NewWithValidator(fake, cache)

	// a stale entry planted in the past must never count as a hit
	cache.mu.Lock()
	cache.entries["some-token"] = cacheEntry{
		user:        authclient.User{UserID: "stale"},
		cachedUntil: time.Now().Add(-time.Second),
	}
	cache.mu.Unlock()

	_, c, err := runMiddleware(t, m, "some-token")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, "u-1", c.Get(CtxUserID))
}

func TestRequireAuth_PreservesTokenExpiredCode(t *testing.T) {
	t.Parallel()

	fake := &fakeValidator{
		result: &authclient.ValidateResult{
			Valid:   false,
			Message: "token expired",
			Code:    CodeTokenExpired,
		},
	}
	m := NewWithValidator(fake, NewCache(time.Minute, 10))

	rec, _, err := runMiddleware(t, m, "expired-token")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), CodeTokenExpired)
}

func TestRequireAuth_RevokedToken(t *testing.T) {
	t.Parallel()

	fake := &fakeValidator{
		result: &authclient.ValidateResult{Valid: false, Message: "token has been revoked"},
	}
	m := NewWithValidator(fake, NewCache(time.Minute, 10))

	_, _, err := runMiddleware(t, m, "revoked-token")
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestRequireAuth_AuthorityUnavailableIs503(t *testing.T) {
	t.Parallel()

	fake := &fakeValidator{err: fmt.Errorf("%w: connection refused", authclient.ErrUnavailable)}
	m := NewWithValidator(fake, NewCache(time.Minute, 10))

	_, _, err := runMiddleware(t, m, "any-token")
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, he.Code)
}

func TestCache_PutGetSweep(t *testing.T) {
	t.Parallel()

	cache := NewCache(time.Minute, 10)
	now := time.Now()

	cache.Put("tok", authclient.User{UserID: "u-1"}, now)

	user, ok := cache.Get("tok", now.Add(30*time.Second))
	require.True(t, ok)
	assert.Equal(t, "u-1", user.UserID)

	_, ok = cache.Get("tok", now.Add(2*time.Minute))
	assert.False(t, ok)

	cache.Put("a", authclient.User{}, now)
	cache.Put("b", authclient.User{}, now)
	removed := cache.Sweep(now.Add(2 * time.Minute))
	assert.Equal(t, 2, removed)
	assert.Zero(t, cache.Len())
}

func TestCache_EvictsAtCapacity(t *testing.T) {
	t.Parallel()

	cache := NewCache(time.Minute, 2)
	now := time.Now()

	cache.Put("first", authclient.User{UserID: "1"}, now)
	cache.Put("second", authclient.User{UserID: "2"}, now.Add(time.Second))
	cache.Put("third", authclient.User{UserID: "3"}, now.Add(2*time.Second))

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get("first", now.Add(3*time.Second))
	assert.False(t, ok, "entry closest to expiry should have been evicted")
}

func TestFallbackLocal_SkipsRevocationButChecksSignatureAndExpiry(t *testing.T) {
	t.Parallel()

	secret := []byte("shared-secret")
	e := echo.New()
	mw := FallbackLocal(secret)
	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	run := func(token string) (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodGet, "/favorites", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		return rec, handler(e.NewContext(req, rec))
	}

	valid, err := tokens.Sign("u-1", "alice", time.Now().Add(time.Hour), secret)
	require.NoError(t, err)
	rec, handlerErr := run(valid)
	require.NoError(t, handlerErr)
	assert.Equal(t, http.StatusOK, rec.Code)

	expired, err := tokens.Sign("u-1", "alice", time.Now().Add(-time.Hour), secret)
	require.NoError(t, err)
	rec, handlerErr = run(expired)
	require.NoError(t, handlerErr)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), CodeTokenExpired)

	_, handlerErr = run("garbage")
	he, ok := handlerErr.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}
