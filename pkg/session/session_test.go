package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetalk/cinetalk/pkg/authclient"
	"github.com/cinetalk/cinetalk/pkg/tokens"
)

type fakeAPI struct {
	mu           sync.Mutex
	refreshCalls int32
	refreshErr   error
	refreshDelay time.Duration
	accessToken  string
	logoutErr    error
	logoutCalls  int
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*authclient.LoginResult, error) {
	return &authclient.LoginResult{
		AccessToken:  f.accessToken,
		RefreshToken: "refresh-value",
		User:         authclient.SessionUser{ID: "u-1", Username: "alice", Email: email},
	}, nil
}

func (f *fakeAPI) Refresh(ctx context.Context, refreshToken string) (*authclient.LoginResult, error) {
	atomic.AddInt32(&f.refreshCalls, 1)
	if f.refreshDelay > 0 {
		time.Sleep(f.refreshDelay)
	}
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &authclient.LoginResult{
		AccessToken: f.accessToken,
		User:        authclient.SessionUser{ID: "u-1", Username: "alice"},
	}, nil
}

func (f *fakeAPI) Logout(ctx context.Context, accessToken, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAPI) LogoutAll(ctx context.Context, accessToken string) error {
	return nil
}

func freshToken(t *testing.T) string {
	t.Helper()
	signed, err := tokens.Sign("u-1", "alice", time.Now().Add(time.Hour), []byte("any-secret"))
	require.NoError(t, err)
	return signed
}

func staleToken(t *testing.T) string {
	t.Helper()
	signed, err := tokens.Sign("u-1", "alice", time.Now().Add(-time.Minute), []byte("any-secret"))
	require.NoError(t, err)
	return signed
}

func TestDo_AttachesBearerToken(t *testing.T) {
	t.Parallel()

	access := freshToken(t)
	var gotAuth string
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	m := NewManager(&fakeAPI{})
	m.Store().SetSession(access, "refresh-value", authclient.SessionUser{ID: "u-1"})

	req, err := http.NewRequest(http.MethodGet, target.URL, nil)
	require.NoError(t, err)
	resp, err := m.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer "+access, gotAuth)
	assert.EqualValues(t, 0, atomic.LoadInt32(&m.api.(*fakeAPI).refreshCalls))
}

func TestDo_ProactiveRefreshBeforeExpiry(t *testing.T) {
	t.Parallel()

	newAccess := freshToken(t)
	api := &fakeAPI{accessToken: newAccess}

	var gotAuth string
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	m := NewManager(api)
	m.Store().SetSession(staleToken(t), "refresh-value", authclient.SessionUser{ID: "u-1"})

	req, err := http.NewRequest(http.MethodGet, target.URL, nil)
	require.NoError(t, err)
	resp, err := m.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.EqualValues(t, 1, atomic.LoadInt32(&api.refreshCalls))
	assert.Equal(t, "Bearer "+newAccess, gotAuth)

	access, refresh := m.Store().Tokens()
	assert.Equal(t, newAccess, access)
	assert.Equal(t, "refresh-value", refresh, "refresh token must survive the rotation")
}

func TestDo_CoalescesConcurrentRefreshes(t *testing.T) {
	t.Parallel()

	const callers = 10

	newAccess := freshToken(t)
	api := &fakeAPI{accessToken: newAccess, refreshDelay: 100 * time.Millisecond}

	var (
		headerMu sync.Mutex
		headers  []string
	)
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headerMu.Lock()
		headers = append(headers, r.Header.Get("Authorization"))
		headerMu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	m := NewManager(api)
	m.Store().SetSession(staleToken(t), "refresh-value", authclient.SessionUser{ID: "u-1"})

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodGet, target.URL, nil)
			if err != nil {
				errs[i] = err
				return
			}
			resp, err := m.Do(context.Background(), req)
			if err != nil {
				errs[i] = err
				return
			}
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&api.refreshCalls),
		"concurrent callers must share one refresh call")
	for _, h := range headers {
		assert.Equal(t, "Bearer "+newAccess, h)
	}
}

func TestDo_RetriesOnceAfter401(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{accessToken: freshToken(t)}

	var hits int32
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	m := NewManager(api)
	m.Store().SetSession(freshToken(t), "refresh-value", authclient.SessionUser{ID: "u-1"})

	req, err := http.NewRequest(http.MethodGet, target.URL, nil)
	require.NoError(t, err)
	resp, err := m.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
	assert.EqualValues(t, 1, atomic.LoadInt32(&api.refreshCalls))
}

func TestDo_SecondConsecutive401IsTerminal(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{accessToken: freshToken(t)}
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer target.Close()

	m := NewManager(api)
	m.Store().SetSession(freshToken(t), "refresh-value", authclient.SessionUser{ID: "u-1"})

	req, err := http.NewRequest(http.MethodGet, target.URL, nil)
	require.NoError(t, err)
	_, err = m.Do(context.Background(), req)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	access, refresh := m.Store().Tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestDo_RefreshRejectionClearsSession(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{refreshErr: authclient.ErrRefreshRejected}
	m := NewManager(api)
	m.Store().SetSession(staleToken(t), "refresh-value", authclient.SessionUser{ID: "u-1"})

	req, err := http.NewRequest(http.MethodGet, "http://unused.invalid/", nil)
	require.NoError(t, err)
	_, err = m.Do(context.Background(), req)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	access, refresh := m.Store().Tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
	_, ok := m.Store().User()
	assert.False(t, ok)
}

func TestDo_NoSessionAtAll(t *testing.T) {
	t.Parallel()

	m := NewManager(&fakeAPI{})
	req, err := http.NewRequest(http.MethodGet, "http://unused.invalid/", nil)
	require.NoError(t, err)
	_, err = m.Do(context.Background(), req)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLogout_ClearsEvenWhenServerFails(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{logoutErr: assert.AnError}
	m := NewManager(api)
	m.Store().SetSession(freshToken(t), "refresh-value", authclient.SessionUser{ID: "u-1"})

	m.Logout(context.Background())

	access, refresh := m.Store().Tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
	assert.Equal(t, 1, api.logoutCalls)
}
