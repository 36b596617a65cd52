// Package session owns a client's access/refresh token pair: proactive
// refresh ahead of expiry, coalescing of concurrent refreshes into one
// network call, and the single 401-triggered retry. Token payloads are
// decoded here without signature verification, strictly for the expiry
// heuristic and display identity; authorization is always re-checked by
// the services themselves.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cinetalk/cinetalk/pkg/authclient"
	"github.com/cinetalk/cinetalk/pkg/tokens"
)

// ErrNotAuthenticated means the session is gone: no tokens, or the
// refresh token was rejected. The caller must send the user back
// through login; nothing here will recover automatically.
var ErrNotAuthenticated = errors.New("authentication failed, log in again")

// refresh lookahead: a token expiring inside this window is refreshed
// before use so in-flight requests do not race its expiry.
const expiryLookahead = time.Minute

// AuthAPI is the slice of authclient.Client the manager needs.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*authclient.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*authclient.LoginResult, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	LogoutAll(ctx context.Context, accessToken string) error
}

// Manager drives authenticated requests for one client process. The
// coalescing guard is local to this instance; two independent managers
// may refresh concurrently, which is harmless since refresh tokens are
// not rotated on use.
type Manager struct {
	api        AuthAPI
	store      *Store
	httpClient *http.Client
	group      singleflight.Group
}

func NewManager(api AuthAPI) *Manager {
	return &Manager{
		api:        api,
		store:      NewStore(),
		httpClient: &http.Client{},
	}
}

func (m *Manager) Store() *Store { return m.store }

// Login authenticates and installs the resulting session.
func (m *Manager) Login(ctx context.Context, email, password string) (authclient.SessionUser, error) {
	result, err := m.api.Login(ctx, email, password)
	if err != nil {
		return authclient.SessionUser{}, err
	}
	m.store.SetSession(result.AccessToken, result.RefreshToken, result.User)
	return result.User, nil
}

// Logout drops the local session unconditionally. The server-side
// revocation is best effort; its failure does not resurrect the session.
func (m *Manager) Logout(ctx context.Context) {
	access, refresh := m.store.Tokens()
	if access != "" {
		// ignore the result: the client side of logout is authoritative
		_ = m.api.Logout(ctx, access, refresh)
	}
	m.store.Clear()
}

// LogoutAll ends every session of the current user, then drops local state.
func (m *Manager) LogoutAll(ctx context.Context) {
	access, _ := m.store.Tokens()
	if access != "" {
		_ = m.api.LogoutAll(ctx, access)
	}
	m.store.Clear()
}

// Do performs req with a bearer token attached, refreshing the token
// first when it is missing or about to expire, and retrying exactly
// once after a refresh if the response is 401. Any refresh failure
// clears the session and returns ErrNotAuthenticated.
func (m *Manager) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	access, _ := m.store.Tokens()
	if needsRefresh(access) {
		var err error
		access, err = m.refresh(ctx)
		if err != nil {
			return nil, err
		}
	}

	resp, err := m.send(ctx, req, access)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	access, err = m.refresh(ctx)
	if err != nil {
		return nil, err
	}

	resp, err = m.send(ctx, req, access)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		m.store.Clear()
		return nil, ErrNotAuthenticated
	}
	return resp, nil
}

// refresh exchanges the stored refresh token for a new access token.
// Concurrent callers share one underlying network call; everyone gets
// the same resulting token. On any failure the whole session is
// cleared: no half-valid state survives.
func (m *Manager) refresh(ctx context.Context) (string, error) {
	v, err, _ := m.group.Do("refresh", func() (any, error) {
		_, refreshToken := m.store.Tokens()
		if refreshToken == "" {
			return "", ErrNotAuthenticated
		}

		result, err := m.api.Refresh(ctx, refreshToken)
		if err != nil {
			m.store.Clear()
			if errors.Is(err, authclient.ErrRefreshRejected) {
				return "", fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
			}
			return "", fmt.Errorf("%w: refresh: %v", ErrNotAuthenticated, err)
		}

		// refresh token is reusable until its own expiry, keep it
		m.store.SetSession(result.AccessToken, refreshToken, result.User)
		return result.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) send(ctx context.Context, req *http.Request, access string) (*http.Response, error) {
	out := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replay request body: %w", err)
		}
		out.Body = body
	}
	out.Header.Set("Authorization", "Bearer "+access)

	resp, err := m.httpClient.Do(out)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

// needsRefresh reports whether the access token is absent, unreadable
// or expiring within the lookahead window. Uses unverified decoding:
// this is a heuristic, not an authorization check.
func needsRefresh(access string) bool {
	if access == "" {
		return true
	}
	claims, err := tokens.DecodeUnverified(access)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Time.Before(time.Now().Add(expiryLookahead))
}
