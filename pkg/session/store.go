package session

import (
	"sync"

	"github.com/cinetalk/cinetalk/pkg/authclient"
)

// Store holds the current session triple in memory. It is a renewable
// client-side store, not something any server trusts.
type Store struct {
	mu      sync.RWMutex
	access  string
	refresh string
	user    authclient.SessionUser
	hasUser bool
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) SetSession(access, refresh string, user authclient.SessionUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
	s.user = user
	s.hasUser = true
}

func (s *Store) Tokens() (access, refresh string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.refresh
}

func (s *Store) User() (authclient.SessionUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.hasUser
}

// Clear wipes everything at once. Refresh failure must never leave a
// stale access token behind a wiped refresh token or vice versa.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	s.user = authclient.SessionUser{}
	s.hasUser = false
}
