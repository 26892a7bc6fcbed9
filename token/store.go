package token

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/weeb-client/internal/errors"
	"github.com/jrsteele09/weeb-client/users"
)

// Store holds the session credentials. The access token lives in process memory only;
// the refresh token and the profile snapshot are kept in the durable Repo.
//
// A Store is owned by whoever creates it (normally the session) and injected into the
// request pipeline and the refresh coordinator. It performs no validation.
//
// Every Clear and Replace starts a new session generation. Work started against one
// generation (a token refresh) can only land in that same generation.
type Store struct {
	repo   Repo
	access *oauth2.Token
	lock   sync.RWMutex

	sessionLock sync.Mutex // orders whole-session transitions
	generation  uint64
}

// NewStore creates a Store backed by repo. The access token starts empty.
func NewStore(repo Repo) *Store {
	return &Store{repo: repo}
}

// GetAccess returns the raw access token, or "" when none is held.
func (s *Store) GetAccess() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.access == nil {
		return ""
	}
	return s.access.AccessToken
}

// AccessToken returns a copy of the in-memory access token, or nil.
func (s *Store) AccessToken() *oauth2.Token {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.access == nil {
		return nil
	}
	t := *s.access
	return &t
}

// SetAccess replaces the in-memory access token. An empty string clears it.
func (s *Store) SetAccess(raw string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if raw == "" {
		s.access = nil
		return
	}
	s.access = &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if exp, ok := AccessExpiry(raw); ok {
		s.access.Expiry = exp
	}
}

// GetRefresh returns the durable refresh token, or "" when none is stored. Read
// failures are logged and reported as absent.
func (s *Store) GetRefresh() string {
	data, err := s.repo.Load(RefreshTokenKey)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			log.Err(err).Str("key", RefreshTokenKey).Msg("Failed to load refresh token")
		}
		return ""
	}
	return string(data)
}

// SetRefresh overwrites the durable refresh token. An empty string removes it.
func (s *Store) SetRefresh(refresh string) error {
	if refresh == "" {
		return s.repo.Delete(RefreshTokenKey)
	}
	return s.repo.Save(RefreshTokenKey, []byte(refresh))
}

// GetUser returns the durable profile snapshot, or nil.
func (s *Store) GetUser() *users.Profile {
	data, err := s.repo.Load(UserKey)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			log.Err(err).Str("key", UserKey).Msg("Failed to load user profile")
		}
		return nil
	}

	var p users.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		log.Err(err).Str("key", UserKey).Msg("Stored user profile is corrupt")
		return nil
	}
	return &p
}

// SetUser overwrites the durable profile snapshot. nil removes it.
func (s *Store) SetUser(p *users.Profile) error {
	if p == nil {
		return s.repo.Delete(UserKey)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to serialize user profile: %w", err)
	}
	return s.repo.Save(UserKey, data)
}

// Generation identifies the current session.
func (s *Store) Generation() uint64 {
	s.sessionLock.Lock()
	defer s.sessionLock.Unlock()
	return s.generation
}

// Replace installs a new session. The profile is written first; when the refresh token
// cannot be saved the previous profile is put back, so a failed Replace leaves the stored
// session as it was. The access token is set only once both entries are stored.
func (s *Store) Replace(access, refresh string, user *users.Profile) error {
	s.sessionLock.Lock()
	defer s.sessionLock.Unlock()

	prevUser, err := s.repo.Load(UserKey)
	if err != nil {
		prevUser = nil
	}
	if err := s.SetUser(user); err != nil {
		return err
	}
	if err := s.SetRefresh(refresh); err != nil {
		s.restoreUser(prevUser)
		return err
	}

	s.generation++
	s.SetAccess(access)
	return nil
}

func (s *Store) restoreUser(prev []byte) {
	var err error
	if prev == nil {
		err = s.repo.Delete(UserKey)
	} else {
		err = s.repo.Save(UserKey, prev)
	}
	if err != nil {
		log.Err(err).Str("key", UserKey).Msg("Failed to restore previous user profile")
	}
}

// UpdateIfCurrent stores the outcome of a refresh started in generation. A non-empty
// refresh replaces the stored one. It reports false, and changes nothing, when the
// session has been cleared or replaced in the meantime.
func (s *Store) UpdateIfCurrent(generation uint64, access, refresh string) (bool, error) {
	s.sessionLock.Lock()
	defer s.sessionLock.Unlock()
	if s.generation != generation {
		return false, nil
	}
	s.SetAccess(access)
	if refresh == "" {
		return true, nil
	}
	return true, s.SetRefresh(refresh)
}

// SetUserIfCurrent stores p only while the session is still generation.
func (s *Store) SetUserIfCurrent(generation uint64, p *users.Profile) (bool, error) {
	s.sessionLock.Lock()
	defer s.sessionLock.Unlock()
	if s.generation != generation {
		return false, nil
	}
	return true, s.SetUser(p)
}

// ClearIfCurrent clears the session only while it is still generation.
func (s *Store) ClearIfCurrent(generation uint64) (bool, error) {
	s.sessionLock.Lock()
	defer s.sessionLock.Unlock()
	if s.generation != generation {
		return false, nil
	}
	return true, s.clearLocked()
}

// Clear drops the access token and removes both durable entries. Every step is
// attempted even when an earlier one fails.
func (s *Store) Clear() error {
	s.sessionLock.Lock()
	defer s.sessionLock.Unlock()
	return s.clearLocked()
}

func (s *Store) clearLocked() error {
	s.generation++
	s.SetAccess("")
	refreshErr := s.SetRefresh("")
	userErr := s.SetUser(nil)
	if refreshErr != nil {
		return errors.Wrapf(refreshErr, "failed to clear refresh token")
	}
	return errors.Wrapf(userErr, "failed to clear user profile")
}

// HasSession reports whether any session state is held: an access token in memory or
// a durable profile snapshot.
func (s *Store) HasSession() bool {
	return s.GetAccess() != "" || s.GetUser() != nil
}
