// Package session holds the authenticated identity of one application instance.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultProfile is the token store key used when no profile is named.
const DefaultProfile = "default"

// ErrNoToken is returned by TokenStore.LoadToken when nothing is stored.
var ErrNoToken = errors.New("no stored token")

// User is the account returned by the login endpoint.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// TokenStore persists bearer tokens per profile.
type TokenStore interface {
	LoadToken(ctx context.Context, profile string) (string, error)
	SaveToken(ctx context.Context, profile, token string) error
	DeleteToken(ctx context.Context, profile string) error
}

// Session is the token and user of one application instance.
// The zero value is an anonymous session.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *User
}

// New returns a session holding token.
func New(token string) *Session {
	return &Session{token: token}
}

// Token returns the bearer token, or "" when anonymous. Nil-safe.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the logged-in user, if known.
func (s *Session) User() *User {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authenticated reports whether the session holds a token.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Set replaces the token and user.
func (s *Session) Set(token string, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
}

// Clear drops the token and user.
func (s *Session) Clear() {
	s.Set("", nil)
}

// Restore loads the token stored for profile into the session.
// A missing token is not an error; the session stays anonymous.
func (s *Session) Restore(ctx context.Context, store TokenStore, profile string) error {
	token, err := store.LoadToken(ctx, profileOrDefault(profile))
	if errors.Is(err, ErrNoToken) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Persist writes the current token for profile.
func (s *Session) Persist(ctx context.Context, store TokenStore, profile string) error {
	token := s.Token()
	if token == "" {
		return errors.New("persist session: not logged in")
	}
	if err := store.SaveToken(ctx, profileOrDefault(profile), token); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Forget clears the session and removes the stored token for profile.
func (s *Session) Forget(ctx context.Context, store TokenStore, profile string) error {
	s.Clear()
	if err := store.DeleteToken(ctx, profileOrDefault(profile)); err != nil {
		return fmt.Errorf("forget session: %w", err)
	}
	return nil
}

func profileOrDefault(profile string) string {
	if profile == "" {
		return DefaultProfile
	}
	return profile
}

// MemoryTokenStore is an in-process TokenStore.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

// NewMemoryTokenStore returns an empty store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]string)}
}

// LoadToken implements TokenStore.
func (m *MemoryTokenStore) LoadToken(_ context.Context, profile string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[profile]
	if !ok {
		return "", ErrNoToken
	}
	return t, nil
}

// SaveToken implements TokenStore.
func (m *MemoryTokenStore) SaveToken(_ context.Context, profile, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[profile] = token
	return nil
}

// DeleteToken implements TokenStore.
func (m *MemoryTokenStore) DeleteToken(_ context.Context, profile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, profile)
	return nil
}
