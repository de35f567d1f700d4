// Package session holds the bearer token shared by every API call.
//
// A Session is created from a persisted value, updated on login and cleared
// on logout or when the server answers 401. All methods are safe for
// concurrent use.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned by Claims when the session is anonymous.
var ErrNoToken = errors.New("no session token")

// Session is the explicit auth context passed to the API client.
type Session struct {
	mu    sync.RWMutex
	token string
	store TokenStore
}

// New creates a session hydrated from store. A nil store keeps the token in memory only.
func New(store TokenStore) (*Session, error) {
	if store == nil {
		store = NewMemoryStore("")
	}
	token, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load session token: %w", err)
	}
	return &Session{token: token, store: store}, nil
}

// Token returns the current bearer token, or "" when anonymous.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// SetToken persists the token and then makes it current. When persisting
// fails the previous token stays in effect.
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(token); err != nil {
		return fmt.Errorf("persist session token: %w", err)
	}
	s.token = token
	return nil
}

// Clear drops the token from memory and from the persisted store.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	return nil
}

// Claims is the subset of JWT claims shown to users.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token expiry is set and already passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Claims decodes the token without verifying its signature.
// The server is the only party that can verify it; this is for display.
func (s *Session) Claims() (Claims, error) {
	token := s.Token()
	if token == "" {
		return Claims{}, ErrNoToken
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("decode token: %w", err)
	}

	var out Claims
	if sub, err := mc.GetSubject(); err == nil {
		out.Subject = sub
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
