// Package session owns the access/refresh token pair of the signed in user.
package session

import (
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/educloud/core"
)

var ErrNoSession = errors.New("no active session")

// Session is the token pair issued on login and rotated on refresh.
type Session struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// Valid reports whether the session holds an access token.
func (s Session) Valid() bool { return s.AccessToken != "" }

// Claims are the JWT claims issued by the API.
type Claims struct {
	jwt.StandardClaims
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Tenant string `json:"tenant,omitempty"`
}

// UserID is the claims subject.
func (c *Claims) UserID() string { return c.Subject }

// Expired reports whether the access token expired at t.
func (c *Claims) Expired(t time.Time) bool {
	return c.ExpiresAt != 0 && t.Unix() >= c.ExpiresAt
}

// Store keeps the session in persistent storage. It is the only writer of the token keys.
type Store struct {
	storage core.Storage
	mu      sync.RWMutex
}

func NewStore(storage core.Storage) *Store {
	return &Store{storage: storage}
}

// Get returns the stored session; a zero Session if there is none.
func (s *Store) Get() (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sess Session
	var err error
	if sess.AccessToken, _, err = s.storage.Get(core.KeyToken); err != nil {
		return Session{}, errors.Wrap(err, "getting access token")
	}
	if sess.RefreshToken, _, err = s.storage.Get(core.KeyRefreshToken); err != nil {
		return Session{}, errors.Wrap(err, "getting refresh token")
	}
	return sess, nil
}

// AccessToken returns the stored access token, "" if none or unreadable.
func (s *Store) AccessToken() string {
	sess, err := s.Get()
	if err != nil {
		return ""
	}
	return sess.AccessToken
}

// IsAuthenticated reports whether an access token is stored.
func (s *Store) IsAuthenticated() bool {
	return s.AccessToken() != ""
}

// Set replaces the session.
func (s *Store) Set(sess Session) error {
	if !sess.Valid() {
		return errors.Wrap(ErrNoSession, "setting session without access token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(core.KeyToken, sess.AccessToken); err != nil {
		return errors.Wrap(err, "storing access token")
	}
	if sess.RefreshToken == "" {
		return errors.Wrap(s.storage.Delete(core.KeyRefreshToken), "deleting refresh token")
	}
	return errors.Wrap(s.storage.Set(core.KeyRefreshToken, sess.RefreshToken), "storing refresh token")
}

// Rotate stores a refreshed token pair. An empty refreshToken keeps the current one.
func (s *Store) Rotate(accessToken, refreshToken string) error {
	if refreshToken == "" {
		curr, err := s.Get()
		if err != nil {
			return err
		}
		refreshToken = curr.RefreshToken
	}
	return s.Set(Session{AccessToken: accessToken, RefreshToken: refreshToken})
}

// Clear destroys the session and the cached auth snapshot.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Wrap(
		s.storage.Delete(core.KeyToken, core.KeyRefreshToken, core.KeyAuthSnapshot),
		"clearing session",
	)
}

// Claims decodes the access token claims WITHOUT verifying its signature;
// they are only used for display and logging, the API remains the authority.
func (s *Store) Claims() (*Claims, error) {
	token := s.AccessToken()
	if token == "" {
		return nil, ErrNoSession
	}
	return ParseClaims(token)
}

// ParseClaims decodes the claims of a JWT without verifying it.
func ParseClaims(token string) (*Claims, error) {
	claims := new(Claims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(err, "parsing token claims")
	}
	return claims, nil
}
