// Package session persists the bearer token and the current user's identity
// between CLI invocations.
//
// State lives in a TOML file (session.toml) inside the state directory,
// written with 0600 permissions. A Session is safe for concurrent use and
// satisfies client.TokenSource, so the HTTP client always sends the token
// currently stored.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pelletier/go-toml/v2"
)

// FileName is the session file inside the state directory.
const FileName = "session.toml"

// DefaultDisplayName is shown when no user name is known.
const DefaultDisplayName = "Moi"

type state struct {
	AuthToken string `toml:"auth_token,omitempty"`
	UserName  string `toml:"user_name,omitempty"`
	UserID    int    `toml:"user_id,omitempty"`
}

// Session is the persisted authentication state.
type Session struct {
	mu       sync.RWMutex
	filePath string
	data     state
}

// Open loads the session stored in dir. An empty dir means ~/.memocloud.
// A missing file yields an anonymous session.
func Open(dir string) (*Session, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".memocloud")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	s := &Session{filePath: filepath.Join(dir, FileName)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the session file location.
func (s *Session) Path() string {
	return s.filePath
}

func (s *Session) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read session: %w", err)
	}

	var loaded state
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("decode session %s: %w", s.filePath, err)
	}
	s.data = loaded
	return nil
}

// save writes the state to disk (caller must hold the write lock).
func (s *Session) save() error {
	data, err := toml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Token returns the stored bearer token, "" when anonymous.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.AuthToken
}

// SetToken stores a new token. The previous user identity is dropped.
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = state{AuthToken: token}
	return s.save()
}

// SetUser records the identity returned by the profile endpoint.
func (s *Session) SetUser(id int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.UserID = id
	s.data.UserName = name
	return s.save()
}

// UserID returns the stored user id, 0 when unknown.
func (s *Session) UserID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.UserID
}

// DisplayName returns the stored user name or DefaultDisplayName.
func (s *Session) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.UserName == "" {
		return DefaultDisplayName
	}
	return s.data.UserName
}

// Authenticated reports whether a token is stored.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Clear removes the token, the user name and the user id together.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = state{}
	if err := os.Remove(s.filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Expired reports whether the stored token is a JWT whose exp claim is at or
// before now. The signature is not verified. Opaque tokens and JWTs without
// exp never count as expired.
func (s *Session) Expired(now time.Time) bool {
	token := s.Token()
	if token == "" {
		return false
	}
	exp, ok := ExpiresAt(token)
	return ok && !now.Before(exp)
}

// ExpiresAt reads the exp claim of a JWT without verifying it.
func ExpiresAt(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
