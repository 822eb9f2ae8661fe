package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// DefaultSessionFile is where the client keeps its session cookie.
const DefaultSessionFile = "session.json"

// SessionFile persists the nilavanti_token cookie between runs.
type SessionFile struct {
	Path string

	mu      sync.Mutex
	token   string
	expires time.Time
}

type storedSession struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// NewSessionFile returns a store at path, or DefaultSessionFile when path is empty.
func NewSessionFile(path string) *SessionFile {
	if path == "" {
		path = DefaultSessionFile
	}
	return &SessionFile{Path: path}
}

// Load reads the stored cookie. A missing file means no session.
func (s *SessionFile) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.token, s.expires = "", time.Time{}
			return nil
		}
		return err
	}
	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("decode %s: %w", s.Path, err)
	}
	s.token, s.expires = stored.Token, stored.Expires
	return nil
}

// Set stores token and writes it to disk with owner-only permissions.
func (s *SessionFile) Set(token string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.expires = token, expires
	return s.save()
}

// Clear forgets the cookie and removes the file.
func (s *SessionFile) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.expires = "", time.Time{}
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Current returns the stored token unless it has expired.
func (s *SessionFile) Current(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || (!s.expires.IsZero() && !now.Before(s.expires)) {
		return ""
	}
	return s.token
}

func (s *SessionFile) save() error {
	data, err := json.Marshal(storedSession{Token: s.token, Expires: s.expires})
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0600)
}
