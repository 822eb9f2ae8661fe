package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atinyakov/nilavanti/internal/models"
)

// plainHasher keeps tests fast; "hash:" + password stands in for bcrypt.
type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "hash:" + pw, nil }
func (plainHasher) Compare(hash, pw string) error {
	if hash != "hash:"+pw {
		return errors.New("mismatch")
	}
	return nil
}

type memUsers struct {
	mu       sync.Mutex
	users    []models.User
	attempts []models.LoginAttempt
	calls    int
}

func (m *memUsers) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, x := range m.users {
		if x.Username == u.Username {
			return models.ErrUserExists
		}
	}
	m.users = append(m.users, *u)
	return nil
}

func (m *memUsers) ListUsers(context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return append([]models.User(nil), m.users...), nil
}

func (m *memUsers) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.Username == username })
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.ID == id })
}

func (m *memUsers) find(pred func(models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, u := range m.users {
		if pred(u) {
			u := u
			return &u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].PasswordHash = hash
			return nil
		}
	}
	return models.ErrUserNotFound
}

func (m *memUsers) RecordLoginAttempt(_ context.Context, a models.LoginAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, a)
	return nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	saveErr  error
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]models.Session)}
}

func (m *memSessions) Save(_ context.Context, s *models.Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessions) Get(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return &s, nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memSessions) DeleteAllForUser(_ context.Context, userID, except string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.UserID == userID && id != except {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type memResets struct {
	mu     sync.Mutex
	tokens map[string]string
	ttl    time.Duration
}

func (m *memResets) Put(_ context.Context, token, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = make(map[string]string)
	}
	m.tokens[token] = userID
	m.ttl = ttl
	return nil
}

func (m *memResets) Take(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uid, ok := m.tokens[token]
	if !ok {
		return "", models.ErrResetTokenInvalid
	}
	delete(m.tokens, token)
	return uid, nil
}

type captureNotifier struct {
	user  *models.User
	token string
}

func (c *captureNotifier) SendResetToken(_ context.Context, u *models.User, token string) error {
	c.user, c.token = u, token
	return nil
}

// mockUserRepo panics on calls whose function field is unset.
type mockUserRepo struct {
	CreateUserFunc func(ctx context.Context, u *models.User) error
	ListUsersFunc  func(ctx context.Context) ([]models.User, error)
	GetByNameFunc  func(ctx context.Context, username string) (*models.User, error)
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u *models.User) error {
	return m.CreateUserFunc(ctx, u)
}
func (m *mockUserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	return m.ListUsersFunc(ctx)
}
func (m *mockUserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.GetByNameFunc(ctx, username)
}
func (m *mockUserRepo) GetUserByID(context.Context, string) (*models.User, error) {
	return nil, models.ErrUserNotFound
}
func (m *mockUserRepo) UpdatePassword(context.Context, string, string) error { return nil }
func (m *mockUserRepo) RecordLoginAttempt(context.Context, models.LoginAttempt) error {
	return nil
}

func seqIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
