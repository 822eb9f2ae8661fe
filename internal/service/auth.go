// Package service implements the Nilavanti gate: credential checks, session
// lifecycle and the password flows, delegating persistence to repositories.
package service

import (
	"context"
	"time"

	"github.com/atinyakov/nilavanti/internal/models"
	"github.com/atinyakov/nilavanti/internal/security"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserRepository defines the user persistence operations required by the gate.
type UserRepository interface {
	// CreateUser stores a new user; a taken username yields models.ErrUserExists.
	CreateUser(ctx context.Context, u *models.User) error
	// ListUsers returns all users in registration order.
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id string, hash string) error
	RecordLoginAttempt(ctx context.Context, a models.LoginAttempt) error
}

// SessionStore keeps server-side session records.
type SessionStore interface {
	Save(ctx context.Context, s *models.Session) error
	// Get returns models.ErrSessionNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID, except string) (int, error)
}

// ResetTokenStore holds single-use password reset tokens.
type ResetTokenStore interface {
	Put(ctx context.Context, token, userID string, ttl time.Duration) error
	Take(ctx context.Context, token string) (string, error)
}

// PasswordHasher hashes and verifies secrets.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs and verifies the nilavanti_token value.
type TokenIssuer interface {
	Issue(sid, userID string, master bool, expiresAt time.Time) (string, error)
	Parse(raw string) (*security.Claims, error)
}

// Notifier delivers password reset tokens to their owner.
type Notifier interface {
	SendResetToken(ctx context.Context, user *models.User, token string) error
}

// Dependencies groups the collaborators of Service.
type Dependencies struct {
	Users    UserRepository
	Sessions SessionStore
	Resets   ResetTokenStore
	Hasher   PasswordHasher
	Tokens   TokenIssuer
	Notifier Notifier
	Log      *zap.Logger
}

// Settings holds the tunables of Service.
type Settings struct {
	// MasterPasswordHash is the bcrypt hash of the master secret; empty disables it.
	MasterPasswordHash string
	SessionTTL         time.Duration
	ResetTTL           time.Duration
}

// Service implements the session gate on top of its Dependencies.
type Service struct {
	users    UserRepository
	sessions SessionStore
	resets   ResetTokenStore
	hasher   PasswordHasher
	tokens   TokenIssuer
	notifier Notifier
	log      *zap.Logger

	checker    *CredentialChecker
	sessionTTL time.Duration
	resetTTL   time.Duration

	now   func() time.Time
	newID func() string
}

// NewAuthService constructs a Service. A nil logger or notifier is replaced
// with a no-op logger and a LogNotifier respectively.
func NewAuthService(deps Dependencies, settings Settings) *Service {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}
	return &Service{
		users:      deps.Users,
		sessions:   deps.Sessions,
		resets:     deps.Resets,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		notifier:   notifier,
		log:        log,
		checker:    NewCredentialChecker(deps.Users, deps.Hasher, settings.MasterPasswordHash),
		sessionTTL: settings.SessionTTL,
		resetTTL:   settings.ResetTTL,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}
