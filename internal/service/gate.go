package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/atinyakov/nilavanti/internal/models"
	"go.uber.org/zap"
)

// ClientInfo describes the caller of Login for the session record and the
// attempt log.
type ClientInfo struct {
	RemoteAddr string
	UserAgent  string
}

// LoginRequest is the gate's login form. Username is optional; From is the
// route the visitor originally asked for.
type LoginRequest struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
	From     string `json:"from,omitempty"`
}

// LoginResult is what a successful Login hands back to the transport.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Session   *models.Session
	// User is nil for a master login.
	User     *models.User
	Redirect string
	View     models.View
}

// Authenticate resolves token to a live session. Any missing, forged,
// expired or revoked token yields models.ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, models.ErrUnauthorized
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, models.ErrUnauthorized
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess.Expired(s.now()) || sess.UserID != claims.UserID() || sess.Master != claims.Master {
		return nil, models.ErrUnauthorized
	}
	return sess, nil
}

// Mount reports what the gate shows for token. A valid session goes straight
// to the protected view; the reveal only follows a fresh login.
func (s *Service) Mount(ctx context.Context, token string) (models.MountState, error) {
	anonymous := models.MountState{View: models.ViewLoginForm}

	sess, err := s.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			return anonymous, nil
		}
		return anonymous, err
	}

	state := models.MountState{Authenticated: true, View: models.ViewProtected}
	if sess.UserID == "" {
		return state, nil
	}

	user, err := s.users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			// The account is gone; the session goes with it.
			if derr := s.sessions.Delete(ctx, sess.ID); derr != nil {
				s.log.Warn("failed to drop orphaned session", zap.Error(derr))
			}
			return anonymous, nil
		}
		return anonymous, fmt.Errorf("load session user: %w", err)
	}
	state.CurrentUser = user
	return state, nil
}

// Login checks the secret and opens a session on success.
func (s *Service) Login(ctx context.Context, req LoginRequest, client ClientInfo) (*LoginResult, error) {
	match, err := s.checker.Check(ctx, req.Username, req.Password)
	s.recordAttempt(ctx, req.Username, match, client, err == nil)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			s.log.Info("login rejected", zap.String("remote_addr", client.RemoteAddr))
		}
		return nil, err
	}

	now := s.now()
	sess := &models.Session{
		ID:         s.newID(),
		Master:     match.Master,
		RemoteAddr: client.RemoteAddr,
		UserAgent:  client.UserAgent,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.sessionTTL),
	}
	if match.User != nil {
		sess.UserID = match.User.ID
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	token, err := s.tokens.Issue(sess.ID, sess.UserID, sess.Master, sess.ExpiresAt)
	if err != nil {
		if derr := s.sessions.Delete(ctx, sess.ID); derr != nil {
			s.log.Warn("failed to drop unsigned session", zap.Error(derr))
		}
		return nil, err
	}

	s.log.Info("login accepted",
		zap.Bool("master", sess.Master),
		zap.String("user_id", sess.UserID),
		zap.String("remote_addr", client.RemoteAddr),
	)
	return &LoginResult{
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
		Session:   sess,
		User:      match.User,
		Redirect:  safeRedirect(req.From),
		View:      models.ViewVideo,
	}, nil
}

func (s *Service) recordAttempt(ctx context.Context, username string, match Match, client ClientInfo, ok bool) {
	if username == "" && match.User != nil {
		username = match.User.Username
	}
	err := s.users.RecordLoginAttempt(ctx, models.LoginAttempt{
		Username:   username,
		RemoteAddr: client.RemoteAddr,
		Success:    ok,
		CreatedAt:  s.now(),
	})
	if err != nil {
		s.log.Warn("failed to record login attempt", zap.Error(err))
	}
}

// Register validates req and stores a new user. It does not open a session.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		ID:           s.newID(),
		Username:     req.Username,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("username", user.Username))
	return user, nil
}

// Logout revokes the session behind token. Unknown or invalid tokens are
// ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, claims.SessionID()); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// safeRedirect returns from when it points inside the gate's area and the
// protected route otherwise.
func safeRedirect(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") {
		return models.ProtectedRoute
	}
	u, err := url.Parse(from)
	if err != nil || u.IsAbs() || u.Host != "" {
		return models.ProtectedRoute
	}
	p := path.Clean(u.Path)
	if !strings.HasPrefix(p, models.GateRoute+"/") {
		return models.ProtectedRoute
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
