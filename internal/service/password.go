package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/atinyakov/nilavanti/internal/models"
	"go.uber.org/zap"
)

// ChangePasswordRequest is the change-password form.
type ChangePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ResetPasswordRequest redeems a reset token.
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ChangePassword replaces the password of the session's user and revokes
// every other session of that user. Master sessions have no password to change.
func (s *Service) ChangePassword(ctx context.Context, sess *models.Session, req ChangePasswordRequest) error {
	if sess == nil || sess.Master || sess.UserID == "" {
		return models.ErrForbidden
	}

	v := models.NewValidationError()
	if req.OldPassword == "" {
		v.Add("oldPassword", "Current password is required")
	}
	checkPassword(v, "newPassword", req.NewPassword, req.ConfirmPassword)
	if !v.Empty() {
		return v
	}

	user, err := s.users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return err
	}
	if s.hasher.Compare(user.PasswordHash, req.OldPassword) != nil {
		return models.ErrInvalidCredentials
	}

	if err := s.setPassword(ctx, user.ID, req.NewPassword); err != nil {
		return err
	}
	if _, err := s.sessions.DeleteAllForUser(ctx, user.ID, sess.ID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.log.Info("password changed", zap.String("user_id", user.ID))
	return nil
}

// ForgotPassword issues a reset token for username and hands it to the
// notifier. Unknown usernames are silently accepted.
func (s *Service) ForgotPassword(ctx context.Context, username string) error {
	if username == "" {
		return nil
	}
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.log.Debug("reset requested for unknown user")
			return nil
		}
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}
	if err := s.resets.Put(ctx, token, user.ID, s.resetTTL); err != nil {
		return err
	}
	if err := s.notifier.SendResetToken(ctx, user, token); err != nil {
		return fmt.Errorf("send reset token: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token, stores the new password and revokes
// every session of the token's user.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	v := models.NewValidationError()
	if req.Token == "" {
		v.Add("token", "Reset token is required")
	}
	checkPassword(v, "newPassword", req.NewPassword, req.ConfirmPassword)
	if !v.Empty() {
		return v
	}

	userID, err := s.resets.Take(ctx, req.Token)
	if err != nil {
		return err
	}
	if err := s.setPassword(ctx, userID, req.NewPassword); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return models.ErrResetTokenInvalid
		}
		return err
	}
	if _, err := s.sessions.DeleteAllForUser(ctx, userID, ""); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.log.Info("password reset", zap.String("user_id", userID))
	return nil
}

func (s *Service) setPassword(ctx context.Context, userID, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
