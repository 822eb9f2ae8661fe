package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/nilavanti/internal/models"
)

// Match is the outcome of a successful credential check. User is nil when
// the master secret matched.
type Match struct {
	Master bool
	User   *models.User
}

// CredentialChecker decides whether a secret opens the gate.
type CredentialChecker struct {
	users      UserRepository
	hasher     PasswordHasher
	masterHash string
}

// NewCredentialChecker returns a checker over users. masterHash may be empty.
func NewCredentialChecker(users UserRepository, hasher PasswordHasher, masterHash string) *CredentialChecker {
	return &CredentialChecker{users: users, hasher: hasher, masterHash: masterHash}
}

// Check compares secret with the master hash first, then with registered
// users. With an empty username every user is tried in registration order
// and the first match wins; otherwise only the named user is tried.
// Any miss is reported as models.ErrInvalidCredentials.
func (c *CredentialChecker) Check(ctx context.Context, username, secret string) (Match, error) {
	if secret == "" {
		return Match{}, models.ErrInvalidCredentials
	}
	if c.masterHash != "" && c.hasher.Compare(c.masterHash, secret) == nil {
		return Match{Master: true}, nil
	}

	if username != "" {
		u, err := c.users.GetUserByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				return Match{}, models.ErrInvalidCredentials
			}
			return Match{}, fmt.Errorf("check credentials: %w", err)
		}
		if c.hasher.Compare(u.PasswordHash, secret) != nil {
			return Match{}, models.ErrInvalidCredentials
		}
		return Match{User: u}, nil
	}

	users, err := c.users.ListUsers(ctx)
	if err != nil {
		return Match{}, fmt.Errorf("check credentials: %w", err)
	}
	for i := range users {
		if err := ctx.Err(); err != nil {
			return Match{}, err
		}
		if c.hasher.Compare(users[i].PasswordHash, secret) == nil {
			u := users[i]
			return Match{User: &u}, nil
		}
	}
	return Match{}, models.ErrInvalidCredentials
}
