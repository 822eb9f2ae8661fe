package service

import (
	"context"
	"errors"
	"testing"

	"github.com/atinyakov/nilavanti/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersWith(pairs ...string) *memUsers {
	m := &memUsers{}
	for i := 0; i+1 < len(pairs); i += 2 {
		m.users = append(m.users, models.User{
			ID:           "u-" + pairs[i],
			Username:     pairs[i],
			PasswordHash: "hash:" + pairs[i+1],
		})
	}
	return m
}

func TestCheck_MasterFirst(t *testing.T) {
	c := NewCredentialChecker(usersWith("shadow", masterSecret), plainHasher{}, "hash:"+masterSecret)

	m, err := c.Check(context.Background(), "", masterSecret)
	require.NoError(t, err)
	assert.True(t, m.Master)
	assert.Nil(t, m.User)
}

func TestCheck_FirstRegisteredMatchWins(t *testing.T) {
	c := NewCredentialChecker(usersWith("alice", "shared1", "bob", "shared1"), plainHasher{}, "")

	m, err := c.Check(context.Background(), "", "shared1")
	require.NoError(t, err)
	require.NotNil(t, m.User)
	assert.Equal(t, "alice", m.User.Username)
	assert.False(t, m.Master)
}

func TestCheck_NamedUserOnly(t *testing.T) {
	c := NewCredentialChecker(usersWith("alice", "shared1", "bob", "shared1"), plainHasher{}, "")

	m, err := c.Check(context.Background(), "bob", "shared1")
	require.NoError(t, err)
	assert.Equal(t, "bob", m.User.Username)

	_, err = c.Check(context.Background(), "carol", "shared1")
	assert.True(t, errors.Is(err, models.ErrInvalidCredentials))

	_, err = c.Check(context.Background(), "bob", "wrong")
	assert.True(t, errors.Is(err, models.ErrInvalidCredentials))
}

func TestCheck_NoMatch(t *testing.T) {
	c := NewCredentialChecker(usersWith("alice", "abcdef"), plainHasher{}, "hash:"+masterSecret)

	_, err := c.Check(context.Background(), "", "guess")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidCredentials))
	assert.Equal(t, "invalid password", err.Error())
}

func TestCheck_EmptySecretSkipsStorage(t *testing.T) {
	c := NewCredentialChecker(&mockUserRepo{}, plainHasher{}, "hash:"+masterSecret)

	_, err := c.Check(context.Background(), "", "")
	assert.True(t, errors.Is(err, models.ErrInvalidCredentials))
}

func TestCheck_StorageError(t *testing.T) {
	dbErr := errors.New("db down")
	repo := &mockUserRepo{
		ListUsersFunc: func(context.Context) ([]models.User, error) { return nil, dbErr },
		GetByNameFunc: func(context.Context, string) (*models.User, error) { return nil, dbErr },
	}
	c := NewCredentialChecker(repo, plainHasher{}, "")

	_, err := c.Check(context.Background(), "", "abcdef")
	assert.True(t, errors.Is(err, dbErr))
	assert.False(t, errors.Is(err, models.ErrInvalidCredentials))

	_, err = c.Check(context.Background(), "alice", "abcdef")
	assert.True(t, errors.Is(err, dbErr))
}

func TestCheck_CanceledScan(t *testing.T) {
	c := NewCredentialChecker(usersWith("alice", "abcdef"), plainHasher{}, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Check(ctx, "", "abcdef")
	assert.True(t, errors.Is(err, context.Canceled))
}
