package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("nilavanti")
	require.NoError(t, err)
	assert.NotEqual(t, "nilavanti", hash)

	assert.NoError(t, h.Compare(hash, "nilavanti"))
	assert.True(t, errors.Is(h.Compare(hash, "wrong"), ErrMismatch))

	other, err := h.Hash("nilavanti")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "hashes must be salted")

	err = h.Compare("not-a-hash", "nilavanti")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMismatch))
}

func TestNewBcryptHasher_DefaultCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret")
	exp := time.Now().Add(time.Hour)

	raw, err := issuer.Issue("sid-1", "u-1", false, exp)
	require.NoError(t, err)

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SessionID())
	assert.Equal(t, "u-1", claims.UserID())
	assert.False(t, claims.Master)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestTokenIssuer_Master(t *testing.T) {
	issuer := NewTokenIssuer("secret")
	raw, err := issuer.Issue("sid-m", "", true, time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.True(t, claims.Master)
	assert.Empty(t, claims.UserID())
}

func TestTokenIssuer_Rejects(t *testing.T) {
	ti := NewTokenIssuer("secret")
	valid, err := ti.Issue("sid-1", "u-1", false, time.Now().Add(time.Hour))
	require.NoError(t, err)

	expired, err := ti.Issue("sid-1", "u-1", false, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	foreign, err := NewTokenIssuer("other").Issue("sid-1", "u-1", false, time.Now().Add(time.Hour))
	require.NoError(t, err)

	noSID, err := ti.Issue("", "u-1", false, time.Now().Add(time.Hour))
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID: "sid-1", Issuer: issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := map[string]string{
		"garbage":       "not-a-token",
		"expired":       expired,
		"wrong secret":  foreign,
		"no session id": noSID,
		"alg none":      unsigned,
		"tampered":      tampered,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ti.Parse(raw)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}
