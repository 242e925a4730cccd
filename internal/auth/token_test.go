package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)

	token := s.Sign(Identity{UserID: 42, Role: "seller"})
	id, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.UserID)
	assert.Equal(t, "seller", id.Role)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)

	token := s.Sign(Identity{UserID: 1, Role: "user"})
	tampered := "x" + token

	_, err := s.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewSigner("secret-a", time.Hour)
	verifier := NewSigner("secret-b", time.Hour)

	_, err := verifier.Verify(issuer.Sign(Identity{UserID: 7, Role: "admin"}))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)

	token := s.signWithExpiry(Identity{UserID: 9, Role: "user"}, time.Now().Add(-time.Minute))
	_, err := s.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)

	for _, token := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		_, err := s.Verify(token)
		assert.Error(t, err, "token %q", token)
	}
}
