package signer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	s := New("secret", time.Hour)
	token, expiresAt, err := s.Sign("session-1")
	require.NoError(t, err)
	require.False(t, expiresAt.IsZero())

	value, err := s.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "session-1", value)
}

func TestVerifyRejectsTampering(t *testing.T) {
	s := New("secret", time.Hour)
	token, _, err := s.Sign("session-1")
	require.NoError(t, err)

	other := New("other-secret", time.Hour)
	_, err = other.Verify(token)
	require.ErrorIs(t, err, ErrSignature)

	_, err = s.Verify("not-a-token")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestVerifyRejectsExpired(t *testing.T) {
	s := New("secret", time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }
	token, _, err := s.Sign("session-1")
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = s.Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestSignRequiresSecret(t *testing.T) {
	_, _, err := New("", time.Minute).Sign("x")
	require.Error(t, err)
}
