package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	svc := NewTokenService("test-secret")

	token, err := svc.GenerateToken("alice")
	require.NoError(t, err)

	userID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "alice", userID)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	t.Parallel()
	token, err := NewTokenService("secret-a").GenerateToken("alice")
	require.NoError(t, err)

	_, err = NewTokenService("secret-b").ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	t.Parallel()
	_, err := NewTokenService("secret").ValidateToken("not-a-token")
	require.Error(t, err)
}
