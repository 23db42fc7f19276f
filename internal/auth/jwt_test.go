package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateToken_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.IssueToken("user-123", true, time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", claims.PrincipalID)
	require.True(t, claims.IsAdmin)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.IssueToken("user-123", false, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := NewJWTService("test-secret")
	other := NewJWTService("other-secret")

	token, err := svc.IssueToken("user-123", false, time.Minute)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
