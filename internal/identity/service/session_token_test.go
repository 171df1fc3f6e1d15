package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/authkeyd/internal/identity/domain"
)

func TestSessionTokenService_MintAndVerify(t *testing.T) {
	svc := NewSessionTokenService([]byte("test-secret"), time.Hour)

	token, exp, err := svc.Mint("user:alice", "acme", []string{"logs:read"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Second)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user:alice", claims.Subject)
	assert.Equal(t, "acme", claims.TenantID)
	assert.Equal(t, domain.TokenTypeSession, claims.Type)
	assert.Equal(t, []string{"logs:read"}, claims.Scopes)
}

func TestSessionTokenService_Verify_WrongSecret(t *testing.T) {
	svc := NewSessionTokenService([]byte("test-secret"), time.Hour)
	other := NewSessionTokenService([]byte("other-secret"), time.Hour)

	token, _, err := svc.Mint("user:alice", "acme", nil)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestSessionTokenService_ResourceToken_BindingAndRejectionFromSessionVerify(t *testing.T) {
	svc := NewSessionTokenService([]byte("test-secret"), time.Hour)

	token, exp, err := svc.MintResourceToken("user:alice", "acme", "log:sys", 5*time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, time.Second)

	claims, resource, err := svc.VerifyResourceToken(token)
	require.NoError(t, err)
	assert.Equal(t, "log:sys", resource)
	assert.Equal(t, domain.TokenTypeResource, claims.Type)

	// A session token must never verify as a resource token, and vice versa.
	sessionToken, _, err := svc.Mint("user:bob", "acme", nil)
	require.NoError(t, err)
	_, _, err = svc.VerifyResourceToken(sessionToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestSessionTokenService_Verify_Expired(t *testing.T) {
	svc := NewSessionTokenService([]byte("test-secret"), -time.Minute)

	token, _, err := svc.Mint("user:alice", "acme", nil)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
