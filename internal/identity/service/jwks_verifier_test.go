package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/authkeyd/internal/identity/domain"
)

func jwksEncode(w http.ResponseWriter, keySet jose.JSONWebKeySet) error {
	return json.NewEncoder(w).Encode(keySet)
}

func signIdPToken(t *testing.T, key *rsa.PrivateKey, kid string, claims idpClaims) string {
	t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{
		Algorithm: jose.RS256,
		Key:       key,
	}, (&jose.SignerOptions{}).WithHeader("kid", kid))
	require.NoError(t, err)

	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	require.NoError(t, err)
	return token
}

func TestJWKSVerifier_Verify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       key.Public(),
		KeyID:     "kid-1",
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = jwksEncode(w, jwks)
	}))
	defer server.Close()

	verifier := NewJWKSVerifier(server.URL, time.Minute)

	token := signIdPToken(t, key, "kid-1", idpClaims{
		Subject:  "user:alice",
		TenantID: "acme",
		Expiry:   time.Now().Add(time.Hour).Unix(),
	})

	claims, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user:alice", claims.Subject)
	assert.Equal(t, "acme", claims.TenantID)
}

func TestJWKSVerifier_Verify_UnknownKid(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = jwksEncode(w, jose.JSONWebKeySet{})
	}))
	defer server.Close()

	verifier := NewJWKSVerifier(server.URL, time.Minute)
	token := signIdPToken(t, key, "missing-kid", idpClaims{Subject: "user:alice", Expiry: time.Now().Add(time.Hour).Unix()})

	_, err = verifier.Verify(context.Background(), token)
	assert.Error(t, err)
}

func TestJWKSVerifier_Verify_ExpiredClaim(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key: key.Public(), KeyID: "kid-1", Algorithm: string(jose.RS256), Use: "sig",
	}}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = jwksEncode(w, jwks)
	}))
	defer server.Close()

	verifier := NewJWKSVerifier(server.URL, time.Minute)
	token := signIdPToken(t, key, "kid-1", idpClaims{Subject: "user:alice", Expiry: time.Now().Add(-time.Hour).Unix()})

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
