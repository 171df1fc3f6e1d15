// Package service implements the identity gateway's (C4) token signing,
// identity-provider token verification, and external IdP grant exchange.
package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/allisson/authkeyd/internal/identity/domain"
)

// sessionClaims is the wire shape of both session and resource-scoped JWTs this
// gateway signs. Resource tokens additionally set Resource (see tokenexchange).
type sessionClaims struct {
	jwt.RegisteredClaims
	TenantID string           `json:"tenant_id"`
	Type     domain.TokenType `json:"type"`
	Scopes   []string         `json:"scp,omitempty"`
	Resource string           `json:"resource,omitempty"`
}

// SessionTokenService signs and verifies the gateway's internal session tokens
// with a shared HMAC secret. Kept as its own type (rather than folded into the
// usecase) so the token-exchange service (C6) can reuse it for resource tokens.
type SessionTokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionTokenService creates a signer/verifier for HS256 session tokens.
func NewSessionTokenService(secret []byte, ttl time.Duration) *SessionTokenService {
	return &SessionTokenService{secret: secret, ttl: ttl}
}

// Mint signs a session token for subject/tenantID with the gateway's default TTL.
func (s *SessionTokenService) Mint(subject, tenantID string, scopes []string) (string, time.Time, error) {
	return s.mintWithClaims(subject, tenantID, domain.TokenTypeSession, scopes, "", s.ttl)
}

// MintResourceToken signs a short-lived token bound to a single resource,
// used by the token-exchange service (C6). ttl overrides the gateway's default.
func (s *SessionTokenService) MintResourceToken(subject, tenantID, resource string, ttl time.Duration) (string, time.Time, error) {
	return s.mintWithClaims(subject, tenantID, domain.TokenTypeResource, nil, resource, ttl)
}

func (s *SessionTokenService) mintWithClaims(
	subject, tenantID string,
	typ domain.TokenType,
	scopes []string,
	resource string,
	ttl time.Duration,
) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		TenantID: tenantID,
		Type:     typ,
		Scopes:   scopes,
		Resource: resource,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses and validates a session token, returning its claims. Tokens of
// any other type (resource tokens) are rejected.
func (s *SessionTokenService) Verify(tokenString string) (domain.SessionClaims, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || claims.Type != domain.TokenTypeSession {
		return domain.SessionClaims{}, domain.ErrInvalidToken
	}

	return domain.SessionClaims{
		Subject:   claims.Subject,
		TenantID:  claims.TenantID,
		Type:      claims.Type,
		Scopes:    claims.Scopes,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// VerifyResourceToken parses and validates a resource token, additionally
// returning the bound resource. Rejects tokens that aren't of resource type.
func (s *SessionTokenService) VerifyResourceToken(tokenString string) (domain.SessionClaims, string, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || claims.Type != domain.TokenTypeResource || claims.Resource == "" {
		return domain.SessionClaims{}, "", domain.ErrInvalidToken
	}

	return domain.SessionClaims{
		Subject:   claims.Subject,
		TenantID:  claims.TenantID,
		Type:      claims.Type,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, claims.Resource, nil
}
