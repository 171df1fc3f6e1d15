package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	"github.com/allisson/authkeyd/internal/identity/domain"
)

// idpClaims is the subset of an external identity-provider JWT this gateway
// cares about. Unknown claims are ignored.
type idpClaims struct {
	Subject  string `json:"sub"`
	TenantID string `json:"tenant_id"`
	Expiry   int64  `json:"exp"`
}

// JWKSVerifier verifies externally-issued identity-provider JWTs against a JSON
// Web Key Set fetched from issuerURL, refreshing the set on a "kid" cache miss
// rather than on a fixed timer alone (§4.4).
type JWKSVerifier struct {
	issuerURL string
	refresh   time.Duration
	client    *http.Client

	mu         sync.Mutex
	keySet     jose.JSONWebKeySet
	lastFetch  time.Time
}

// NewJWKSVerifier creates a verifier that fetches from issuerURL (a JWKS
// document URL) and treats the cached set as stale after refresh elapses.
func NewJWKSVerifier(issuerURL string, refresh time.Duration) *JWKSVerifier {
	return &JWKSVerifier{
		issuerURL: issuerURL,
		refresh:   refresh,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Verify parses tokenString as a JWS-signed JWT, resolves its "kid" against the
// cached JWKS (fetching on a miss or after refresh elapses), and returns the
// decoded subject/tenant claims once the signature and expiry both check out.
func (v *JWKSVerifier) Verify(ctx context.Context, tokenString string) (domain.IdPClaims, error) {
	parsed, err := jwt.ParseSigned(tokenString, []jose.SignatureAlgorithm{
		jose.RS256, jose.ES256, jose.PS256,
	})
	if err != nil {
		return domain.IdPClaims{}, domain.ErrInvalidToken
	}
	if len(parsed.Headers) == 0 {
		return domain.IdPClaims{}, domain.ErrInvalidToken
	}

	key, err := v.keyByID(ctx, parsed.Headers[0].KeyID)
	if err != nil {
		return domain.IdPClaims{}, err
	}

	var claims idpClaims
	if err := parsed.Claims(key, &claims); err != nil {
		return domain.IdPClaims{}, domain.ErrInvalidToken
	}
	if claims.Expiry != 0 && time.Now().Unix() > claims.Expiry {
		return domain.IdPClaims{}, domain.ErrInvalidToken
	}
	if claims.Subject == "" {
		return domain.IdPClaims{}, domain.ErrInvalidToken
	}

	return domain.IdPClaims{Subject: claims.Subject, TenantID: claims.TenantID}, nil
}

func (v *JWKSVerifier) keyByID(ctx context.Context, kid string) (*jose.JSONWebKey, error) {
	if key, ok := v.lookup(kid); ok {
		return key, nil
	}
	if err := v.fetch(ctx); err != nil {
		return nil, err
	}
	if key, ok := v.lookup(kid); ok {
		return key, nil
	}
	return nil, domain.ErrAuthenticationFailed
}

func (v *JWKSVerifier) lookup(kid string) (*jose.JSONWebKey, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.refresh > 0 && time.Since(v.lastFetch) > v.refresh && len(v.keySet.Keys) > 0 {
		return nil, false
	}
	for i := range v.keySet.Keys {
		if v.keySet.Keys[i].KeyID == kid {
			k := v.keySet.Keys[i]
			return &k, true
		}
	}
	return nil, false
}

func (v *JWKSVerifier) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.issuerURL, nil)
	if err != nil {
		return domain.ErrIdPUnavailable
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return domain.ErrIdPUnavailable
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.ErrIdPUnavailable
	}

	var keySet jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&keySet); err != nil {
		return domain.ErrIdPUnavailable
	}

	v.mu.Lock()
	v.keySet = keySet
	v.lastFetch = time.Now()
	v.mu.Unlock()
	return nil
}
