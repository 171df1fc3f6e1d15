package usecase

import (
	"context"
	"time"

	"github.com/allisson/authkeyd/internal/identity/domain"
	"github.com/allisson/authkeyd/internal/identity/repository"
	"github.com/allisson/authkeyd/internal/identity/service"
)

// identityUseCase implements IdentityUseCase over the session token signer, the
// JWKS verifier, the IdP grant client, the API-key subsystem, and the logout
// deny-list.
type identityUseCase struct {
	tokens   *service.SessionTokenService
	jwks     *service.JWKSVerifier
	idp      *service.IdentityProviderClient
	apiKeys  APIKeyVerifier
	denyList *repository.DenyList
}

// New creates the identity gateway use case.
func New(
	tokens *service.SessionTokenService,
	jwks *service.JWKSVerifier,
	idp *service.IdentityProviderClient,
	apiKeys APIKeyVerifier,
	denyList *repository.DenyList,
) IdentityUseCase {
	return &identityUseCase{tokens: tokens, jwks: jwks, idp: idp, apiKeys: apiKeys, denyList: denyList}
}

// LoginPassword delegates credential verification to the external identity
// provider, then mints a session token scoped to tenantID. Password sessions
// carry no scopes: the IdP token exposes none, so authorization rests entirely
// on the subject's relations in the tuple store. Scoped principals come from
// the API-key paths, where scopes are part of the key record.
func (u *identityUseCase) LoginPassword(
	ctx context.Context, tenantID, username, password string,
) (string, domain.Principal, time.Time, error) {
	idpToken, err := u.idp.PasswordGrant(ctx, username, password)
	if err != nil {
		return "", domain.Principal{}, time.Time{}, err
	}
	claims, err := u.jwks.Verify(ctx, idpToken)
	if err != nil {
		return "", domain.Principal{}, time.Time{}, domain.ErrAuthenticationFailed
	}

	principal := domain.Principal{UserID: claims.Subject, TenantID: tenantID}
	signed, exp, err := u.tokens.Mint(claims.Subject, tenantID, nil)
	if err != nil {
		return "", domain.Principal{}, time.Time{}, err
	}
	return signed, principal, exp, nil
}

// LoginM2M authenticates a machine client via the client-credentials grant and
// proceeds identically to password login (§4.4).
func (u *identityUseCase) LoginM2M(
	ctx context.Context, tenantID, clientID, clientSecret string,
) (string, time.Time, error) {
	idpToken, err := u.idp.ClientCredentialsGrant(ctx, clientID, clientSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	claims, err := u.jwks.Verify(ctx, idpToken)
	if err != nil {
		return "", time.Time{}, domain.ErrAuthenticationFailed
	}
	signed, exp, err := u.tokens.Mint(claims.Subject, tenantID, nil)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// LoginWithAPIKey verifies rawKey via the API-key subsystem and mints a session
// token for the resolved principal.
func (u *identityUseCase) LoginWithAPIKey(ctx context.Context, rawKey string) (string, domain.Principal, time.Time, error) {
	principal, err := u.apiKeys.Verify(ctx, rawKey)
	if err != nil {
		return "", domain.Principal{}, time.Time{}, err
	}
	signed, exp, err := u.tokens.Mint(principal.UserID, principal.TenantID, principal.Scopes)
	if err != nil {
		return "", domain.Principal{}, time.Time{}, err
	}
	return signed, principal, exp, nil
}

// Validate verifies a session token's signature and expiry, and rejects it if
// the subject has logged out since it was issued.
func (u *identityUseCase) Validate(ctx context.Context, sessionToken string) (domain.Principal, error) {
	claims, err := u.tokens.Verify(sessionToken)
	if err != nil {
		return domain.Principal{}, err
	}
	if time.Now().After(claims.ExpiresAt) {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	if u.denyList.IsRevoked(claims.Subject, claims.IssuedAt) {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	return domain.Principal{UserID: claims.Subject, TenantID: claims.TenantID, Scopes: claims.Scopes}, nil
}

// Logout is best-effort: it records userID's logout watermark so every session
// token issued at or before now is rejected by subsequent Validate calls.
func (u *identityUseCase) Logout(ctx context.Context, userID string) {
	u.denyList.Logout(userID)
}

// VerifyIdPToken verifies a caller-presented identity-provider token directly,
// used by the token-exchange service (C6).
func (u *identityUseCase) VerifyIdPToken(ctx context.Context, idpToken string) (domain.IdPClaims, error) {
	return u.jwks.Verify(ctx, idpToken)
}
