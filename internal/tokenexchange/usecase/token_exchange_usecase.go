package usecase

import (
	"context"
	"time"

	authzDomain "github.com/allisson/authkeyd/internal/authz/domain"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	identityDomain "github.com/allisson/authkeyd/internal/identity/domain"
	identityService "github.com/allisson/authkeyd/internal/identity/service"
)

// DefaultResourceTokenTTL bounds resource tokens when configuration doesn't
// override it. Resource tokens are deliberately short-lived: they gate a single
// resource for the duration of a burst of requests, not a session.
const DefaultResourceTokenTTL = 5 * time.Minute

// tokenExchangeUseCase implements TokenExchangeUseCase over the identity
// gateway's verifier and signer plus the authorization service's check path.
type tokenExchangeUseCase struct {
	idp              IdPTokenVerifier
	tokens           *identityService.SessionTokenService
	checker          RelationChecker
	resourceTokenTTL time.Duration
}

// New creates the token-exchange use case.
func New(
	idp IdPTokenVerifier,
	tokens *identityService.SessionTokenService,
	checker RelationChecker,
	resourceTokenTTL time.Duration,
) TokenExchangeUseCase {
	if resourceTokenTTL <= 0 {
		resourceTokenTTL = DefaultResourceTokenTTL
	}
	return &tokenExchangeUseCase{idp: idp, tokens: tokens, checker: checker, resourceTokenTTL: resourceTokenTTL}
}

// verifySubject verifies the IdP token and cross-checks the subject's member
// relation on the tenant (§4.5).
func (u *tokenExchangeUseCase) verifySubject(ctx context.Context, idpToken, tenantID string) (string, error) {
	claims, err := u.idp.VerifyIdPToken(ctx, idpToken)
	if err != nil {
		return "", identityDomain.ErrInvalidToken
	}
	subject := claims.Subject

	member, err := u.checker.Check(
		ctx, tenantID, "user:"+subject, authzDomain.RelationMember, "tenant:"+tenantID, nil,
	)
	if err != nil {
		return "", err
	}
	if !member {
		return "", apperrors.Wrap(apperrors.ErrForbidden, "subject is not a member of the tenant")
	}
	return subject, nil
}

// Exchange trades a verified IdP token for a tenant-scoped session token.
func (u *tokenExchangeUseCase) Exchange(ctx context.Context, idpToken, tenantID string) (string, time.Time, error) {
	subject, err := u.verifySubject(ctx, idpToken, tenantID)
	if err != nil {
		return "", time.Time{}, err
	}
	return u.tokens.Mint(subject, tenantID, nil)
}

// ExchangeForResource trades a verified IdP token for a short-lived token bound
// to a single resource, requiring the reader relation on it.
func (u *tokenExchangeUseCase) ExchangeForResource(
	ctx context.Context, idpToken, tenantID, resource string,
) (string, time.Time, error) {
	subject, err := u.verifySubject(ctx, idpToken, tenantID)
	if err != nil {
		return "", time.Time{}, err
	}

	allowed, err := u.checker.Check(
		ctx, tenantID, "user:"+subject, authzDomain.RelationReader, resource, nil,
	)
	if err != nil {
		return "", time.Time{}, err
	}
	if !allowed {
		return "", time.Time{}, apperrors.Wrap(apperrors.ErrForbidden, "subject lacks the reader relation on the resource")
	}

	return u.tokens.MintResourceToken(subject, tenantID, resource, u.resourceTokenTTL)
}

// VerifyResourceToken validates a resource token's signature and expiry, and
// enforces the tenant binding: a token presented under a different tenant than
// it was minted for is invalid regardless of its signature (invariant 4).
func (u *tokenExchangeUseCase) VerifyResourceToken(
	ctx context.Context, token, tenantID string,
) (ResourceClaims, error) {
	claims, resource, err := u.tokens.VerifyResourceToken(token)
	if err != nil {
		return ResourceClaims{}, err
	}
	if time.Now().After(claims.ExpiresAt) {
		return ResourceClaims{}, identityDomain.ErrInvalidToken
	}
	if tenantID != "" && claims.TenantID != tenantID {
		return ResourceClaims{}, identityDomain.ErrInvalidToken
	}
	return ResourceClaims{
		UserID:    claims.Subject,
		TenantID:  claims.TenantID,
		Resource:  resource,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}
