// Package usecase implements the token-exchange service (C6): trading a
// verified identity-provider token for a tenant-scoped session token or a
// short-lived resource-scoped token.
package usecase

import (
	"context"
	"time"

	authzDomain "github.com/allisson/authkeyd/internal/authz/domain"
	identityDomain "github.com/allisson/authkeyd/internal/identity/domain"
)

// IdPTokenVerifier is the slice of the identity gateway (C4) this service uses
// to verify the inbound identity-provider token.
type IdPTokenVerifier interface {
	VerifyIdPToken(ctx context.Context, idpToken string) (identityDomain.IdPClaims, error)
}

// RelationChecker is the slice of the authorization service (C3) this service
// uses to cross-check tenant membership and resource relations before minting.
type RelationChecker interface {
	Check(ctx context.Context, tenantID, user string, relation authzDomain.Relation, object string, contextualTuples []authzDomain.Tuple) (bool, error)
}

// ResourceClaims is what a successfully verified resource token resolves to.
type ResourceClaims struct {
	UserID    string
	TenantID  string
	Resource  string
	ExpiresAt time.Time
}

// TokenExchangeUseCase is the token-exchange service's public contract.
type TokenExchangeUseCase interface {
	// Exchange verifies an IdP token, requires the subject's member relation on
	// the tenant, and mints a session token.
	Exchange(ctx context.Context, idpToken, tenantID string) (string, time.Time, error)
	// ExchangeForResource additionally requires the reader relation on the
	// resource and mints a short-lived token bound to exactly that (tenant,
	// resource) pair.
	ExchangeForResource(ctx context.Context, idpToken, tenantID, resource string) (string, time.Time, error)
	// VerifyResourceToken validates signature, expiry, and the tenant binding
	// against the presenting request's tenant.
	VerifyResourceToken(ctx context.Context, token, tenantID string) (ResourceClaims, error)
}
