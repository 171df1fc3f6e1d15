// Package usecase implements the identity gateway (C4): IdP token verification,
// password/M2M/API-key login, session token issuance and validation, and logout.
package usecase

import (
	"context"
	"time"

	"github.com/allisson/authkeyd/internal/identity/domain"
)

// APIKeyVerifier is the narrow slice of the API-key subsystem (C5) the identity
// gateway depends on to implement "login-with-api-key", without importing the
// full apikey usecase and creating an import cycle.
type APIKeyVerifier interface {
	Verify(ctx context.Context, rawKey string) (domain.Principal, error)
}

// IdentityUseCase is the identity gateway's (C4) public contract.
type IdentityUseCase interface {
	LoginPassword(ctx context.Context, tenantID, username, password string) (string, domain.Principal, time.Time, error)
	LoginM2M(ctx context.Context, tenantID, clientID, clientSecret string) (string, time.Time, error)
	LoginWithAPIKey(ctx context.Context, rawKey string) (string, domain.Principal, time.Time, error)
	Validate(ctx context.Context, sessionToken string) (domain.Principal, error)
	Logout(ctx context.Context, userID string)
	VerifyIdPToken(ctx context.Context, idpToken string) (domain.IdPClaims, error)
}
