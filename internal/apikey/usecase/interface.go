// Package usecase implements the API-key subsystem (C5): issuance, listing,
// revocation, and direct/challenge verification.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authkeyd/internal/apikey/domain"
	identityDomain "github.com/allisson/authkeyd/internal/identity/domain"
)

// APIKeyUseCase is the API-key subsystem's public contract. Verify's signature
// matches identity/usecase.APIKeyVerifier so it can be wired into the identity
// gateway's "login-with-api-key" path without an adapter.
type APIKeyUseCase interface {
	Issue(ctx context.Context, input domain.IssueInput) (domain.IssueOutput, error)
	List(ctx context.Context, tenantID, userID string) ([]domain.APIKey, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Verify(ctx context.Context, rawKey string) (identityDomain.Principal, error)
	IssueChallenge(ctx context.Context) (string, time.Duration, error)
	VerifyChallenge(ctx context.Context, challenge, response string) (identityDomain.Principal, error)
}
