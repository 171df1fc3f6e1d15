// Package usecase implements the KEK custody business logic: the version
// registry with its status state machine (C7) and the per-user encrypted blob
// store with its access rules (C8).
package usecase

import (
	"context"

	authzDomain "github.com/allisson/authkeyd/internal/authz/domain"
	"github.com/allisson/authkeyd/internal/kek/domain"
)

// RelationChecker is the narrow slice of the authorization service (C3) the
// blob store depends on to distinguish self-reads from admin reads.
type RelationChecker interface {
	Check(ctx context.Context, tenantID, user string, relation authzDomain.Relation, object string, contextualTuples []authzDomain.Tuple) (bool, error)
}

// KekVersionUseCase is the KEK version registry's (C7) public contract.
type KekVersionUseCase interface {
	List(ctx context.Context, tenantID string) ([]*domain.KekVersion, error)
	GetActive(ctx context.Context, tenantID string) (*domain.KekVersion, error)
	Get(ctx context.Context, tenantID, id string) (*domain.KekVersion, error)
	// Create makes a new active version, atomically demoting any prior active
	// one to decrypt-only.
	Create(ctx context.Context, input domain.CreateVersionInput) (*domain.KekVersion, error)
	UpdateStatus(ctx context.Context, tenantID, id string, status domain.KekVersionStatus) (*domain.KekVersion, error)
	// Rotate is Create plus a removed-users deny-list on the new version.
	Rotate(ctx context.Context, input domain.CreateVersionInput) (*domain.KekVersion, error)
	// IsUserRemoved reports whether userID is denied blobs for versionID.
	IsUserRemoved(ctx context.Context, tenantID, versionID, userID string) (bool, error)
	// DeleteByTenant cascades a tenant deletion through the registry.
	DeleteByTenant(ctx context.Context, tenantID string) error
}

// KekBlobUseCase is the KEK blob store's (C8) public contract. Every method
// takes the caller so the use case itself can enforce the read-own versus
// admin-read-others rule.
type KekBlobUseCase interface {
	Get(ctx context.Context, tenantID, callerUserID, targetUserID, versionID string) (*domain.KekBlob, error)
	ListForUser(ctx context.Context, tenantID, callerUserID, targetUserID string) ([]*domain.KekBlob, error)
	Set(ctx context.Context, tenantID, callerUserID, targetUserID, versionID, encryptedBlob string) (*domain.KekBlob, error)
	Delete(ctx context.Context, tenantID, callerUserID, targetUserID, versionID string) error
	DeleteByTenant(ctx context.Context, tenantID string) error
}
