// Package repository persists KEK versions, their removed-user deny-lists, and
// per-user encrypted blobs under a tenant-scoped namespace (§6 persistence layout).
package repository

import (
	"context"

	"github.com/allisson/authkeyd/internal/kek/domain"
)

// KekVersionRepository persists and retrieves KEK versions. Implementations
// must enforce uniqueness of (tenant_id, id) and support the secondary lookup
// by status that backs GetActive.
type KekVersionRepository interface {
	Create(ctx context.Context, version *domain.KekVersion) error
	Get(ctx context.Context, tenantID, id string) (*domain.KekVersion, error)
	GetActive(ctx context.Context, tenantID string) (*domain.KekVersion, error)
	List(ctx context.Context, tenantID string) ([]*domain.KekVersion, error)
	UpdateStatus(ctx context.Context, tenantID, id string, status domain.KekVersionStatus) error
	// AddRemovedUsers records users that must never be provisioned a blob for
	// versionID (populated by rotate's removed_users).
	AddRemovedUsers(ctx context.Context, tenantID, versionID string, userIDs []string) error
	IsUserRemoved(ctx context.Context, tenantID, versionID, userID string) (bool, error)
	// DeleteByTenant removes every version and removed-user entry for tenantID,
	// used by tenant deletion's cascade.
	DeleteByTenant(ctx context.Context, tenantID string) error
}

// KekBlobRepository persists per-(tenant, user, version) encrypted blobs.
type KekBlobRepository interface {
	Get(ctx context.Context, tenantID, userID, versionID string) (*domain.KekBlob, error)
	ListForUser(ctx context.Context, tenantID, userID string) ([]*domain.KekBlob, error)
	// Set is an upsert on (tenant_id, user_id, kek_version_id).
	Set(ctx context.Context, blob *domain.KekBlob) error
	Delete(ctx context.Context, tenantID, userID, versionID string) error
	DeleteByTenant(ctx context.Context, tenantID string) error
}
