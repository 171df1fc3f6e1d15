// Package repository persists public keys and recovery sessions under a
// tenant-scoped namespace (§6: pubkey:{tenant}:{user}:{purpose},
// recovery:{tenant}:{id}).
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authkeyd/internal/recovery/domain"
)

// PublicKeyRepository persists per-(user, purpose, tenant) public keys.
type PublicKeyRepository interface {
	// Upsert inserts or replaces the key for (user, purpose, tenant).
	Upsert(ctx context.Context, key *domain.PublicKey) error
	Get(ctx context.Context, tenantID, userID, purpose string) (*domain.PublicKey, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PublicKey, error)
	ListByUser(ctx context.Context, tenantID, userID string) ([]*domain.PublicKey, error)
	Update(ctx context.Context, id uuid.UUID, publicKey string) (*domain.PublicKey, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByTenant(ctx context.Context, tenantID string) error
}

// RecoverySessionRepository persists recovery sessions and their shares.
type RecoverySessionRepository interface {
	Create(ctx context.Context, session *domain.RecoverySession) error
	// Get returns the session with its shares loaded.
	Get(ctx context.Context, id string) (*domain.RecoverySession, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.RecoverySession, error)
	UpdateStatus(ctx context.Context, id string, status domain.RecoverySessionStatus) error
	// SetCompleted atomically marks the session completed and records the new
	// version association and the re-encrypted recovered KEK.
	SetCompleted(ctx context.Context, id, newVersionID, recoveredKEKCiphertext string) error
	// AddShare appends a share; a second share from the same submitter fails
	// with ErrDuplicateShare.
	AddShare(ctx context.Context, share *domain.RecoveryShare) error
	// ExpirePending marks every pending session past its deadline as expired,
	// returning how many were transitioned. Used by the sweeper.
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
	DeleteByTenant(ctx context.Context, tenantID string) error
}
