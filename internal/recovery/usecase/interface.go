// Package usecase implements the public-key registry and the threshold KEK
// recovery protocol (C9).
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authzDomain "github.com/allisson/authkeyd/internal/authz/domain"
	kekDomain "github.com/allisson/authkeyd/internal/kek/domain"
	"github.com/allisson/authkeyd/internal/recovery/domain"
)

// RelationChecker is the narrow slice of the authorization service (C3) the
// recovery protocol depends on for its admin/member gates.
type RelationChecker interface {
	Check(ctx context.Context, tenantID, user string, relation authzDomain.Relation, object string, contextualTuples []authzDomain.Tuple) (bool, error)
}

// KekVersionRegistry is the slice of the KEK version registry (C7) recovery
// depends on: validating the version under recovery and creating the version
// that completion produces.
type KekVersionRegistry interface {
	Get(ctx context.Context, tenantID, id string) (*kekDomain.KekVersion, error)
	Create(ctx context.Context, input kekDomain.CreateVersionInput) (*kekDomain.KekVersion, error)
}

// PublicKeyUseCase is the public-key registry's contract.
type PublicKeyUseCase interface {
	// Store upserts the caller's key for a purpose.
	Store(ctx context.Context, tenantID, userID, purpose, publicKey string) (*domain.PublicKey, error)
	Get(ctx context.Context, tenantID, userID, purpose string) (*domain.PublicKey, error)
	ListByUser(ctx context.Context, tenantID, userID string) ([]*domain.PublicKey, error)
	// Update replaces the key material; only the key's owner may update it.
	Update(ctx context.Context, tenantID, callerUserID string, id uuid.UUID, publicKey string) (*domain.PublicKey, error)
	// Delete removes a registration; only the key's owner may delete it.
	Delete(ctx context.Context, tenantID, callerUserID string, id uuid.UUID) error
	// Verify reports whether the presented key matches the stored registration.
	Verify(ctx context.Context, tenantID, userID, purpose, publicKey string) (bool, error)
	DeleteByTenant(ctx context.Context, tenantID string) error
}

// RecoveryUseCase is the threshold recovery protocol's contract.
type RecoveryUseCase interface {
	Initiate(ctx context.Context, input domain.InitiateInput) (*domain.RecoverySession, error)
	// SubmitShare records one member's share; each submitter contributes at
	// most once per session.
	SubmitShare(ctx context.Context, sessionID, tenantID, submitterUserID, encryptedFor, ciphertext string) (*domain.RecoverySession, error)
	// Complete finishes the session: threshold must be met, only the initiator
	// may call it, and a new active KEK version is created atomically.
	Complete(ctx context.Context, tenantID string, input domain.CompleteInput) (*domain.RecoverySession, *kekDomain.KekVersion, error)
	// Cancel aborts a pending session; only the initiator may cancel.
	Cancel(ctx context.Context, sessionID, tenantID, callerUserID string) error
	// GetSession returns the session including its shares' ciphertexts;
	// redaction happens in the HTTP DTO.
	GetSession(ctx context.Context, sessionID, tenantID string) (*domain.RecoverySession, error)
	// ListSessions returns the tenant's sessions, newest first, without shares.
	ListSessions(ctx context.Context, tenantID string) ([]*domain.RecoverySession, error)
	DeleteByTenant(ctx context.Context, tenantID string) error
	// SweepExpired marks overdue pending sessions expired; the background
	// sweeper calls this periodically, reads enforce it lazily.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}
