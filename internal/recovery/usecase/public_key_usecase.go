package usecase

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/recovery/domain"
	"github.com/allisson/authkeyd/internal/recovery/repository"
)

// publicKeyUseCase implements PublicKeyUseCase. Keys are self-service: a user
// manages its own registrations; reads are open to any authenticated member so
// admins can encrypt shares for each other.
type publicKeyUseCase struct {
	repo repository.PublicKeyRepository
}

// NewPublicKeyUseCase creates the public-key registry use case.
func NewPublicKeyUseCase(repo repository.PublicKeyRepository) PublicKeyUseCase {
	return &publicKeyUseCase{repo: repo}
}

// Store upserts the caller's key for a purpose.
func (u *publicKeyUseCase) Store(
	ctx context.Context, tenantID, userID, purpose, publicKey string,
) (*domain.PublicKey, error) {
	now := time.Now()
	key := &domain.PublicKey{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    userID,
		TenantID:  tenantID,
		Purpose:   purpose,
		PublicKey: publicKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.repo.Upsert(ctx, key); err != nil {
		return nil, err
	}
	return u.repo.Get(ctx, tenantID, userID, purpose)
}

// Get retrieves the key registered for (user, purpose).
func (u *publicKeyUseCase) Get(ctx context.Context, tenantID, userID, purpose string) (*domain.PublicKey, error) {
	return u.repo.Get(ctx, tenantID, userID, purpose)
}

// ListByUser retrieves every key a user registered within the tenant.
func (u *publicKeyUseCase) ListByUser(ctx context.Context, tenantID, userID string) ([]*domain.PublicKey, error) {
	return u.repo.ListByUser(ctx, tenantID, userID)
}

// Update replaces the key material; only the key's owner may update it.
func (u *publicKeyUseCase) Update(
	ctx context.Context, tenantID, callerUserID string, id uuid.UUID, publicKey string,
) (*domain.PublicKey, error) {
	existing, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.TenantID != tenantID {
		return nil, domain.ErrPublicKeyNotFound
	}
	if existing.UserID != callerUserID {
		return nil, apperrors.Wrap(apperrors.ErrForbidden, "only the key owner may update it")
	}
	return u.repo.Update(ctx, id, publicKey)
}

// Delete removes a registration; only the key's owner may delete it.
func (u *publicKeyUseCase) Delete(ctx context.Context, tenantID, callerUserID string, id uuid.UUID) error {
	existing, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.TenantID != tenantID {
		return domain.ErrPublicKeyNotFound
	}
	if existing.UserID != callerUserID {
		return apperrors.Wrap(apperrors.ErrForbidden, "only the key owner may delete it")
	}
	return u.repo.Delete(ctx, id)
}

// Verify reports whether the presented key matches the stored registration.
func (u *publicKeyUseCase) Verify(
	ctx context.Context, tenantID, userID, purpose, publicKey string,
) (bool, error) {
	stored, err := u.repo.Get(ctx, tenantID, userID, purpose)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(stored.PublicKey), []byte(publicKey)) == 1, nil
}

// DeleteByTenant removes every key for tenantID, used by tenant deletion's cascade.
func (u *publicKeyUseCase) DeleteByTenant(ctx context.Context, tenantID string) error {
	return u.repo.DeleteByTenant(ctx, tenantID)
}
