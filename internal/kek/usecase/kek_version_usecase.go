package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authkeyd/internal/database"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/kek/domain"
	"github.com/allisson/authkeyd/internal/kek/repository"
)

// kekVersionUseCase implements KekVersionUseCase. Version creations and status
// transitions are serialized per tenant (§5): the in-process mutex prevents two
// concurrent creates from both observing "no active version", and the
// transaction makes read-current-active / insert-new / demote-old atomic
// against the store.
type kekVersionUseCase struct {
	txManager database.TxManager
	repo      repository.KekVersionRepository

	mu          sync.Mutex
	tenantLocks map[string]*sync.Mutex
}

// NewKekVersionUseCase creates the KEK version registry use case.
func NewKekVersionUseCase(txManager database.TxManager, repo repository.KekVersionRepository) KekVersionUseCase {
	return &kekVersionUseCase{
		txManager:   txManager,
		repo:        repo,
		tenantLocks: map[string]*sync.Mutex{},
	}
}

func (u *kekVersionUseCase) lockFor(tenantID string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	l, ok := u.tenantLocks[tenantID]
	if !ok {
		l = &sync.Mutex{}
		u.tenantLocks[tenantID] = l
	}
	return l
}

// List returns every version for tenantID.
func (u *kekVersionUseCase) List(ctx context.Context, tenantID string) ([]*domain.KekVersion, error) {
	return u.repo.List(ctx, tenantID)
}

// GetActive returns the tenant's single active version.
func (u *kekVersionUseCase) GetActive(ctx context.Context, tenantID string) (*domain.KekVersion, error) {
	return u.repo.GetActive(ctx, tenantID)
}

// Get returns one version by id.
func (u *kekVersionUseCase) Get(ctx context.Context, tenantID, id string) (*domain.KekVersion, error) {
	return u.repo.Get(ctx, tenantID, id)
}

// Create makes a new active version for the tenant. Any prior active version is
// demoted to decrypt-only in the same transaction, preserving the single-active
// invariant at every observable point.
func (u *kekVersionUseCase) Create(ctx context.Context, input domain.CreateVersionInput) (*domain.KekVersion, error) {
	lock := u.lockFor(input.TenantID)
	lock.Lock()
	defer lock.Unlock()

	return u.createLocked(ctx, input)
}

// Rotate is Create plus the removed-users deny-list: blobs for RemovedUsers
// can never be provisioned against the version this call creates (S4).
func (u *kekVersionUseCase) Rotate(ctx context.Context, input domain.CreateVersionInput) (*domain.KekVersion, error) {
	lock := u.lockFor(input.TenantID)
	lock.Lock()
	defer lock.Unlock()

	return u.createLocked(ctx, input)
}

func (u *kekVersionUseCase) createLocked(
	ctx context.Context, input domain.CreateVersionInput,
) (*domain.KekVersion, error) {
	id := input.ID
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}

	version := &domain.KekVersion{
		ID:        id,
		TenantID:  input.TenantID,
		CreatedBy: input.InitiatorID,
		Reason:    input.Reason,
		Status:    domain.KekVersionActive,
		CreatedAt: time.Now(),
	}

	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		prior, err := u.repo.GetActive(ctx, input.TenantID)
		if err != nil && !apperrors.Is(err, domain.ErrActiveKekVersionNotFound) {
			return err
		}

		if err := u.repo.Create(ctx, version); err != nil {
			return err
		}
		if prior != nil {
			if err := u.repo.UpdateStatus(ctx, input.TenantID, prior.ID, domain.KekVersionDecryptOnly); err != nil {
				return err
			}
		}
		if len(input.RemovedUsers) > 0 {
			if err := u.repo.AddRemovedUsers(ctx, input.TenantID, version.ID, input.RemovedUsers); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// UpdateStatus applies a state-machine transition to one version. Promotion to
// active is always rejected; a deprecated version never leaves deprecated (S3,
// invariants 1 and 2).
func (u *kekVersionUseCase) UpdateStatus(
	ctx context.Context, tenantID, id string, status domain.KekVersionStatus,
) (*domain.KekVersion, error) {
	if !status.Valid() {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "unknown kek version status")
	}

	lock := u.lockFor(tenantID)
	lock.Lock()
	defer lock.Unlock()

	var updated *domain.KekVersion
	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		version, err := u.repo.Get(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if !version.Status.CanTransitionTo(status) {
			return domain.ErrInvalidStatusTransition
		}
		if err := u.repo.UpdateStatus(ctx, tenantID, id, status); err != nil {
			return err
		}
		version.Status = status
		updated = version
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// IsUserRemoved reports whether userID is on versionID's deny-list.
func (u *kekVersionUseCase) IsUserRemoved(ctx context.Context, tenantID, versionID, userID string) (bool, error) {
	return u.repo.IsUserRemoved(ctx, tenantID, versionID, userID)
}

// DeleteByTenant removes every version for tenantID.
func (u *kekVersionUseCase) DeleteByTenant(ctx context.Context, tenantID string) error {
	lock := u.lockFor(tenantID)
	lock.Lock()
	defer lock.Unlock()

	return u.repo.DeleteByTenant(ctx, tenantID)
}
