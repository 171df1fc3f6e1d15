package usecase

import (
	"context"
	"time"

	authzDomain "github.com/allisson/authkeyd/internal/authz/domain"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/kek/domain"
	"github.com/allisson/authkeyd/internal/kek/repository"
)

// kekBlobUseCase implements KekBlobUseCase. Access rules (§4.7): a caller reads
// its own blobs unconditionally; reading another user's blob, provisioning, and
// deletion all require admin on the tenant.
type kekBlobUseCase struct {
	blobRepo repository.KekBlobRepository
	versions KekVersionUseCase
	checker  RelationChecker
}

// NewKekBlobUseCase creates the KEK blob store use case.
func NewKekBlobUseCase(
	blobRepo repository.KekBlobRepository,
	versions KekVersionUseCase,
	checker RelationChecker,
) KekBlobUseCase {
	return &kekBlobUseCase{blobRepo: blobRepo, versions: versions, checker: checker}
}

func (u *kekBlobUseCase) requireSelfOrAdmin(ctx context.Context, tenantID, callerUserID, targetUserID string) error {
	if callerUserID == targetUserID {
		return nil
	}
	return u.requireAdmin(ctx, tenantID, callerUserID)
}

func (u *kekBlobUseCase) requireAdmin(ctx context.Context, tenantID, callerUserID string) error {
	allowed, err := u.checker.Check(
		ctx, tenantID, "user:"+callerUserID, authzDomain.RelationAdmin, "tenant:"+tenantID, nil,
	)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.Wrap(apperrors.ErrForbidden, "caller is not tenant admin")
	}
	return nil
}

// Get returns the blob for (tenant, targetUser, version).
func (u *kekBlobUseCase) Get(
	ctx context.Context, tenantID, callerUserID, targetUserID, versionID string,
) (*domain.KekBlob, error) {
	if err := u.requireSelfOrAdmin(ctx, tenantID, callerUserID, targetUserID); err != nil {
		return nil, err
	}
	return u.blobRepo.Get(ctx, tenantID, targetUserID, versionID)
}

// ListForUser returns every blob provisioned for targetUser.
func (u *kekBlobUseCase) ListForUser(
	ctx context.Context, tenantID, callerUserID, targetUserID string,
) ([]*domain.KekBlob, error) {
	if err := u.requireSelfOrAdmin(ctx, tenantID, callerUserID, targetUserID); err != nil {
		return nil, err
	}
	return u.blobRepo.ListForUser(ctx, tenantID, targetUserID)
}

// Set provisions (or re-provisions) targetUser's blob for versionID. The
// version must exist and not be deprecated, and targetUser must not be on the
// version's removed-users deny-list (S4).
func (u *kekBlobUseCase) Set(
	ctx context.Context, tenantID, callerUserID, targetUserID, versionID, encryptedBlob string,
) (*domain.KekBlob, error) {
	if err := u.requireAdmin(ctx, tenantID, callerUserID); err != nil {
		return nil, err
	}

	version, err := u.versions.Get(ctx, tenantID, versionID)
	if err != nil {
		return nil, err
	}
	if version.Status == domain.KekVersionDeprecated {
		return nil, domain.ErrVersionDeprecated
	}

	removed, err := u.versions.IsUserRemoved(ctx, tenantID, versionID, targetUserID)
	if err != nil {
		return nil, err
	}
	if removed {
		return nil, domain.ErrUserRemovedFromVersion
	}

	now := time.Now()
	blob := &domain.KekBlob{
		TenantID:      tenantID,
		UserID:        targetUserID,
		KekVersionID:  versionID,
		EncryptedBlob: encryptedBlob,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := u.blobRepo.Set(ctx, blob); err != nil {
		return nil, err
	}
	return blob, nil
}

// Delete removes targetUser's blob for versionID.
func (u *kekBlobUseCase) Delete(ctx context.Context, tenantID, callerUserID, targetUserID, versionID string) error {
	if err := u.requireAdmin(ctx, tenantID, callerUserID); err != nil {
		return err
	}
	return u.blobRepo.Delete(ctx, tenantID, targetUserID, versionID)
}

// DeleteByTenant removes every blob for tenantID, used by tenant deletion's cascade.
func (u *kekBlobUseCase) DeleteByTenant(ctx context.Context, tenantID string) error {
	return u.blobRepo.DeleteByTenant(ctx, tenantID)
}
