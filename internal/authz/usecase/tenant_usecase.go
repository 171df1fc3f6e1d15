// Package usecase implements tenant lifecycle orchestration: bootstrap couples
// the authorization graph (C3) with the tenant's first KEK version (C7), and
// deletion cascades across every tenant-scoped store.
package usecase

import (
	"context"
	"log/slog"

	"github.com/allisson/authkeyd/internal/authz/service"
	kekDomain "github.com/allisson/authkeyd/internal/kek/domain"
)

// KekInitializer is the slice of the KEK version registry (C7) tenant bootstrap
// depends on to mint the tenant's first active version.
type KekInitializer interface {
	Create(ctx context.Context, input kekDomain.CreateVersionInput) (*kekDomain.KekVersion, error)
}

// TenantResourceRemover is implemented by every store holding tenant-scoped
// state (KEK versions, blobs, recovery sessions, public keys); tenant deletion
// fans out across all of them.
type TenantResourceRemover interface {
	DeleteByTenant(ctx context.Context, tenantID string) error
}

// TenantUseCase is the tenant lifecycle contract.
type TenantUseCase interface {
	// Create bootstraps a tenant: existence tuple, initial admin+member, and a
	// fresh active KEK version (§3). No partial state survives a failure.
	Create(ctx context.Context, tenantID, adminUserID string) error
	// Delete removes the tenant's tuples and cascades across every
	// tenant-scoped store. Requires admin on the tenant or on system:*.
	Delete(ctx context.Context, tenantID, callerUserID string) error
	List(ctx context.Context) ([]string, error)
	AddUser(ctx context.Context, tenantID, userID string, asAdmin bool) error
	UpdateUserRole(ctx context.Context, tenantID, userID string, admin bool) error
}

type tenantUseCase struct {
	authz    *service.Service
	kek      KekInitializer
	removers []TenantResourceRemover
	logger   *slog.Logger
}

// NewTenantUseCase creates the tenant lifecycle use case. removers receive the
// cascade on delete, in order.
func NewTenantUseCase(
	authz *service.Service,
	kek KekInitializer,
	logger *slog.Logger,
	removers ...TenantResourceRemover,
) TenantUseCase {
	return &tenantUseCase{authz: authz, kek: kek, removers: removers, logger: logger}
}

// Create bootstraps the tenant. If KEK initialization fails after the tuples
// were written, the tuples are rolled back so a retry starts clean.
func (u *tenantUseCase) Create(ctx context.Context, tenantID, adminUserID string) error {
	if err := u.authz.CreateTenant(ctx, tenantID, adminUserID); err != nil {
		return err
	}

	_, err := u.kek.Create(ctx, kekDomain.CreateVersionInput{
		TenantID:    tenantID,
		InitiatorID: adminUserID,
		Reason:      "tenant bootstrap",
	})
	if err != nil {
		if cleanupErr := u.authz.CleanupTenant(ctx, tenantID); cleanupErr != nil {
			u.logger.Error("tenant bootstrap rollback failed",
				slog.String("tenant_id", tenantID), slog.Any("error", cleanupErr))
		}
		return err
	}
	return nil
}

// Delete removes the authorization graph first (which also enforces the
// caller's admin requirement), then fans out to every tenant-scoped store.
func (u *tenantUseCase) Delete(ctx context.Context, tenantID, callerUserID string) error {
	if err := u.authz.DeleteTenant(ctx, tenantID, callerUserID); err != nil {
		return err
	}
	for _, remover := range u.removers {
		if err := remover.DeleteByTenant(ctx, tenantID); err != nil {
			return err
		}
	}
	return nil
}

// List returns every known tenant id.
func (u *tenantUseCase) List(ctx context.Context) ([]string, error) {
	return u.authz.ListTenants(ctx)
}

// AddUser grants membership (and optionally admin) on the tenant.
func (u *tenantUseCase) AddUser(ctx context.Context, tenantID, userID string, asAdmin bool) error {
	return u.authz.AddUserToTenant(ctx, tenantID, userID, asAdmin)
}

// UpdateUserRole promotes or demotes a user's admin relation.
func (u *tenantUseCase) UpdateUserRole(ctx context.Context, tenantID, userID string, admin bool) error {
	return u.authz.UpdateUserRole(ctx, tenantID, userID, admin)
}
