package usecase

import (
	"context"
	"time"

	"github.com/allisson/authkeyd/internal/kek/domain"
	"github.com/allisson/authkeyd/internal/metrics"
)

// kekVersionUseCaseWithMetrics decorates KekVersionUseCase with metrics
// instrumentation.
type kekVersionUseCaseWithMetrics struct {
	next    KekVersionUseCase
	metrics metrics.BusinessMetrics
}

// NewKekVersionUseCaseWithMetrics wraps a KekVersionUseCase with metrics recording.
func NewKekVersionUseCaseWithMetrics(useCase KekVersionUseCase, m metrics.BusinessMetrics) KekVersionUseCase {
	return &kekVersionUseCaseWithMetrics{next: useCase, metrics: m}
}

func (k *kekVersionUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	k.metrics.RecordOperation(ctx, "kek", operation, status)
	k.metrics.RecordDuration(ctx, "kek", operation, time.Since(start), status)
}

// List records metrics for version listings.
func (k *kekVersionUseCaseWithMetrics) List(ctx context.Context, tenantID string) ([]*domain.KekVersion, error) {
	start := time.Now()
	versions, err := k.next.List(ctx, tenantID)
	k.record(ctx, "version_list", start, err)
	return versions, err
}

// GetActive records metrics for active-version lookups.
func (k *kekVersionUseCaseWithMetrics) GetActive(ctx context.Context, tenantID string) (*domain.KekVersion, error) {
	start := time.Now()
	version, err := k.next.GetActive(ctx, tenantID)
	k.record(ctx, "version_get_active", start, err)
	return version, err
}

// Get records metrics for version lookups.
func (k *kekVersionUseCaseWithMetrics) Get(ctx context.Context, tenantID, id string) (*domain.KekVersion, error) {
	start := time.Now()
	version, err := k.next.Get(ctx, tenantID, id)
	k.record(ctx, "version_get", start, err)
	return version, err
}

// Create records metrics for version creations.
func (k *kekVersionUseCaseWithMetrics) Create(
	ctx context.Context, input domain.CreateVersionInput,
) (*domain.KekVersion, error) {
	start := time.Now()
	version, err := k.next.Create(ctx, input)
	k.record(ctx, "version_create", start, err)
	return version, err
}

// UpdateStatus records metrics for status transitions.
func (k *kekVersionUseCaseWithMetrics) UpdateStatus(
	ctx context.Context, tenantID, id string, status domain.KekVersionStatus,
) (*domain.KekVersion, error) {
	start := time.Now()
	version, err := k.next.UpdateStatus(ctx, tenantID, id, status)
	k.record(ctx, "version_update_status", start, err)
	return version, err
}

// Rotate records metrics for rotations.
func (k *kekVersionUseCaseWithMetrics) Rotate(
	ctx context.Context, input domain.CreateVersionInput,
) (*domain.KekVersion, error) {
	start := time.Now()
	version, err := k.next.Rotate(ctx, input)
	k.record(ctx, "version_rotate", start, err)
	return version, err
}

// IsUserRemoved passes through without instrumentation; it is an internal
// lookup on the blob-provisioning path, not a business operation of its own.
func (k *kekVersionUseCaseWithMetrics) IsUserRemoved(
	ctx context.Context, tenantID, versionID, userID string,
) (bool, error) {
	return k.next.IsUserRemoved(ctx, tenantID, versionID, userID)
}

// DeleteByTenant records metrics for tenant cascades.
func (k *kekVersionUseCaseWithMetrics) DeleteByTenant(ctx context.Context, tenantID string) error {
	start := time.Now()
	err := k.next.DeleteByTenant(ctx, tenantID)
	k.record(ctx, "version_delete_by_tenant", start, err)
	return err
}
