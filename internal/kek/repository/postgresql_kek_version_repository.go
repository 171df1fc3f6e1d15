package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/authkeyd/internal/database"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/kek/domain"
)

// PostgreSQLKekVersionRepository implements KekVersionRepository for PostgreSQL.
type PostgreSQLKekVersionRepository struct {
	db *sql.DB
}

// NewPostgreSQLKekVersionRepository creates a new PostgreSQL KEK version repository.
func NewPostgreSQLKekVersionRepository(db *sql.DB) *PostgreSQLKekVersionRepository {
	return &PostgreSQLKekVersionRepository{db: db}
}

// Create inserts a new KEK version row.
func (r *PostgreSQLKekVersionRepository) Create(ctx context.Context, version *domain.KekVersion) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO kek_versions (id, tenant_id, created_by, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, id) DO NOTHING`

	res, err := querier.ExecContext(ctx, query,
		version.ID, version.TenantID, version.CreatedBy, version.Reason, string(version.Status), version.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create kek version")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to confirm kek version creation")
	}
	if affected == 0 {
		return domain.ErrKekVersionExists
	}
	return nil
}

// Get retrieves a KEK version by tenant and id.
func (r *PostgreSQLKekVersionRepository) Get(ctx context.Context, tenantID, id string) (*domain.KekVersion, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, created_by, reason, status, created_at
		FROM kek_versions WHERE tenant_id = $1 AND id = $2`

	return r.scanVersion(querier.QueryRowContext(ctx, query, tenantID, id))
}

// GetActive retrieves the tenant's single active KEK version.
func (r *PostgreSQLKekVersionRepository) GetActive(ctx context.Context, tenantID string) (*domain.KekVersion, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, created_by, reason, status, created_at
		FROM kek_versions WHERE tenant_id = $1 AND status = $2`

	version, err := r.scanVersion(querier.QueryRowContext(ctx, query, tenantID, string(domain.KekVersionActive)))
	if err != nil {
		if apperrors.Is(err, domain.ErrKekVersionNotFound) {
			return nil, domain.ErrActiveKekVersionNotFound
		}
		return nil, err
	}
	return version, nil
}

// List retrieves every KEK version for tenantID, newest first.
func (r *PostgreSQLKekVersionRepository) List(ctx context.Context, tenantID string) ([]*domain.KekVersion, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, created_by, reason, status, created_at
		FROM kek_versions WHERE tenant_id = $1 ORDER BY created_at DESC`

	rows, err := querier.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list kek versions")
	}
	defer func() { _ = rows.Close() }()

	versions := make([]*domain.KekVersion, 0)
	for rows.Next() {
		var version domain.KekVersion
		var status string
		if err := rows.Scan(
			&version.ID, &version.TenantID, &version.CreatedBy, &version.Reason, &status, &version.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan kek version row")
		}
		version.Status = domain.KekVersionStatus(status)
		versions = append(versions, &version)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating kek version rows")
	}
	return versions, nil
}

// UpdateStatus sets the version's status. State-machine validation is the use
// case's responsibility; this method only persists the result.
func (r *PostgreSQLKekVersionRepository) UpdateStatus(
	ctx context.Context, tenantID, id string, status domain.KekVersionStatus,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE kek_versions SET status = $1 WHERE tenant_id = $2 AND id = $3`
	res, err := querier.ExecContext(ctx, query, string(status), tenantID, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update kek version status")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to confirm kek version status update")
	}
	if affected == 0 {
		return domain.ErrKekVersionNotFound
	}
	return nil
}

// AddRemovedUsers records users excluded from versionID's blob provisioning.
func (r *PostgreSQLKekVersionRepository) AddRemovedUsers(
	ctx context.Context, tenantID, versionID string, userIDs []string,
) error {
	if len(userIDs) == 0 {
		return nil
	}
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO kek_removed_users (tenant_id, kek_version_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, kek_version_id, user_id) DO NOTHING`

	for _, userID := range userIDs {
		if _, err := querier.ExecContext(ctx, query, tenantID, versionID, userID); err != nil {
			return apperrors.Wrap(err, "failed to record removed user")
		}
	}
	return nil
}

// IsUserRemoved reports whether userID is on versionID's removed-users deny-list.
func (r *PostgreSQLKekVersionRepository) IsUserRemoved(
	ctx context.Context, tenantID, versionID, userID string,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT 1 FROM kek_removed_users WHERE tenant_id = $1 AND kek_version_id = $2 AND user_id = $3`

	var one int
	err := querier.QueryRowContext(ctx, query, tenantID, versionID, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, apperrors.Wrap(err, "failed to check removed user")
	}
	return true, nil
}

// DeleteByTenant removes every version and removed-user entry for tenantID.
func (r *PostgreSQLKekVersionRepository) DeleteByTenant(ctx context.Context, tenantID string) error {
	querier := database.GetTx(ctx, r.db)

	if _, err := querier.ExecContext(ctx, `DELETE FROM kek_removed_users WHERE tenant_id = $1`, tenantID); err != nil {
		return apperrors.Wrap(err, "failed to delete removed users for tenant")
	}
	if _, err := querier.ExecContext(ctx, `DELETE FROM kek_versions WHERE tenant_id = $1`, tenantID); err != nil {
		return apperrors.Wrap(err, "failed to delete kek versions for tenant")
	}
	return nil
}

func (r *PostgreSQLKekVersionRepository) scanVersion(row *sql.Row) (*domain.KekVersion, error) {
	var version domain.KekVersion
	var status string
	err := row.Scan(&version.ID, &version.TenantID, &version.CreatedBy, &version.Reason, &status, &version.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrKekVersionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get kek version")
	}
	version.Status = domain.KekVersionStatus(status)
	return &version, nil
}
