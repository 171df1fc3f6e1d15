package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/authkeyd/internal/database"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/kek/domain"
)

// PostgreSQLKekBlobRepository implements KekBlobRepository for PostgreSQL.
type PostgreSQLKekBlobRepository struct {
	db *sql.DB
}

// NewPostgreSQLKekBlobRepository creates a new PostgreSQL KEK blob repository.
func NewPostgreSQLKekBlobRepository(db *sql.DB) *PostgreSQLKekBlobRepository {
	return &PostgreSQLKekBlobRepository{db: db}
}

// Get retrieves the blob for (tenant, user, version).
func (r *PostgreSQLKekBlobRepository) Get(
	ctx context.Context, tenantID, userID, versionID string,
) (*domain.KekBlob, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT tenant_id, user_id, kek_version_id, encrypted_blob, created_at, updated_at
		FROM kek_blobs WHERE tenant_id = $1 AND user_id = $2 AND kek_version_id = $3`

	var blob domain.KekBlob
	err := querier.QueryRowContext(ctx, query, tenantID, userID, versionID).Scan(
		&blob.TenantID, &blob.UserID, &blob.KekVersionID, &blob.EncryptedBlob, &blob.CreatedAt, &blob.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrKekBlobNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get kek blob")
	}
	return &blob, nil
}

// ListForUser retrieves every blob provisioned for userID within tenantID,
// newest version first.
func (r *PostgreSQLKekBlobRepository) ListForUser(
	ctx context.Context, tenantID, userID string,
) ([]*domain.KekBlob, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT tenant_id, user_id, kek_version_id, encrypted_blob, created_at, updated_at
		FROM kek_blobs WHERE tenant_id = $1 AND user_id = $2 ORDER BY created_at DESC`

	rows, err := querier.QueryContext(ctx, query, tenantID, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list kek blobs")
	}
	defer func() { _ = rows.Close() }()

	blobs := make([]*domain.KekBlob, 0)
	for rows.Next() {
		var blob domain.KekBlob
		if err := rows.Scan(
			&blob.TenantID, &blob.UserID, &blob.KekVersionID, &blob.EncryptedBlob, &blob.CreatedAt, &blob.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan kek blob row")
		}
		blobs = append(blobs, &blob)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating kek blob rows")
	}
	return blobs, nil
}

// Set upserts the blob for (tenant, user, version): re-provisioning a user's
// blob for the same version replaces the ciphertext.
func (r *PostgreSQLKekBlobRepository) Set(ctx context.Context, blob *domain.KekBlob) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO kek_blobs (tenant_id, user_id, kek_version_id, encrypted_blob, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, user_id, kek_version_id)
		DO UPDATE SET encrypted_blob = EXCLUDED.encrypted_blob, updated_at = EXCLUDED.updated_at`

	_, err := querier.ExecContext(ctx, query,
		blob.TenantID, blob.UserID, blob.KekVersionID, blob.EncryptedBlob, blob.CreatedAt, blob.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to set kek blob")
	}
	return nil
}

// Delete removes the blob for (tenant, user, version).
func (r *PostgreSQLKekBlobRepository) Delete(ctx context.Context, tenantID, userID, versionID string) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM kek_blobs WHERE tenant_id = $1 AND user_id = $2 AND kek_version_id = $3`
	res, err := querier.ExecContext(ctx, query, tenantID, userID, versionID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete kek blob")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to confirm kek blob deletion")
	}
	if affected == 0 {
		return domain.ErrKekBlobNotFound
	}
	return nil
}

// DeleteByTenant removes every blob for tenantID, used by tenant deletion's cascade.
func (r *PostgreSQLKekBlobRepository) DeleteByTenant(ctx context.Context, tenantID string) error {
	querier := database.GetTx(ctx, r.db)
	if _, err := querier.ExecContext(ctx, `DELETE FROM kek_blobs WHERE tenant_id = $1`, tenantID); err != nil {
		return apperrors.Wrap(err, "failed to delete kek blobs for tenant")
	}
	return nil
}
