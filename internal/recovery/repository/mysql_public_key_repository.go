package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/authkeyd/internal/database"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/recovery/domain"
)

// MySQLPublicKeyRepository implements PublicKeyRepository for MySQL.
type MySQLPublicKeyRepository struct {
	db *sql.DB
}

// NewMySQLPublicKeyRepository creates a new MySQL public-key repository.
func NewMySQLPublicKeyRepository(db *sql.DB) *MySQLPublicKeyRepository {
	return &MySQLPublicKeyRepository{db: db}
}

const myPublicKeyColumns = `id, user_id, tenant_id, purpose, public_key, created_at, updated_at`

// Upsert inserts or replaces the key for (user, purpose, tenant).
func (r *MySQLPublicKeyRepository) Upsert(ctx context.Context, key *domain.PublicKey) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO public_keys (id, user_id, tenant_id, purpose, public_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE public_key = VALUES(public_key), updated_at = VALUES(updated_at)`

	_, err := querier.ExecContext(ctx, query,
		key.ID, key.UserID, key.TenantID, key.Purpose, key.PublicKey, key.CreatedAt, key.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert public key")
	}
	return nil
}

// Get retrieves the key for (user, purpose, tenant).
func (r *MySQLPublicKeyRepository) Get(
	ctx context.Context, tenantID, userID, purpose string,
) (*domain.PublicKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + myPublicKeyColumns + ` FROM public_keys
		WHERE tenant_id = ? AND user_id = ? AND purpose = ?`

	return scanPublicKey(querier.QueryRowContext(ctx, query, tenantID, userID, purpose))
}

// GetByID retrieves a key by its id.
func (r *MySQLPublicKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PublicKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + myPublicKeyColumns + ` FROM public_keys WHERE id = ?`

	return scanPublicKey(querier.QueryRowContext(ctx, query, id))
}

// ListByUser retrieves every key registered by userID within tenantID.
func (r *MySQLPublicKeyRepository) ListByUser(
	ctx context.Context, tenantID, userID string,
) ([]*domain.PublicKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + myPublicKeyColumns + ` FROM public_keys
		WHERE tenant_id = ? AND user_id = ? ORDER BY purpose`

	rows, err := querier.QueryContext(ctx, query, tenantID, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list public keys")
	}
	defer func() { _ = rows.Close() }()

	keys := make([]*domain.PublicKey, 0)
	for rows.Next() {
		var key domain.PublicKey
		if err := rows.Scan(
			&key.ID, &key.UserID, &key.TenantID, &key.Purpose, &key.PublicKey, &key.CreatedAt, &key.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan public key row")
		}
		keys = append(keys, &key)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating public key rows")
	}
	return keys, nil
}

// Update replaces the key material of an existing registration.
func (r *MySQLPublicKeyRepository) Update(
	ctx context.Context, id uuid.UUID, publicKey string,
) (*domain.PublicKey, error) {
	querier := database.GetTx(ctx, r.db)

	res, err := querier.ExecContext(ctx,
		`UPDATE public_keys SET public_key = ?, updated_at = NOW() WHERE id = ?`, publicKey, id,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to update public key")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to confirm public key update")
	}
	if affected == 0 {
		return nil, domain.ErrPublicKeyNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes a key registration by id.
func (r *MySQLPublicKeyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	res, err := querier.ExecContext(ctx, `DELETE FROM public_keys WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete public key")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to confirm public key deletion")
	}
	if affected == 0 {
		return domain.ErrPublicKeyNotFound
	}
	return nil
}

// DeleteByTenant removes every key for tenantID, used by tenant deletion's cascade.
func (r *MySQLPublicKeyRepository) DeleteByTenant(ctx context.Context, tenantID string) error {
	querier := database.GetTx(ctx, r.db)
	if _, err := querier.ExecContext(ctx, `DELETE FROM public_keys WHERE tenant_id = ?`, tenantID); err != nil {
		return apperrors.Wrap(err, "failed to delete public keys for tenant")
	}
	return nil
}
