package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/authkeyd/internal/database"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/recovery/domain"
)

// PostgreSQLPublicKeyRepository implements PublicKeyRepository for PostgreSQL.
type PostgreSQLPublicKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLPublicKeyRepository creates a new PostgreSQL public-key repository.
func NewPostgreSQLPublicKeyRepository(db *sql.DB) *PostgreSQLPublicKeyRepository {
	return &PostgreSQLPublicKeyRepository{db: db}
}

const pgPublicKeyColumns = `id, user_id, tenant_id, purpose, public_key, created_at, updated_at`

// Upsert inserts or replaces the key for (user, purpose, tenant).
func (r *PostgreSQLPublicKeyRepository) Upsert(ctx context.Context, key *domain.PublicKey) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO public_keys (id, user_id, tenant_id, purpose, public_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, user_id, purpose)
		DO UPDATE SET public_key = EXCLUDED.public_key, updated_at = EXCLUDED.updated_at`

	_, err := querier.ExecContext(ctx, query,
		key.ID, key.UserID, key.TenantID, key.Purpose, key.PublicKey, key.CreatedAt, key.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert public key")
	}
	return nil
}

// Get retrieves the key for (user, purpose, tenant).
func (r *PostgreSQLPublicKeyRepository) Get(
	ctx context.Context, tenantID, userID, purpose string,
) (*domain.PublicKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + pgPublicKeyColumns + ` FROM public_keys
		WHERE tenant_id = $1 AND user_id = $2 AND purpose = $3`

	return scanPublicKey(querier.QueryRowContext(ctx, query, tenantID, userID, purpose))
}

// GetByID retrieves a key by its id.
func (r *PostgreSQLPublicKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PublicKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + pgPublicKeyColumns + ` FROM public_keys WHERE id = $1`

	return scanPublicKey(querier.QueryRowContext(ctx, query, id))
}

// ListByUser retrieves every key registered by userID within tenantID.
func (r *PostgreSQLPublicKeyRepository) ListByUser(
	ctx context.Context, tenantID, userID string,
) ([]*domain.PublicKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + pgPublicKeyColumns + ` FROM public_keys
		WHERE tenant_id = $1 AND user_id = $2 ORDER BY purpose`

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
func (r *PostgreSQLPublicKeyRepository) Update(
	ctx context.Context, id uuid.UUID, publicKey string,
) (*domain.PublicKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE public_keys SET public_key = $1, updated_at = now() WHERE id = $2
		RETURNING ` + pgPublicKeyColumns

	return scanPublicKey(querier.QueryRowContext(ctx, query, publicKey, id))
}

// Delete removes a key registration by id.
func (r *PostgreSQLPublicKeyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	res, err := querier.ExecContext(ctx, `DELETE FROM public_keys WHERE id = $1`, id)
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
func (r *PostgreSQLPublicKeyRepository) DeleteByTenant(ctx context.Context, tenantID string) error {
	querier := database.GetTx(ctx, r.db)
	if _, err := querier.ExecContext(ctx, `DELETE FROM public_keys WHERE tenant_id = $1`, tenantID); err != nil {
		return apperrors.Wrap(err, "failed to delete public keys for tenant")
	}
	return nil
}

func scanPublicKey(row *sql.Row) (*domain.PublicKey, error) {
	var key domain.PublicKey
	err := row.Scan(&key.ID, &key.UserID, &key.TenantID, &key.Purpose, &key.PublicKey, &key.CreatedAt, &key.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPublicKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get public key")
	}
	return &key, nil
}
