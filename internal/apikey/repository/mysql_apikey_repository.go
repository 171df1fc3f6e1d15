package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authkeyd/internal/apikey/domain"
	"github.com/allisson/authkeyd/internal/database"
	apperrors "github.com/allisson/authkeyd/internal/errors"
)

// MySQLAPIKeyRepository implements APIKeyRepository for MySQL.
type MySQLAPIKeyRepository struct {
	db *sql.DB
}

// NewMySQLAPIKeyRepository creates a new MySQL API-key repository.
func NewMySQLAPIKeyRepository(db *sql.DB) *MySQLAPIKeyRepository {
	return &MySQLAPIKeyRepository{db: db}
}

// Create inserts a new API key row.
func (r *MySQLAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	querier := database.GetTx(ctx, r.db)

	scopesJSON, err := json.Marshal(key.Scopes)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal api key scopes")
	}

	query := `INSERT INTO api_keys
		(id, user_id, tenant_id, name, scopes, verification_digest, mac_key, created_at, expires_at, revoked, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query,
		key.ID, key.UserID, key.TenantID, key.Name, scopesJSON, key.VerificationDigest, key.MACKey,
		key.CreatedAt, key.ExpiresAt, key.Revoked, key.LastUsedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create api key")
	}
	return nil
}

// Get retrieves an API key by id.
func (r *MySQLAPIKeyRepository) Get(ctx context.Context, id uuid.UUID) (*domain.APIKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, user_id, tenant_id, name, scopes, verification_digest, mac_key, created_at, expires_at, revoked, last_used_at
		FROM api_keys WHERE id = ?`

	var key domain.APIKey
	var scopesJSON []byte
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&key.ID, &key.UserID, &key.TenantID, &key.Name, &scopesJSON, &key.VerificationDigest, &key.MACKey,
		&key.CreatedAt, &key.ExpiresAt, &key.Revoked, &key.LastUsedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAPIKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get api key")
	}
	if err := json.Unmarshal(scopesJSON, &key.Scopes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal api key scopes")
	}
	return &key, nil
}

// ListByUser retrieves every key issued to userID within tenantID, newest first.
func (r *MySQLAPIKeyRepository) ListByUser(ctx context.Context, tenantID, userID string) ([]*domain.APIKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, user_id, tenant_id, name, scopes, verification_digest, mac_key, created_at, expires_at, revoked, last_used_at
		FROM api_keys WHERE tenant_id = ? AND user_id = ? ORDER BY created_at DESC`

	rows, err := querier.QueryContext(ctx, query, tenantID, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list api keys")
	}
	defer func() { _ = rows.Close() }()

	keys := make([]*domain.APIKey, 0)
	for rows.Next() {
		var key domain.APIKey
		var scopesJSON []byte
		if err := rows.Scan(
			&key.ID, &key.UserID, &key.TenantID, &key.Name, &scopesJSON, &key.VerificationDigest, &key.MACKey,
			&key.CreatedAt, &key.ExpiresAt, &key.Revoked, &key.LastUsedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan api key row")
		}
		if err := json.Unmarshal(scopesJSON, &key.Scopes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal api key scopes")
		}
		keys = append(keys, &key)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating api key rows")
	}
	return keys, nil
}

// Delete revokes the key; revoked keys are retained (not purged) so audit
// history and last_used_at survive the revocation.
func (r *MySQLAPIKeyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)
	res, err := querier.ExecContext(ctx, `UPDATE api_keys SET revoked = true WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke api key")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to confirm api key revocation")
	}
	if affected == 0 {
		return domain.ErrAPIKeyNotFound
	}
	return nil
}

// TouchLastUsed records the current time as the key's last successful use.
func (r *MySQLAPIKeyRepository) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)
	_, err := querier.ExecContext(ctx, `UPDATE api_keys SET last_used_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update api key last_used_at")
	}
	return nil
}
