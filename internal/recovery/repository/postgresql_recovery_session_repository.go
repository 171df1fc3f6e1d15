package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/authkeyd/internal/database"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/recovery/domain"
)

// PostgreSQLRecoverySessionRepository implements RecoverySessionRepository for
// PostgreSQL. Sessions and shares live in separate tables; Get loads the session, then its shares.
type PostgreSQLRecoverySessionRepository struct {
	db *sql.DB
}

// NewPostgreSQLRecoverySessionRepository creates a new PostgreSQL recovery
// session repository.
func NewPostgreSQLRecoverySessionRepository(db *sql.DB) *PostgreSQLRecoverySessionRepository {
	return &PostgreSQLRecoverySessionRepository{db: db}
}

const pgSessionColumns = `id, tenant_id, kek_version_id, initiated_by, threshold, reason, status,
	new_kek_version_id, recovered_kek_ciphertext, created_at, expires_at`

// Create inserts a new recovery session.
func (r *PostgreSQLRecoverySessionRepository) Create(ctx context.Context, session *domain.RecoverySession) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO recovery_sessions
		(id, tenant_id, kek_version_id, initiated_by, threshold, reason, status,
		 new_kek_version_id, recovered_kek_ciphertext, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := querier.ExecContext(ctx, query,
		session.ID, session.TenantID, session.VersionID, session.InitiatedBy, session.Threshold,
		session.Reason, string(session.Status), session.NewVersionID, session.RecoveredKEKCiphertext,
		session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create recovery session")
	}
	return nil
}

// Get returns the session with its shares loaded, ordered by submission time.
func (r *PostgreSQLRecoverySessionRepository) Get(ctx context.Context, id string) (*domain.RecoverySession, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + pgSessionColumns + ` FROM recovery_sessions WHERE id = $1`

	session, err := scanSession(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	shares, err := r.loadShares(ctx, querier, id)
	if err != nil {
		return nil, err
	}
	session.Shares = shares
	return session, nil
}

// ListByTenant returns every session for tenantID, newest first, without shares.
func (r *PostgreSQLRecoverySessionRepository) ListByTenant(
	ctx context.Context, tenantID string,
) ([]*domain.RecoverySession, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + pgSessionColumns + ` FROM recovery_sessions
		WHERE tenant_id = $1 ORDER BY created_at DESC`

	rows, err := querier.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list recovery sessions")
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]*domain.RecoverySession, 0)
	for rows.Next() {
		session, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating recovery session rows")
	}
	return sessions, nil
}

// UpdateStatus sets the session's status.
func (r *PostgreSQLRecoverySessionRepository) UpdateStatus(
	ctx context.Context, id string, status domain.RecoverySessionStatus,
) error {
	querier := database.GetTx(ctx, r.db)

	res, err := querier.ExecContext(ctx,
		`UPDATE recovery_sessions SET status = $1 WHERE id = $2`, string(status), id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update recovery session status")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to confirm recovery session status update")
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// SetCompleted marks the session completed and records the new version
// association and the re-encrypted recovered KEK.
func (r *PostgreSQLRecoverySessionRepository) SetCompleted(
	ctx context.Context, id, newVersionID, recoveredKEKCiphertext string,
) error {
	querier := database.GetTx(ctx, r.db)

	res, err := querier.ExecContext(ctx,
		`UPDATE recovery_sessions
		 SET status = $1, new_kek_version_id = $2, recovered_kek_ciphertext = $3
		 WHERE id = $4`,
		string(domain.RecoverySessionCompleted), newVersionID, recoveredKEKCiphertext, id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to complete recovery session")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to confirm recovery session completion")
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// AddShare appends a share; the unique index on (session_id, submitter_user_id)
// turns duplicate submissions into ErrDuplicateShare.
func (r *PostgreSQLRecoverySessionRepository) AddShare(ctx context.Context, share *domain.RecoveryShare) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO recovery_shares
		(session_id, submitter_user_id, encrypted_for, ciphertext, commitment, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, submitter_user_id) DO NOTHING`

	res, err := querier.ExecContext(ctx, query,
		share.SessionID, share.SubmitterUserID, share.EncryptedFor, share.Ciphertext,
		share.Commitment, share.SubmittedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to add recovery share")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to confirm recovery share insert")
	}
	if affected == 0 {
		return domain.ErrDuplicateShare
	}
	return nil
}

// ExpirePending marks every pending session past its deadline as expired.
func (r *PostgreSQLRecoverySessionRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	res, err := querier.ExecContext(ctx,
		`UPDATE recovery_sessions SET status = $1 WHERE status = $2 AND expires_at < $3`,
		string(domain.RecoverySessionExpired), string(domain.RecoverySessionPending), now,
	)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to expire recovery sessions")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count expired recovery sessions")
	}
	return affected, nil
}

// DeleteByTenant removes every session and share for tenantID.
func (r *PostgreSQLRecoverySessionRepository) DeleteByTenant(ctx context.Context, tenantID string) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM recovery_shares WHERE session_id IN
		(SELECT id FROM recovery_sessions WHERE tenant_id = $1)`
	if _, err := querier.ExecContext(ctx, query, tenantID); err != nil {
		return apperrors.Wrap(err, "failed to delete recovery shares for tenant")
	}
	if _, err := querier.ExecContext(ctx, `DELETE FROM recovery_sessions WHERE tenant_id = $1`, tenantID); err != nil {
		return apperrors.Wrap(err, "failed to delete recovery sessions for tenant")
	}
	return nil
}

func (r *PostgreSQLRecoverySessionRepository) loadShares(
	ctx context.Context, querier database.Querier, sessionID string,
) ([]domain.RecoveryShare, error) {
	query := `SELECT session_id, submitter_user_id, encrypted_for, ciphertext, commitment, submitted_at
		FROM recovery_shares WHERE session_id = $1 ORDER BY submitted_at`

	rows, err := querier.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load recovery shares")
	}
	defer func() { _ = rows.Close() }()

	shares := make([]domain.RecoveryShare, 0)
	for rows.Next() {
		var share domain.RecoveryShare
		if err := rows.Scan(
			&share.SessionID, &share.SubmitterUserID, &share.EncryptedFor, &share.Ciphertext,
			&share.Commitment, &share.SubmittedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan recovery share row")
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating recovery share rows")
	}
	return shares, nil
}

func scanSession(row *sql.Row) (*domain.RecoverySession, error) {
	var session domain.RecoverySession
	var status string
	err := row.Scan(
		&session.ID, &session.TenantID, &session.VersionID, &session.InitiatedBy, &session.Threshold,
		&session.Reason, &status, &session.NewVersionID, &session.RecoveredKEKCiphertext,
		&session.CreatedAt, &session.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get recovery session")
	}
	session.Status = domain.RecoverySessionStatus(status)
	return &session, nil
}

func scanSessionRows(rows *sql.Rows) (*domain.RecoverySession, error) {
	var session domain.RecoverySession
	var status string
	err := rows.Scan(
		&session.ID, &session.TenantID, &session.VersionID, &session.InitiatedBy, &session.Threshold,
		&session.Reason, &status, &session.NewVersionID, &session.RecoveredKEKCiphertext,
		&session.CreatedAt, &session.ExpiresAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan recovery session row")
	}
	session.Status = domain.RecoverySessionStatus(status)
	return &session, nil
}
