package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/authkeyd/internal/database"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/recovery/domain"
)

// MySQLRecoverySessionRepository implements RecoverySessionRepository for MySQL.
type MySQLRecoverySessionRepository struct {
	db *sql.DB
}

// NewMySQLRecoverySessionRepository creates a new MySQL recovery session repository.
func NewMySQLRecoverySessionRepository(db *sql.DB) *MySQLRecoverySessionRepository {
	return &MySQLRecoverySessionRepository{db: db}
}

const mySessionColumns = `id, tenant_id, kek_version_id, initiated_by, threshold, reason, status,
	new_kek_version_id, recovered_kek_ciphertext, created_at, expires_at`

// Create inserts a new recovery session.
func (r *MySQLRecoverySessionRepository) Create(ctx context.Context, session *domain.RecoverySession) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO recovery_sessions
		(id, tenant_id, kek_version_id, initiated_by, threshold, reason, status,
		 new_kek_version_id, recovered_kek_ciphertext, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

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
func (r *MySQLRecoverySessionRepository) Get(ctx context.Context, id string) (*domain.RecoverySession, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + mySessionColumns + ` FROM recovery_sessions WHERE id = ?`

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
func (r *MySQLRecoverySessionRepository) ListByTenant(
	ctx context.Context, tenantID string,
) ([]*domain.RecoverySession, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + mySessionColumns + ` FROM recovery_sessions
		WHERE tenant_id = ? ORDER BY created_at DESC`

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
func (r *MySQLRecoverySessionRepository) UpdateStatus(
	ctx context.Context, id string, status domain.RecoverySessionStatus,
) error {
	querier := database.GetTx(ctx, r.db)

	res, err := querier.ExecContext(ctx,
		`UPDATE recovery_sessions SET status = ? WHERE id = ?`, string(status), id,
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
func (r *MySQLRecoverySessionRepository) SetCompleted(
	ctx context.Context, id, newVersionID, recoveredKEKCiphertext string,
) error {
	querier := database.GetTx(ctx, r.db)

	res, err := querier.ExecContext(ctx,
		`UPDATE recovery_sessions
		 SET status = ?, new_kek_version_id = ?, recovered_kek_ciphertext = ?
		 WHERE id = ?`,
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
func (r *MySQLRecoverySessionRepository) AddShare(ctx context.Context, share *domain.RecoveryShare) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT IGNORE INTO recovery_shares
		(session_id, submitter_user_id, encrypted_for, ciphertext, commitment, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)`

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
func (r *MySQLRecoverySessionRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	res, err := querier.ExecContext(ctx,
		`UPDATE recovery_sessions SET status = ? WHERE status = ? AND expires_at < ?`,
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
func (r *MySQLRecoverySessionRepository) DeleteByTenant(ctx context.Context, tenantID string) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM recovery_shares WHERE session_id IN
		(SELECT id FROM recovery_sessions WHERE tenant_id = ?)`
	if _, err := querier.ExecContext(ctx, query, tenantID); err != nil {
		return apperrors.Wrap(err, "failed to delete recovery shares for tenant")
	}
	if _, err := querier.ExecContext(ctx, `DELETE FROM recovery_sessions WHERE tenant_id = ?`, tenantID); err != nil {
		return apperrors.Wrap(err, "failed to delete recovery sessions for tenant")
	}
	return nil
}

func (r *MySQLRecoverySessionRepository) loadShares(
	ctx context.Context, querier database.Querier, sessionID string,
) ([]domain.RecoveryShare, error) {
	query := `SELECT session_id, submitter_user_id, encrypted_for, ciphertext, commitment, submitted_at
		FROM recovery_shares WHERE session_id = ? ORDER BY submitted_at`

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
