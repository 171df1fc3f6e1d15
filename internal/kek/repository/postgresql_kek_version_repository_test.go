package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/kek/domain"
)

func newVersionRepo(t *testing.T) (*PostgreSQLKekVersionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgreSQLKekVersionRepository(db), mock
}

func TestPostgreSQLKekVersionRepositoryCreate(t *testing.T) {
	repo, mock := newVersionRepo(t)

	version := &domain.KekVersion{
		ID: "v1", TenantID: "acme", CreatedBy: "alice", Reason: "bootstrap",
		Status: domain.KekVersionActive, CreatedAt: time.Now(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kek_versions")).
		WithArgs(version.ID, version.TenantID, version.CreatedBy, version.Reason, "active", version.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), version))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLKekVersionRepositoryCreateConflict(t *testing.T) {
	repo, mock := newVersionRepo(t)

	version := &domain.KekVersion{
		ID: "v1", TenantID: "acme", CreatedBy: "alice", Reason: "bootstrap",
		Status: domain.KekVersionActive, CreatedAt: time.Now(),
	}

	// ON CONFLICT DO NOTHING reports zero affected rows on a duplicate.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kek_versions")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), version)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestPostgreSQLKekVersionRepositoryGetNotFound(t *testing.T) {
	repo, mock := newVersionRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tenant_id, created_by, reason, status, created_at")).
		WithArgs("acme", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "created_by", "reason", "status", "created_at"}))

	_, err := repo.Get(context.Background(), "acme", "missing")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestPostgreSQLKekVersionRepositoryGetActive(t *testing.T) {
	repo, mock := newVersionRepo(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "created_by", "reason", "status", "created_at"}).
		AddRow("v2", "acme", "alice", "quarterly", "active", now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM kek_versions WHERE tenant_id = $1 AND status = $2")).
		WithArgs("acme", "active").
		WillReturnRows(rows)

	version, err := repo.GetActive(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "v2", version.ID)
	assert.Equal(t, domain.KekVersionActive, version.Status)
}

func TestPostgreSQLKekVersionRepositoryGetActiveNotFound(t *testing.T) {
	repo, mock := newVersionRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM kek_versions WHERE tenant_id = $1 AND status = $2")).
		WithArgs("acme", "active").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "created_by", "reason", "status", "created_at"}))

	_, err := repo.GetActive(context.Background(), "acme")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, domain.ErrActiveKekVersionNotFound))
}

func TestPostgreSQLKekVersionRepositoryUpdateStatusNotFound(t *testing.T) {
	repo, mock := newVersionRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE kek_versions SET status = $1")).
		WithArgs("deprecated", "acme", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "acme", "missing", domain.KekVersionDeprecated)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestPostgreSQLKekVersionRepositoryIsUserRemoved(t *testing.T) {
	repo, mock := newVersionRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM kek_removed_users")).
		WithArgs("acme", "v3", "mallory").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	removed, err := repo.IsUserRemoved(context.Background(), "acme", "v3", "mallory")
	require.NoError(t, err)
	assert.True(t, removed)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM kek_removed_users")).
		WithArgs("acme", "v3", "bob").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	removed, err = repo.IsUserRemoved(context.Background(), "acme", "v3", "bob")
	require.NoError(t, err)
	assert.False(t, removed)
}
