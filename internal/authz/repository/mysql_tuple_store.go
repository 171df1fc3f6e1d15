package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/authkeyd/internal/authz/domain"
	"github.com/allisson/authkeyd/internal/database"
	apperrors "github.com/allisson/authkeyd/internal/errors"
)

// MySQLTupleStore implements TupleStore against a MySQL table, the "local"
// adapter mode's MySQL counterpart to LocalTupleStore. Resolution semantics are
// shared via the same in-memory resolver.
type MySQLTupleStore struct {
	db *sql.DB
}

// NewMySQLTupleStore creates a MySQL-backed local tuple store.
func NewMySQLTupleStore(db *sql.DB) *MySQLTupleStore {
	return &MySQLTupleStore{db: db}
}

// EnsureStore is a no-op in local mode: the schema is a fixed SQL table created
// by migrations, shared by every tenant.
func (s *MySQLTupleStore) EnsureStore(ctx context.Context, tenantID string) error {
	return nil
}

// EnsureModel is a no-op in local mode for the same reason.
func (s *MySQLTupleStore) EnsureModel(ctx context.Context, tenantID string) error {
	return nil
}

// WriteTuples inserts tuples in deterministic order; INSERT IGNORE makes
// re-granting an existing tuple a no-op.
func (s *MySQLTupleStore) WriteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error {
	if len(tuples) == 0 {
		return nil
	}
	querier := database.GetTx(ctx, s.db)
	for _, t := range sortedCopy(tuples) {
		_, err := querier.ExecContext(ctx, `
			INSERT IGNORE INTO authz_tuples (tenant_id, user_key, relation, object_key)
			VALUES (?, ?, ?, ?)
		`, tenantID, t.User, string(t.Relation), t.Object)
		if err != nil {
			return apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
		}
	}
	return nil
}

// DeleteTuples removes tuples; deleting a missing tuple succeeds.
func (s *MySQLTupleStore) DeleteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error {
	if len(tuples) == 0 {
		return nil
	}
	querier := database.GetTx(ctx, s.db)
	for _, t := range sortedCopy(tuples) {
		_, err := querier.ExecContext(ctx, `
			DELETE FROM authz_tuples WHERE tenant_id = ? AND user_key = ? AND relation = ? AND object_key = ?
		`, tenantID, t.User, string(t.Relation), t.Object)
		if err != nil {
			return apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
		}
	}
	return nil
}

// DeleteTenantTuples removes every tuple for tenantID.
func (s *MySQLTupleStore) DeleteTenantTuples(ctx context.Context, tenantID string) error {
	querier := database.GetTx(ctx, s.db)
	_, err := querier.ExecContext(ctx, `DELETE FROM authz_tuples WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
	}
	return nil
}

// ListTenantIDs returns the distinct tenant ids present in the tuple table.
func (s *MySQLTupleStore) ListTenantIDs(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, s.db)
	rows, err := querier.QueryContext(ctx, `SELECT DISTINCT tenant_id FROM authz_tuples ORDER BY tenant_id`)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
	}
	return out, nil
}

// Check loads the tenant's tuples and resolves the relation with the shared
// resolver, folding in ephemeral contextual tuples.
func (s *MySQLTupleStore) Check(
	ctx context.Context,
	tenantID, user string,
	relation domain.Relation,
	object string,
	contextualTuples []domain.Tuple,
) (bool, error) {
	querier := database.GetTx(ctx, s.db)
	rows, err := querier.QueryContext(ctx, `
		SELECT user_key, relation, object_key FROM authz_tuples WHERE tenant_id = ?
	`, tenantID)
	if err != nil {
		return false, apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
	}
	defer rows.Close()

	var all []domain.Tuple
	for rows.Next() {
		var t domain.Tuple
		var rel string
		if err := rows.Scan(&t.User, &rel, &t.Object); err != nil {
			return false, apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
		}
		t.Relation = domain.Relation(rel)
		all = append(all, t)
	}
	if err := rows.Err(); err != nil {
		return false, apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
	}

	all = append(all, contextualTuples...)
	r := &resolver{tuples: all, visited: map[string]bool{}}
	return r.resolve(user, relation, object), nil
}
