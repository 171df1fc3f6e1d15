package repository

import (
	"context"
	"database/sql"
	"sort"

	"github.com/allisson/authkeyd/internal/authz/domain"
	"github.com/allisson/authkeyd/internal/database"
	apperrors "github.com/allisson/authkeyd/internal/errors"
)

// LocalTupleStore implements TupleStore against a SQL table, used in the "local"
// adapter mode (§4.1): a single shared backend, tenant isolation purely by
// namespacing the tenant_id column.
type LocalTupleStore struct {
	db *sql.DB
}

// NewLocalTupleStore creates a SQL-backed local tuple store.
func NewLocalTupleStore(db *sql.DB) *LocalTupleStore {
	return &LocalTupleStore{db: db}
}

// EnsureStore is a no-op in local mode: the schema is a fixed SQL table created
// by migrations, shared by every tenant.
func (s *LocalTupleStore) EnsureStore(ctx context.Context, tenantID string) error {
	return nil
}

// EnsureModel is a no-op in local mode for the same reason.
func (s *LocalTupleStore) EnsureModel(ctx context.Context, tenantID string) error {
	return nil
}

// WriteTuples inserts tuples, ordered deterministically so retries of a partially
// applied batch are idempotent regardless of backend ordering. Writing a tuple
// that already exists succeeds (ON CONFLICT DO NOTHING), matching grant's
// idempotency requirement.
func (s *LocalTupleStore) WriteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error {
	if len(tuples) == 0 {
		return nil
	}
	sorted := sortedCopy(tuples)

	querier := database.GetTx(ctx, s.db)
	for _, t := range sorted {
		_, err := querier.ExecContext(ctx, `
			INSERT INTO authz_tuples (tenant_id, user_key, relation, object_key)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (tenant_id, user_key, relation, object_key) DO NOTHING
		`, tenantID, t.User, string(t.Relation), t.Object)
		if err != nil {
			return apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
		}
	}
	return nil
}

// DeleteTuples removes tuples; deleting a tuple that doesn't exist succeeds,
// matching revoke's idempotency requirement.
func (s *LocalTupleStore) DeleteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error {
	if len(tuples) == 0 {
		return nil
	}
	sorted := sortedCopy(tuples)

	querier := database.GetTx(ctx, s.db)
	for _, t := range sorted {
		_, err := querier.ExecContext(ctx, `
			DELETE FROM authz_tuples WHERE tenant_id = $1 AND user_key = $2 AND relation = $3 AND object_key = $4
		`, tenantID, t.User, string(t.Relation), t.Object)
		if err != nil {
			return apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
		}
	}
	return nil
}

// DeleteTenantTuples removes every tuple for tenantID, used to cascade tenant deletion.
func (s *LocalTupleStore) DeleteTenantTuples(ctx context.Context, tenantID string) error {
	querier := database.GetTx(ctx, s.db)
	_, err := querier.ExecContext(ctx, `DELETE FROM authz_tuples WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
	}
	return nil
}

// ListTenantIDs returns the distinct tenant ids present in the tuple table.
func (s *LocalTupleStore) ListTenantIDs(ctx context.Context) ([]string, error) {
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

// Check resolves whether user holds relation on object, folding in contextual
// tuples that are never persisted. The resolver implements three rules generically
// rather than hardcoding per-type logic:
//
//  1. Direct tuple match, including userset indirection ("role:x#assignee").
//  2. reader/writer/manager additionally hold if the user is "admin" on the same object.
//  3. Any relation propagates up the object's "parent" edges: if object's parent is p,
//     holding the same relation (or, for reader/writer/manager, "admin") on p is sufficient.
//
// This reproduces the schema's union/parent semantics (§3, §4.3) without requiring a
// bespoke evaluator per type.
func (s *LocalTupleStore) Check(
	ctx context.Context,
	tenantID, user string,
	relation domain.Relation,
	object string,
	contextualTuples []domain.Tuple,
) (bool, error) {
	all, err := s.loadTuples(ctx, tenantID)
	if err != nil {
		return false, err
	}
	all = append(all, contextualTuples...)

	r := &resolver{tuples: all, visited: map[string]bool{}}
	return r.resolve(user, relation, object), nil
}

func (s *LocalTupleStore) loadTuples(ctx context.Context, tenantID string) ([]domain.Tuple, error) {
	querier := database.GetTx(ctx, s.db)
	rows, err := querier.QueryContext(ctx, `
		SELECT user_key, relation, object_key FROM authz_tuples WHERE tenant_id = $1
	`, tenantID)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
	}
	defer rows.Close()

	var out []domain.Tuple
	for rows.Next() {
		var t domain.Tuple
		var relation string
		if err := rows.Scan(&t.User, &relation, &t.Object); err != nil {
			return nil, apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
		}
		t.Relation = domain.Relation(relation)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
	}
	return out, nil
}

// resolver walks the in-memory tuple set for a single Check call. visited guards
// against cycles in recursive types such as role.parent:role.
type resolver struct {
	tuples  []domain.Tuple
	visited map[string]bool
}

func (r *resolver) resolve(user string, relation domain.Relation, object string) bool {
	key := object + "|" + string(relation)
	if r.visited[key] {
		return false
	}
	r.visited[key] = true

	for _, t := range r.tuples {
		if t.Object != object || t.Relation != relation {
			continue
		}
		if t.User == user {
			return true
		}
		if usersetObj, usersetRel, ok := t.UsersetParts(); ok {
			if r.resolve(user, usersetRel, usersetObj) {
				return true
			}
		}
	}

	if domain.IsUnionedViaAdmin(relation) {
		if r.resolve(user, domain.RelationAdmin, object) {
			return true
		}
	}

	for _, t := range r.tuples {
		if t.User != object || t.Relation != domain.RelationParent {
			continue
		}
		ancestor := t.Object
		if r.resolve(user, relation, ancestor) {
			return true
		}
		if domain.IsUnionedViaAdmin(relation) && r.resolve(user, domain.RelationAdmin, ancestor) {
			return true
		}
	}

	return false
}

func sortedCopy(tuples []domain.Tuple) []domain.Tuple {
	out := make([]domain.Tuple, len(tuples))
	copy(out, tuples)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Object != out[j].Object {
			return out[i].Object < out[j].Object
		}
		if out[i].Relation != out[j].Relation {
			return out[i].Relation < out[j].Relation
		}
		return out[i].User < out[j].User
	})
	return out
}
