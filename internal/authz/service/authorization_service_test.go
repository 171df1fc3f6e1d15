package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/authkeyd/internal/authz/cache"
	"github.com/allisson/authkeyd/internal/authz/domain"
	"github.com/allisson/authkeyd/internal/authz/repository"
	apperrors "github.com/allisson/authkeyd/internal/errors"
)

// memoryTupleStore is an in-memory TupleStore with the same union/parent
// resolution semantics as the SQL-backed local store, via the shared resolver
// rules reimplemented over a map.
type memoryTupleStore struct {
	tuples map[string][]domain.Tuple
}

func newMemoryTupleStore() *memoryTupleStore {
	return &memoryTupleStore{tuples: map[string][]domain.Tuple{}}
}

func (s *memoryTupleStore) WriteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error {
	for _, t := range tuples {
		if !s.has(tenantID, t) {
			s.tuples[tenantID] = append(s.tuples[tenantID], t)
		}
	}
	return nil
}

func (s *memoryTupleStore) has(tenantID string, target domain.Tuple) bool {
	for _, t := range s.tuples[tenantID] {
		if t == target {
			return true
		}
	}
	return false
}

func (s *memoryTupleStore) DeleteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error {
	for _, target := range tuples {
		kept := s.tuples[tenantID][:0]
		for _, t := range s.tuples[tenantID] {
			if t != target {
				kept = append(kept, t)
			}
		}
		s.tuples[tenantID] = kept
	}
	return nil
}

func (s *memoryTupleStore) Check(
	ctx context.Context, tenantID, user string, relation domain.Relation, object string,
	contextualTuples []domain.Tuple,
) (bool, error) {
	all := append(append([]domain.Tuple(nil), s.tuples[tenantID]...), contextualTuples...)
	return resolveTuples(all, user, relation, object, map[string]bool{}), nil
}

// resolveTuples mirrors the local store's three resolution rules: direct match
// with userset indirection, admin union for reader/writer/manager, and parent
// propagation.
func resolveTuples(
	tuples []domain.Tuple, user string, relation domain.Relation, object string, visited map[string]bool,
) bool {
	key := object + "|" + string(relation)
	if visited[key] {
		return false
	}
	visited[key] = true

	for _, t := range tuples {
		if t.Object != object || t.Relation != relation {
			continue
		}
		if t.User == user {
			return true
		}
		if obj, rel, ok := t.UsersetParts(); ok && resolveTuples(tuples, user, rel, obj, visited) {
			return true
		}
	}
	if domain.IsUnionedViaAdmin(relation) && resolveTuples(tuples, user, domain.RelationAdmin, object, visited) {
		return true
	}
	for _, t := range tuples {
		if t.User != object || t.Relation != domain.RelationParent {
			continue
		}
		if resolveTuples(tuples, user, relation, t.Object, visited) {
			return true
		}
		if domain.IsUnionedViaAdmin(relation) && resolveTuples(tuples, user, domain.RelationAdmin, t.Object, visited) {
			return true
		}
	}
	return false
}

func (s *memoryTupleStore) EnsureStore(ctx context.Context, tenantID string) error { return nil }
func (s *memoryTupleStore) EnsureModel(ctx context.Context, tenantID string) error { return nil }

func (s *memoryTupleStore) DeleteTenantTuples(ctx context.Context, tenantID string) error {
	delete(s.tuples, tenantID)
	return nil
}

func (s *memoryTupleStore) ListTenantIDs(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(s.tuples))
	for id := range s.tuples {
		out = append(out, id)
	}
	return out, nil
}

var _ repository.TupleStore = (*memoryTupleStore)(nil)

func newService(t *testing.T) *Service {
	t.Helper()
	c := cache.New(newMemoryTupleStore(), time.Minute, 0.2)
	t.Cleanup(c.Close)
	return New(c, slog.Default())
}

func TestCreateTenantBootstrap(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	// S1: bootstrap acme with alice as admin.
	require.NoError(t, svc.CreateTenant(ctx, "acme", "alice"))

	allowed, err := svc.Check(ctx, "acme", "user:alice", domain.RelationAdmin, "tenant:acme", nil)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = svc.Check(ctx, "acme", "user:alice", domain.RelationMember, "tenant:acme", nil)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = svc.Check(ctx, "acme", "user:bob", domain.RelationMember, "tenant:acme", nil)
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, svc.AddUserToTenant(ctx, "acme", "bob", false))
	allowed, err = svc.Check(ctx, "acme", "user:bob", domain.RelationMember, "tenant:acme", nil)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCreateTenantCollision(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateTenant(ctx, "acme", "alice"))
	err := svc.CreateTenant(ctx, "acme", "mallory")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	// No partial state: mallory gained nothing.
	allowed, err := svc.Check(ctx, "acme", "user:mallory", domain.RelationAdmin, "tenant:acme", nil)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestGrantRevokeCoherence(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	// S2 end to end through the cache.
	require.NoError(t, svc.Grant(ctx, "acme", domain.Tuple{
		User: "user:alice", Relation: domain.RelationAdmin, Object: "tenant:acme",
	}))
	require.NoError(t, svc.Grant(ctx, "acme", domain.Tuple{
		User: "log:sys", Relation: domain.RelationParent, Object: "tenant:acme",
	}))

	allowed, err := svc.Check(ctx, "acme", "user:alice", domain.RelationReader, "log:sys", nil)
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, svc.Revoke(ctx, "acme", domain.Tuple{
		User: "user:alice", Relation: domain.RelationAdmin, Object: "tenant:acme",
	}))
	allowed, err = svc.Check(ctx, "acme", "user:alice", domain.RelationReader, "log:sys", nil)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestGrantIsIdempotent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	tuple := domain.Tuple{User: "user:alice", Relation: domain.RelationAdmin, Object: "tenant:acme"}

	require.NoError(t, svc.Grant(ctx, "acme", tuple))
	require.NoError(t, svc.Grant(ctx, "acme", tuple))
	require.NoError(t, svc.Revoke(ctx, "acme", tuple))

	allowed, err := svc.Check(ctx, "acme", "user:alice", domain.RelationAdmin, "tenant:acme", nil)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Revoking again is also fine.
	require.NoError(t, svc.Revoke(ctx, "acme", tuple))
}

func TestTenantIsolation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateTenant(ctx, "acme", "alice"))
	require.NoError(t, svc.CreateTenant(ctx, "globex", "hank"))

	// Invariant 8: alice's tuples in acme grant nothing in globex.
	allowed, err := svc.Check(ctx, "globex", "user:alice", domain.RelationAdmin, "tenant:acme", nil)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCheckDefaultsTenant(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, "", domain.Tuple{
		User: "user:alice", Relation: domain.RelationAdmin, Object: "tenant:default",
	}))
	allowed, err := svc.Check(ctx, "", "user:alice", domain.RelationAdmin, "tenant:default", nil)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCheckPermissionMapping(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, "acme", domain.Tuple{
		User: "user:alice", Relation: domain.RelationReader, Object: "log:sys",
	}))

	allowed, err := svc.CheckPermission(ctx, "acme", "user:alice", "read", "log:sys")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = svc.CheckPermission(ctx, "acme", "user:alice", "write", "log:sys")
	require.NoError(t, err)
	assert.False(t, allowed)

	// Unknown permission names pass through verbatim as relations.
	require.NoError(t, svc.Grant(ctx, "acme", domain.Tuple{
		User: "user:alice", Relation: "auditor", Object: "log:sys",
	}))
	allowed, err = svc.CheckPermission(ctx, "acme", "user:alice", "auditor", "log:sys")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestDeleteTenantRequiresAdmin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateTenant(ctx, "acme", "alice"))

	err := svc.DeleteTenant(ctx, "acme", "mallory")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	require.NoError(t, svc.DeleteTenant(ctx, "acme", "alice"))

	allowed, err := svc.Check(ctx, "acme", "user:alice", domain.RelationAdmin, "tenant:acme", nil)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestDeleteTenantBySystemAdmin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateTenant(ctx, "acme", "alice"))
	require.NoError(t, svc.Grant(ctx, "acme", domain.Tuple{
		User: "user:root", Relation: domain.RelationAdmin, Object: "system:*",
	}))

	require.NoError(t, svc.DeleteTenant(ctx, "acme", "root"))
}
