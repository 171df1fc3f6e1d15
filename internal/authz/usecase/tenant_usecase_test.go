package usecase

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/authkeyd/internal/authz/cache"
	"github.com/allisson/authkeyd/internal/authz/domain"
	"github.com/allisson/authkeyd/internal/authz/service"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	kekDomain "github.com/allisson/authkeyd/internal/kek/domain"
)

// memoryTupleStore is a minimal in-memory tuple store for bootstrap tests;
// only exact-match checks are needed here.
type memoryTupleStore struct {
	tuples map[string]map[domain.Tuple]bool
}

func newMemoryTupleStore() *memoryTupleStore {
	return &memoryTupleStore{tuples: map[string]map[domain.Tuple]bool{}}
}

func (s *memoryTupleStore) WriteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error {
	if s.tuples[tenantID] == nil {
		s.tuples[tenantID] = map[domain.Tuple]bool{}
	}
	for _, t := range tuples {
		s.tuples[tenantID][t] = true
	}
	return nil
}

func (s *memoryTupleStore) DeleteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error {
	for _, t := range tuples {
		delete(s.tuples[tenantID], t)
	}
	return nil
}

func (s *memoryTupleStore) Check(
	ctx context.Context, tenantID, user string, relation domain.Relation, object string,
	contextualTuples []domain.Tuple,
) (bool, error) {
	return s.tuples[tenantID][domain.Tuple{User: user, Relation: relation, Object: object}], nil
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

// fakeKek records created versions and can be told to fail.
type fakeKek struct {
	fail    bool
	created []kekDomain.CreateVersionInput
}

func (f *fakeKek) Create(
	ctx context.Context, input kekDomain.CreateVersionInput,
) (*kekDomain.KekVersion, error) {
	if f.fail {
		return nil, apperrors.New("kek store down")
	}
	f.created = append(f.created, input)
	return &kekDomain.KekVersion{
		ID: "v1", TenantID: input.TenantID, Status: kekDomain.KekVersionActive,
	}, nil
}

// fakeRemover records cascade calls.
type fakeRemover struct {
	deleted []string
}

func (f *fakeRemover) DeleteByTenant(ctx context.Context, tenantID string) error {
	f.deleted = append(f.deleted, tenantID)
	return nil
}

func newFixture(t *testing.T, kek *fakeKek, removers ...TenantResourceRemover) (TenantUseCase, *service.Service) {
	t.Helper()
	c := cache.New(newMemoryTupleStore(), time.Minute, 0.2)
	t.Cleanup(c.Close)
	svc := service.New(c, slog.Default())
	return NewTenantUseCase(svc, kek, slog.Default(), removers...), svc
}

func TestTenantCreateInitializesKek(t *testing.T) {
	kek := &fakeKek{}
	uc, svc := newFixture(t, kek)
	ctx := context.Background()

	require.NoError(t, uc.Create(ctx, "acme", "alice"))

	require.Len(t, kek.created, 1)
	assert.Equal(t, "acme", kek.created[0].TenantID)
	assert.Equal(t, "alice", kek.created[0].InitiatorID)

	allowed, err := svc.Check(ctx, "acme", "user:alice", domain.RelationAdmin, "tenant:acme", nil)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestTenantCreateRollsBackOnKekFailure(t *testing.T) {
	kek := &fakeKek{fail: true}
	uc, svc := newFixture(t, kek)
	ctx := context.Background()

	require.Error(t, uc.Create(ctx, "acme", "alice"))

	// No partial state: the tuples written before the KEK failure are gone.
	allowed, err := svc.Check(ctx, "acme", "user:alice", domain.RelationAdmin, "tenant:acme", nil)
	require.NoError(t, err)
	assert.False(t, allowed)

	// A retry after the KEK store recovers succeeds.
	kek.fail = false
	require.NoError(t, uc.Create(ctx, "acme", "alice"))
}

func TestTenantDeleteCascades(t *testing.T) {
	kek := &fakeKek{}
	versions := &fakeRemover{}
	blobs := &fakeRemover{}
	uc, _ := newFixture(t, kek, versions, blobs)
	ctx := context.Background()

	require.NoError(t, uc.Create(ctx, "acme", "alice"))
	require.NoError(t, uc.Delete(ctx, "acme", "alice"))

	assert.Equal(t, []string{"acme"}, versions.deleted)
	assert.Equal(t, []string{"acme"}, blobs.deleted)
}

func TestTenantDeleteDeniedForNonAdmin(t *testing.T) {
	kek := &fakeKek{}
	remover := &fakeRemover{}
	uc, _ := newFixture(t, kek, remover)
	ctx := context.Background()

	require.NoError(t, uc.Create(ctx, "acme", "alice"))
	err := uc.Delete(ctx, "acme", "mallory")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	assert.Empty(t, remover.deleted)
}
