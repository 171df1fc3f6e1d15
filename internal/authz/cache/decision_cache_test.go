package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/allisson/authkeyd/internal/authz/domain"
)

// TestMain verifies the sweeper goroutine doesn't leak past Close.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeTupleStore is an in-memory TupleStore that counts Check calls so tests
// can observe caching behavior.
type fakeTupleStore struct {
	mu     sync.Mutex
	tuples map[string]map[domain.Tuple]bool // tenant -> tuple -> present

	checkCalls atomic.Int64
}

func newFakeTupleStore() *fakeTupleStore {
	return &fakeTupleStore{tuples: map[string]map[domain.Tuple]bool{}}
}

func (s *fakeTupleStore) WriteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tuples[tenantID] == nil {
		s.tuples[tenantID] = map[domain.Tuple]bool{}
	}
	for _, t := range tuples {
		s.tuples[tenantID][t] = true
	}
	return nil
}

func (s *fakeTupleStore) DeleteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tuples {
		delete(s.tuples[tenantID], t)
	}
	return nil
}

func (s *fakeTupleStore) Check(
	ctx context.Context, tenantID, user string, relation domain.Relation, object string,
	contextualTuples []domain.Tuple,
) (bool, error) {
	s.checkCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	target := domain.Tuple{User: user, Relation: relation, Object: object}
	if s.tuples[tenantID][target] {
		return true, nil
	}
	for _, t := range contextualTuples {
		if t == target {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeTupleStore) EnsureStore(ctx context.Context, tenantID string) error { return nil }
func (s *fakeTupleStore) EnsureModel(ctx context.Context, tenantID string) error { return nil }

func (s *fakeTupleStore) DeleteTenantTuples(ctx context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tuples, tenantID)
	return nil
}

func (s *fakeTupleStore) ListTenantIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tuples))
	for id := range s.tuples {
		out = append(out, id)
	}
	return out, nil
}

var aliceAdmin = domain.Tuple{User: "user:alice", Relation: domain.RelationAdmin, Object: "tenant:acme"}

func TestDecisionCacheServesFromCache(t *testing.T) {
	store := newFakeTupleStore()
	c := New(store, time.Minute, 0.2)
	defer c.Close()

	require.NoError(t, store.WriteTuples(context.Background(), "acme", []domain.Tuple{aliceAdmin}))

	for i := 0; i < 5; i++ {
		allowed, err := c.Check(context.Background(), "acme", "user:alice", domain.RelationAdmin, "tenant:acme", nil)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	assert.Equal(t, int64(1), store.checkCalls.Load())
}

func TestDecisionCacheCachesNegativeResults(t *testing.T) {
	store := newFakeTupleStore()
	c := New(store, time.Minute, 0.2)
	defer c.Close()

	for i := 0; i < 3; i++ {
		allowed, err := c.Check(context.Background(), "acme", "user:bob", domain.RelationAdmin, "tenant:acme", nil)
		require.NoError(t, err)
		assert.False(t, allowed)
	}
	assert.Equal(t, int64(1), store.checkCalls.Load())
}

func TestDecisionCacheCoherenceAfterGrantAndRevoke(t *testing.T) {
	store := newFakeTupleStore()
	c := New(store, time.Minute, 0.2)
	defer c.Close()

	// Prime a negative entry.
	allowed, err := c.Check(context.Background(), "acme", "user:alice", domain.RelationAdmin, "tenant:acme", nil)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Invariant 3: a grant is observed by the immediately following check.
	require.NoError(t, c.WriteTuples(context.Background(), "acme", []domain.Tuple{aliceAdmin}))
	allowed, err = c.Check(context.Background(), "acme", "user:alice", domain.RelationAdmin, "tenant:acme", nil)
	require.NoError(t, err)
	assert.True(t, allowed)

	// And so is a revoke.
	require.NoError(t, c.DeleteTuples(context.Background(), "acme", []domain.Tuple{aliceAdmin}))
	allowed, err = c.Check(context.Background(), "acme", "user:alice", domain.RelationAdmin, "tenant:acme", nil)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestDecisionCacheContextualTuplesBypassCache(t *testing.T) {
	store := newFakeTupleStore()
	c := New(store, time.Minute, 0.2)
	defer c.Close()

	contextual := []domain.Tuple{aliceAdmin}
	for i := 0; i < 3; i++ {
		allowed, err := c.Check(
			context.Background(), "acme", "user:alice", domain.RelationAdmin, "tenant:acme", contextual,
		)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	// Every contextual check hits the store; none is cached.
	assert.Equal(t, int64(3), store.checkCalls.Load())

	// The contextual result never leaks into the cached view.
	allowed, err := c.Check(context.Background(), "acme", "user:alice", domain.RelationAdmin, "tenant:acme", nil)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestDecisionCacheTenantInvalidation(t *testing.T) {
	store := newFakeTupleStore()
	c := New(store, time.Minute, 0.2)
	defer c.Close()

	require.NoError(t, store.WriteTuples(context.Background(), "acme", []domain.Tuple{aliceAdmin}))

	allowed, err := c.Check(context.Background(), "acme", "user:alice", domain.RelationAdmin, "tenant:acme", nil)
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, c.DeleteTenantTuples(context.Background(), "acme"))
	c.InvalidateTenant("acme")

	allowed, err = c.Check(context.Background(), "acme", "user:alice", domain.RelationAdmin, "tenant:acme", nil)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestDecisionCacheEntriesExpire(t *testing.T) {
	store := newFakeTupleStore()
	c := New(store, 10*time.Millisecond, 0.5)
	defer c.Close()

	_, err := c.Check(context.Background(), "acme", "user:alice", domain.RelationAdmin, "tenant:acme", nil)
	require.NoError(t, err)

	require.NoError(t, store.WriteTuples(context.Background(), "acme", []domain.Tuple{aliceAdmin}))
	time.Sleep(20 * time.Millisecond)

	allowed, err := c.Check(context.Background(), "acme", "user:alice", domain.RelationAdmin, "tenant:acme", nil)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.GreaterOrEqual(t, store.checkCalls.Load(), int64(2))
}
