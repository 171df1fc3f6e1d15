package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/kek/domain"
)

// fakeTxManager runs the function without a real transaction; the fake
// repository is already atomic under its mutex.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeKekVersionRepository is an in-memory KekVersionRepository.
type fakeKekVersionRepository struct {
	mu       sync.Mutex
	versions map[string]map[string]*domain.KekVersion // tenant -> id -> version
	removed  map[string]map[string]bool               // tenant:version -> user -> removed
}

func newFakeKekVersionRepository() *fakeKekVersionRepository {
	return &fakeKekVersionRepository{
		versions: map[string]map[string]*domain.KekVersion{},
		removed:  map[string]map[string]bool{},
	}
}

func (r *fakeKekVersionRepository) Create(ctx context.Context, version *domain.KekVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, ok := r.versions[version.TenantID]
	if !ok {
		byID = map[string]*domain.KekVersion{}
		r.versions[version.TenantID] = byID
	}
	if _, exists := byID[version.ID]; exists {
		return domain.ErrKekVersionExists
	}
	v := *version
	byID[version.ID] = &v
	return nil
}

func (r *fakeKekVersionRepository) Get(ctx context.Context, tenantID, id string) (*domain.KekVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.versions[tenantID][id]
	if !ok {
		return nil, domain.ErrKekVersionNotFound
	}
	out := *v
	return &out, nil
}

func (r *fakeKekVersionRepository) GetActive(ctx context.Context, tenantID string) (*domain.KekVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.versions[tenantID] {
		if v.Status == domain.KekVersionActive {
			out := *v
			return &out, nil
		}
	}
	return nil, domain.ErrActiveKekVersionNotFound
}

func (r *fakeKekVersionRepository) List(ctx context.Context, tenantID string) ([]*domain.KekVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.KekVersion, 0, len(r.versions[tenantID]))
	for _, v := range r.versions[tenantID] {
		c := *v
		out = append(out, &c)
	}
	return out, nil
}

func (r *fakeKekVersionRepository) UpdateStatus(
	ctx context.Context, tenantID, id string, status domain.KekVersionStatus,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.versions[tenantID][id]
	if !ok {
		return domain.ErrKekVersionNotFound
	}
	v.Status = status
	return nil
}

func (r *fakeKekVersionRepository) AddRemovedUsers(
	ctx context.Context, tenantID, versionID string, userIDs []string,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tenantID + ":" + versionID
	if r.removed[key] == nil {
		r.removed[key] = map[string]bool{}
	}
	for _, u := range userIDs {
		r.removed[key][u] = true
	}
	return nil
}

func (r *fakeKekVersionRepository) IsUserRemoved(
	ctx context.Context, tenantID, versionID, userID string,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removed[tenantID+":"+versionID][userID], nil
}

func (r *fakeKekVersionRepository) DeleteByTenant(ctx context.Context, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.versions, tenantID)
	return nil
}

func newVersionUseCase() (KekVersionUseCase, *fakeKekVersionRepository) {
	repo := newFakeKekVersionRepository()
	return NewKekVersionUseCase(fakeTxManager{}, repo), repo
}

func TestKekVersionUseCaseCreateFirstVersion(t *testing.T) {
	uc, _ := newVersionUseCase()

	v1, err := uc.Create(context.Background(), domain.CreateVersionInput{
		TenantID: "acme", InitiatorID: "alice", Reason: "bootstrap",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KekVersionActive, v1.Status)
	assert.Equal(t, "acme", v1.TenantID)
	assert.Equal(t, "alice", v1.CreatedBy)
	assert.NotEmpty(t, v1.ID)

	active, err := uc.GetActive(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, v1.ID, active.ID)
}

func TestKekVersionUseCaseCreateDemotesPriorActive(t *testing.T) {
	uc, _ := newVersionUseCase()

	v1, err := uc.Create(context.Background(), domain.CreateVersionInput{
		TenantID: "acme", InitiatorID: "alice", Reason: "bootstrap",
	})
	require.NoError(t, err)

	v2, err := uc.Create(context.Background(), domain.CreateVersionInput{
		TenantID: "acme", InitiatorID: "alice", Reason: "quarterly",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KekVersionActive, v2.Status)

	active, err := uc.GetActive(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, v2.ID, active.ID)

	demoted, err := uc.Get(context.Background(), "acme", v1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.KekVersionDecryptOnly, demoted.Status)
}

func TestKekVersionUseCaseSingleActiveUnderConcurrency(t *testing.T) {
	uc, repo := newVersionUseCase()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Create(context.Background(), domain.CreateVersionInput{
				TenantID: "acme", InitiatorID: "alice", Reason: "race",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	repo.mu.Lock()
	activeCount := 0
	for _, v := range repo.versions["acme"] {
		if v.Status == domain.KekVersionActive {
			activeCount++
		}
	}
	repo.mu.Unlock()
	assert.Equal(t, 1, activeCount)
}

func TestKekVersionUseCaseUpdateStatusTransitions(t *testing.T) {
	uc, _ := newVersionUseCase()

	v1, err := uc.Create(context.Background(), domain.CreateVersionInput{
		TenantID: "acme", InitiatorID: "alice", Reason: "bootstrap",
	})
	require.NoError(t, err)
	_, err = uc.Create(context.Background(), domain.CreateVersionInput{
		TenantID: "acme", InitiatorID: "alice", Reason: "quarterly",
	})
	require.NoError(t, err)

	// v1 is now decrypt-only; promotion back to active is not a transition.
	_, err = uc.UpdateStatus(context.Background(), "acme", v1.ID, domain.KekVersionActive)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))

	updated, err := uc.UpdateStatus(context.Background(), "acme", v1.ID, domain.KekVersionDeprecated)
	require.NoError(t, err)
	assert.Equal(t, domain.KekVersionDeprecated, updated.Status)

	// Deprecated is terminal.
	_, err = uc.UpdateStatus(context.Background(), "acme", v1.ID, domain.KekVersionDecryptOnly)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))
}

func TestKekVersionUseCaseUpdateStatusUnknownStatus(t *testing.T) {
	uc, _ := newVersionUseCase()

	_, err := uc.UpdateStatus(context.Background(), "acme", "missing", domain.KekVersionStatus("retired"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestKekVersionUseCaseRotateRecordsRemovedUsers(t *testing.T) {
	uc, _ := newVersionUseCase()

	_, err := uc.Create(context.Background(), domain.CreateVersionInput{
		TenantID: "acme", InitiatorID: "alice", Reason: "bootstrap",
	})
	require.NoError(t, err)

	v3, err := uc.Rotate(context.Background(), domain.CreateVersionInput{
		TenantID: "acme", InitiatorID: "alice", Reason: "remove mallory", RemovedUsers: []string{"mallory"},
	})
	require.NoError(t, err)

	removed, err := uc.IsUserRemoved(context.Background(), "acme", v3.ID, "mallory")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = uc.IsUserRemoved(context.Background(), "acme", v3.ID, "alice")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestKekVersionUseCaseCreateWithExplicitID(t *testing.T) {
	uc, _ := newVersionUseCase()

	v, err := uc.Create(context.Background(), domain.CreateVersionInput{
		TenantID: "acme", InitiatorID: "alice", Reason: "recovered", ID: "v4",
	})
	require.NoError(t, err)
	assert.Equal(t, "v4", v.ID)

	_, err = uc.Create(context.Background(), domain.CreateVersionInput{
		TenantID: "acme", InitiatorID: "alice", Reason: "dup", ID: "v4",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}
