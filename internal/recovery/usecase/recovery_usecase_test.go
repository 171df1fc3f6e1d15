package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authzDomain "github.com/allisson/authkeyd/internal/authz/domain"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	kekDomain "github.com/allisson/authkeyd/internal/kek/domain"
	"github.com/allisson/authkeyd/internal/recovery/domain"
)

type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeChecker grants admin and member relations from fixed sets.
type fakeChecker struct {
	admins  map[string]bool
	members map[string]bool
}

func (f *fakeChecker) Check(
	ctx context.Context, tenantID, user string, relation authzDomain.Relation, object string,
	contextualTuples []authzDomain.Tuple,
) (bool, error) {
	key := tenantID + "/" + user
	switch relation {
	case authzDomain.RelationAdmin:
		return f.admins[key], nil
	case authzDomain.RelationMember:
		return f.members[key] || f.admins[key], nil
	}
	return false, nil
}

// fakeRegistry is an in-memory KekVersionRegistry that demotes the prior
// active version on create, like the real C7 use case.
type fakeRegistry struct {
	mu       sync.Mutex
	versions map[string]*kekDomain.KekVersion // tenant/id -> version
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{versions: map[string]*kekDomain.KekVersion{}}
}

func (f *fakeRegistry) put(v *kekDomain.KekVersion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions[v.TenantID+"/"+v.ID] = v
}

func (f *fakeRegistry) Get(ctx context.Context, tenantID, id string) (*kekDomain.KekVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.versions[tenantID+"/"+id]
	if !ok {
		return nil, kekDomain.ErrKekVersionNotFound
	}
	out := *v
	return &out, nil
}

func (f *fakeRegistry) Create(
	ctx context.Context, input kekDomain.CreateVersionInput,
) (*kekDomain.KekVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.versions {
		if v.TenantID == input.TenantID && v.Status == kekDomain.KekVersionActive {
			v.Status = kekDomain.KekVersionDecryptOnly
		}
	}
	id := input.ID
	if id == "" {
		id = "generated-" + input.Reason
	}
	v := &kekDomain.KekVersion{
		ID: id, TenantID: input.TenantID, CreatedBy: input.InitiatorID,
		Reason: input.Reason, Status: kekDomain.KekVersionActive, CreatedAt: time.Now(),
	}
	f.versions[input.TenantID+"/"+id] = v
	return v, nil
}

// fakeSessionRepository is an in-memory RecoverySessionRepository.
type fakeSessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.RecoverySession
}

func newFakeSessionRepository() *fakeSessionRepository {
	return &fakeSessionRepository{sessions: map[string]*domain.RecoverySession{}}
}

func (r *fakeSessionRepository) Create(ctx context.Context, session *domain.RecoverySession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *session
	r.sessions[session.ID] = &c
	return nil
}

func (r *fakeSessionRepository) Get(ctx context.Context, id string) (*domain.RecoverySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	c := *s
	c.Shares = append([]domain.RecoveryShare(nil), s.Shares...)
	return &c, nil
}

func (r *fakeSessionRepository) ListByTenant(
	ctx context.Context, tenantID string,
) ([]*domain.RecoverySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.RecoverySession, 0)
	for _, s := range r.sessions {
		if s.TenantID == tenantID {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeSessionRepository) UpdateStatus(
	ctx context.Context, id string, status domain.RecoverySessionStatus,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Status = status
	return nil
}

func (r *fakeSessionRepository) SetCompleted(ctx context.Context, id, newVersionID, ciphertext string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Status = domain.RecoverySessionCompleted
	s.NewVersionID = newVersionID
	s.RecoveredKEKCiphertext = ciphertext
	return nil
}

func (r *fakeSessionRepository) AddShare(ctx context.Context, share *domain.RecoveryShare) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[share.SessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	for _, existing := range s.Shares {
		if existing.SubmitterUserID == share.SubmitterUserID {
			return domain.ErrDuplicateShare
		}
	}
	s.Shares = append(s.Shares, *share)
	return nil
}

func (r *fakeSessionRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.Status == domain.RecoverySessionPending && now.After(s.ExpiresAt) {
			s.Status = domain.RecoverySessionExpired
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionRepository) DeleteByTenant(ctx context.Context, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.TenantID == tenantID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func newRecoveryFixture() (RecoveryUseCase, *fakeRegistry, *fakeSessionRepository) {
	registry := newFakeRegistry()
	repo := newFakeSessionRepository()
	checker := &fakeChecker{
		admins: map[string]bool{
			"acme/user:alice": true, "acme/user:dan": true, "acme/user:erin": true,
		},
		members: map[string]bool{"acme/user:bob": true},
	}
	uc := NewRecoveryUseCase(fakeTxManager{}, repo, registry, checker)
	return uc, registry, repo
}

const shareCiphertext = "1:c2hhcmUtY2lwaGVydGV4dA=="

func TestRecoveryInitiateRequiresNonActiveVersion(t *testing.T) {
	uc, registry, _ := newRecoveryFixture()
	registry.put(&kekDomain.KekVersion{ID: "v1", TenantID: "acme", Status: kekDomain.KekVersionActive})

	_, err := uc.Initiate(context.Background(), domain.InitiateInput{
		TenantID: "acme", InitiatorID: "alice", VersionID: "v1", Threshold: 2, Reason: "lost KEK",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestRecoveryInitiateRequiresAdmin(t *testing.T) {
	uc, registry, _ := newRecoveryFixture()
	registry.put(&kekDomain.KekVersion{ID: "v1", TenantID: "acme", Status: kekDomain.KekVersionDecryptOnly})

	_, err := uc.Initiate(context.Background(), domain.InitiateInput{
		TenantID: "acme", InitiatorID: "bob", VersionID: "v1", Threshold: 2, Reason: "lost KEK",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestRecoveryThresholdFlow(t *testing.T) {
	uc, registry, _ := newRecoveryFixture()
	registry.put(&kekDomain.KekVersion{ID: "v1", TenantID: "acme", Status: kekDomain.KekVersionDecryptOnly})

	session, err := uc.Initiate(context.Background(), domain.InitiateInput{
		TenantID: "acme", InitiatorID: "alice", VersionID: "v1", Threshold: 3,
		Reason: "lost KEK", TTL: time.Hour,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RecoverySessionPending, session.Status)

	// Two shares: threshold not met, complete fails with 409.
	_, err = uc.SubmitShare(context.Background(), session.ID, "acme", "alice", "alice", shareCiphertext)
	require.NoError(t, err)
	_, err = uc.SubmitShare(context.Background(), session.ID, "acme", "dan", "alice", "2:not-base64!!")
	require.Error(t, err) // malformed share framing

	_, err = uc.SubmitShare(context.Background(), session.ID, "acme", "dan", "alice", "2:c2hhcmUtdHdvAA==")
	require.NoError(t, err)

	_, _, err = uc.Complete(context.Background(), "acme", domain.CompleteInput{
		SessionID: session.ID, CallerUserID: "alice",
		RecoveredKEKCiphertext: "cmVjb3ZlcmVk", NewVersionID: "v4", NewVersionReason: "recovered",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	// Third distinct admin: threshold met.
	_, err = uc.SubmitShare(context.Background(), session.ID, "acme", "erin", "alice", "3:c2hhcmUtdGhyZWU=")
	require.NoError(t, err)

	completed, newVersion, err := uc.Complete(context.Background(), "acme", domain.CompleteInput{
		SessionID: session.ID, CallerUserID: "alice",
		RecoveredKEKCiphertext: "cmVjb3ZlcmVk", NewVersionID: "v4", NewVersionReason: "recovered",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RecoverySessionCompleted, completed.Status)
	assert.Equal(t, "v4", newVersion.ID)
	assert.Equal(t, kekDomain.KekVersionActive, newVersion.Status)

	// Submissions after completion are rejected.
	_, err = uc.SubmitShare(context.Background(), session.ID, "acme", "bob", "alice", "4:c2hhcmUtZm91cg==")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))
}

func TestRecoveryDuplicateSubmitter(t *testing.T) {
	uc, registry, _ := newRecoveryFixture()
	registry.put(&kekDomain.KekVersion{ID: "v1", TenantID: "acme", Status: kekDomain.KekVersionDecryptOnly})

	session, err := uc.Initiate(context.Background(), domain.InitiateInput{
		TenantID: "acme", InitiatorID: "alice", VersionID: "v1", Threshold: 2,
		Reason: "lost KEK", TTL: time.Hour,
	})
	require.NoError(t, err)

	_, err = uc.SubmitShare(context.Background(), session.ID, "acme", "dan", "alice", shareCiphertext)
	require.NoError(t, err)
	_, err = uc.SubmitShare(context.Background(), session.ID, "acme", "dan", "alice", shareCiphertext)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestRecoveryCompleteOnlyInitiator(t *testing.T) {
	uc, registry, _ := newRecoveryFixture()
	registry.put(&kekDomain.KekVersion{ID: "v1", TenantID: "acme", Status: kekDomain.KekVersionDecryptOnly})

	session, err := uc.Initiate(context.Background(), domain.InitiateInput{
		TenantID: "acme", InitiatorID: "alice", VersionID: "v1", Threshold: 1,
		Reason: "lost KEK", TTL: time.Hour,
	})
	require.NoError(t, err)
	_, err = uc.SubmitShare(context.Background(), session.ID, "acme", "dan", "alice", shareCiphertext)
	require.NoError(t, err)

	_, _, err = uc.Complete(context.Background(), "acme", domain.CompleteInput{
		SessionID: session.ID, CallerUserID: "dan",
		RecoveredKEKCiphertext: "cmVjb3ZlcmVk", NewVersionReason: "recovered",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestRecoveryExpiryIsLazy(t *testing.T) {
	uc, registry, repo := newRecoveryFixture()
	registry.put(&kekDomain.KekVersion{ID: "v1", TenantID: "acme", Status: kekDomain.KekVersionDecryptOnly})

	session, err := uc.Initiate(context.Background(), domain.InitiateInput{
		TenantID: "acme", InitiatorID: "alice", VersionID: "v1", Threshold: 1,
		Reason: "lost KEK", TTL: time.Millisecond,
	})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	_, err = uc.SubmitShare(context.Background(), session.ID, "acme", "dan", "alice", shareCiphertext)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))

	stored, err := repo.Get(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecoverySessionExpired, stored.Status)
}

func TestRecoveryCancel(t *testing.T) {
	uc, registry, _ := newRecoveryFixture()
	registry.put(&kekDomain.KekVersion{ID: "v1", TenantID: "acme", Status: kekDomain.KekVersionDecryptOnly})

	session, err := uc.Initiate(context.Background(), domain.InitiateInput{
		TenantID: "acme", InitiatorID: "alice", VersionID: "v1", Threshold: 2,
		Reason: "lost KEK", TTL: time.Hour,
	})
	require.NoError(t, err)

	require.Error(t, uc.Cancel(context.Background(), session.ID, "acme", "dan"))
	require.NoError(t, uc.Cancel(context.Background(), session.ID, "acme", "alice"))

	got, err := uc.GetSession(context.Background(), session.ID, "acme")
	require.NoError(t, err)
	assert.Equal(t, domain.RecoverySessionCancelled, got.Status)
}

func TestRecoverySessionTenantScoping(t *testing.T) {
	uc, registry, _ := newRecoveryFixture()
	registry.put(&kekDomain.KekVersion{ID: "v1", TenantID: "acme", Status: kekDomain.KekVersionDecryptOnly})

	session, err := uc.Initiate(context.Background(), domain.InitiateInput{
		TenantID: "acme", InitiatorID: "alice", VersionID: "v1", Threshold: 2,
		Reason: "lost KEK", TTL: time.Hour,
	})
	require.NoError(t, err)

	_, err = uc.GetSession(context.Background(), session.ID, "globex")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
