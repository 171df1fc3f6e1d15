package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/authkeyd/internal/apikey/domain"
	"github.com/allisson/authkeyd/internal/apikey/service"
	apperrors "github.com/allisson/authkeyd/internal/errors"
)

// fakeAPIKeyRepository is an in-memory APIKeyRepository.
type fakeAPIKeyRepository struct {
	mu   sync.Mutex
	keys map[uuid.UUID]*domain.APIKey
}

func newFakeAPIKeyRepository() *fakeAPIKeyRepository {
	return &fakeAPIKeyRepository{keys: map[uuid.UUID]*domain.APIKey{}}
}

func (r *fakeAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *key
	r.keys[key.ID] = &c
	return nil
}

func (r *fakeAPIKeyRepository) Get(ctx context.Context, id uuid.UUID) (*domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[id]
	if !ok {
		return nil, domain.ErrAPIKeyNotFound
	}
	c := *key
	return &c, nil
}

func (r *fakeAPIKeyRepository) ListByUser(
	ctx context.Context, tenantID, userID string,
) ([]*domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.APIKey, 0)
	for _, key := range r.keys {
		if key.TenantID == tenantID && key.UserID == userID {
			c := *key
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeAPIKeyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[id]
	if !ok {
		return domain.ErrAPIKeyNotFound
	}
	key.Revoked = true
	return nil
}

func (r *fakeAPIKeyRepository) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key, ok := r.keys[id]; ok {
		now := time.Now()
		key.LastUsedAt = &now
	}
	return nil
}

func newAPIKeyFixture(t *testing.T) (APIKeyUseCase, *service.ChallengeStore) {
	t.Helper()
	challenges := service.NewChallengeStore(time.Minute, time.Minute)
	t.Cleanup(challenges.Close)
	return New(newFakeAPIKeyRepository(), service.NewSecretHasher(), challenges), challenges
}

func TestAPIKeyIssueAndDirectVerify(t *testing.T) {
	uc, _ := newAPIKeyFixture(t)
	ctx := context.Background()

	out, err := uc.Issue(ctx, domain.IssueInput{
		UserID: "alice", TenantID: "acme", Name: "ci", Scopes: []string{"logs:write"},
	})
	require.NoError(t, err)
	assert.Contains(t, out.RawKey, ".")
	assert.NotContains(t, out.APIKey.VerificationDigest, strings.SplitN(out.RawKey, ".", 2)[1])

	principal, err := uc.Verify(ctx, out.RawKey)
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.UserID)
	assert.Equal(t, "acme", principal.TenantID)
	assert.Equal(t, []string{"logs:write"}, principal.Scopes)
}

func TestAPIKeyVerifyRejectsWrongSecret(t *testing.T) {
	uc, _ := newAPIKeyFixture(t)
	ctx := context.Background()

	out, err := uc.Issue(ctx, domain.IssueInput{UserID: "alice", TenantID: "acme", Name: "ci"})
	require.NoError(t, err)

	id := strings.SplitN(out.RawKey, ".", 2)[0]
	_, err = uc.Verify(ctx, id+".wrong-secret")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	_, err = uc.Verify(ctx, "not-a-key")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestAPIKeyRevokedNeverAuthenticates(t *testing.T) {
	uc, _ := newAPIKeyFixture(t)
	ctx := context.Background()

	out, err := uc.Issue(ctx, domain.IssueInput{UserID: "alice", TenantID: "acme", Name: "ci"})
	require.NoError(t, err)
	require.NoError(t, uc.Delete(ctx, out.APIKey.ID))

	// Invariant 6: revoked keys fail both verification paths.
	_, err = uc.Verify(ctx, out.RawKey)
	require.Error(t, err)

	challenge, _, err := uc.IssueChallenge(ctx)
	require.NoError(t, err)
	secret := strings.SplitN(out.RawKey, ".", 2)[1]
	response := fmt.Sprintf("%s.%s", out.APIKey.ID, service.ComputeMAC(service.DeriveMACKey(secret), challenge))
	_, err = uc.VerifyChallenge(ctx, challenge, response)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestAPIKeyChallengeFlow(t *testing.T) {
	uc, _ := newAPIKeyFixture(t)
	ctx := context.Background()

	// S5: issue a key, answer a challenge with the MAC derived from the secret.
	out, err := uc.Issue(ctx, domain.IssueInput{
		UserID: "alice", TenantID: "acme", Name: "ci", Scopes: []string{"logs:write"},
	})
	require.NoError(t, err)

	challenge, ttl, err := uc.IssueChallenge(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	secret := strings.SplitN(out.RawKey, ".", 2)[1]
	response := fmt.Sprintf("%s.%s", out.APIKey.ID, service.ComputeMAC(service.DeriveMACKey(secret), challenge))

	principal, err := uc.VerifyChallenge(ctx, challenge, response)
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.UserID)
	assert.Equal(t, []string{"logs:write"}, principal.Scopes)

	// Replay of the consumed challenge fails with a validation error, not 401.
	_, err = uc.VerifyChallenge(ctx, challenge, response)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestAPIKeyChallengeWrongMAC(t *testing.T) {
	uc, _ := newAPIKeyFixture(t)
	ctx := context.Background()

	out, err := uc.Issue(ctx, domain.IssueInput{UserID: "alice", TenantID: "acme", Name: "ci"})
	require.NoError(t, err)

	challenge, _, err := uc.IssueChallenge(ctx)
	require.NoError(t, err)

	response := fmt.Sprintf("%s.%s", out.APIKey.ID, "deadbeef")
	_, err = uc.VerifyChallenge(ctx, challenge, response)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	// A failed attempt doesn't burn the nonce: the correct answer to the same
	// challenge still authenticates within the TTL.
	secret := strings.SplitN(out.RawKey, ".", 2)[1]
	good := fmt.Sprintf("%s.%s", out.APIKey.ID, service.ComputeMAC(service.DeriveMACKey(secret), challenge))
	principal, err := uc.VerifyChallenge(ctx, challenge, good)
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.UserID)

	// The success consumed it; replaying the correct answer now fails.
	_, err = uc.VerifyChallenge(ctx, challenge, good)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestAPIKeyExpiry(t *testing.T) {
	uc, _ := newAPIKeyFixture(t)
	ctx := context.Background()

	ttl := -time.Minute
	out, err := uc.Issue(ctx, domain.IssueInput{
		UserID: "alice", TenantID: "acme", Name: "ci", TTL: &ttl,
	})
	require.NoError(t, err)

	_, err = uc.Verify(ctx, out.RawKey)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestAPIKeyListNeverDisclosesSecrets(t *testing.T) {
	uc, _ := newAPIKeyFixture(t)
	ctx := context.Background()

	out, err := uc.Issue(ctx, domain.IssueInput{UserID: "alice", TenantID: "acme", Name: "ci"})
	require.NoError(t, err)
	secret := strings.SplitN(out.RawKey, ".", 2)[1]

	keys, err := uc.List(ctx, "acme", "alice")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	// Invariant 5: the stored digest is not the secret, and the raw key never
	// appears in listings.
	assert.NotEqual(t, secret, keys[0].VerificationDigest)
	assert.NotContains(t, keys[0].VerificationDigest, secret)
}
