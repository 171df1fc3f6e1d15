package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authkeyd/internal/apikey/domain"
	"github.com/allisson/authkeyd/internal/apikey/repository"
	"github.com/allisson/authkeyd/internal/apikey/service"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	identityDomain "github.com/allisson/authkeyd/internal/identity/domain"
)

type apiKeyUseCase struct {
	repo       repository.APIKeyRepository
	hasher     *service.SecretHasher
	challenges *service.ChallengeStore
}

// New creates the API-key subsystem's use case.
func New(repo repository.APIKeyRepository, hasher *service.SecretHasher, challenges *service.ChallengeStore) APIKeyUseCase {
	return &apiKeyUseCase{repo: repo, hasher: hasher, challenges: challenges}
}

// Issue mints a new API key of the form "<id>.<secret>" and persists only its
// digest and MAC key; the raw key is returned exactly once (§3, invariant 5).
func (u *apiKeyUseCase) Issue(ctx context.Context, input domain.IssueInput) (domain.IssueOutput, error) {
	secret, err := u.hasher.GenerateSecret()
	if err != nil {
		return domain.IssueOutput{}, err
	}
	digest, err := u.hasher.Hash(secret)
	if err != nil {
		return domain.IssueOutput{}, err
	}

	var expiresAt *time.Time
	if input.TTL != nil {
		exp := time.Now().Add(*input.TTL)
		expiresAt = &exp
	}

	key := domain.APIKey{
		ID:                 uuid.Must(uuid.NewV7()),
		UserID:             input.UserID,
		TenantID:           input.TenantID,
		Name:               input.Name,
		Scopes:             input.Scopes,
		VerificationDigest: digest,
		MACKey:             service.DeriveMACKey(secret),
		CreatedAt:          time.Now(),
		ExpiresAt:          expiresAt,
	}

	if err := u.repo.Create(ctx, &key); err != nil {
		return domain.IssueOutput{}, err
	}

	rawKey := fmt.Sprintf("%s.%s", key.ID.String(), secret)
	return domain.IssueOutput{APIKey: key, RawKey: rawKey}, nil
}

// List returns the metadata (never the raw secret) of every key a user owns.
func (u *apiKeyUseCase) List(ctx context.Context, tenantID, userID string) ([]domain.APIKey, error) {
	keys, err := u.repo.ListByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.APIKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, *k)
	}
	return out, nil
}

// Delete revokes a key so it can never authenticate again.
func (u *apiKeyUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	return u.repo.Delete(ctx, id)
}

// Verify authenticates a raw "<id>.<secret>" key directly against its stored
// digest (§4.4, direct path).
func (u *apiKeyUseCase) Verify(ctx context.Context, rawKey string) (identityDomain.Principal, error) {
	id, secret, err := splitRawKey(rawKey)
	if err != nil {
		return identityDomain.Principal{}, err
	}

	key, err := u.repo.Get(ctx, id)
	if err != nil {
		return identityDomain.Principal{}, domain.ErrVerificationFailed
	}
	if !key.Usable(time.Now()) {
		return identityDomain.Principal{}, domain.ErrVerificationFailed
	}
	if !u.hasher.Compare(secret, key.VerificationDigest) {
		return identityDomain.Principal{}, domain.ErrVerificationFailed
	}

	_ = u.repo.TouchLastUsed(ctx, key.ID)
	return identityDomain.Principal{UserID: key.UserID, TenantID: key.TenantID, Scopes: key.Scopes}, nil
}

// IssueChallenge mints a fresh nonce for the challenge/response path.
func (u *apiKeyUseCase) IssueChallenge(ctx context.Context) (string, time.Duration, error) {
	return u.challenges.Issue()
}

// VerifyChallenge verifies response = "<keyId>." + HMAC-SHA256(challenge,
// secret) against the key's stored MAC key (§4.4, challenge/response path; S5).
// The challenge is consumed only on a successful verification: a wrong answer
// leaves the nonce intact for a correct retry within its TTL, while a correct
// answer burns it so the same (challenge, response) pair can never replay.
func (u *apiKeyUseCase) VerifyChallenge(
	ctx context.Context, challenge, response string,
) (identityDomain.Principal, error) {
	keyID, mac, err := splitRawKey(response)
	if err != nil {
		return identityDomain.Principal{}, domain.ErrVerificationFailed
	}

	key, err := u.repo.Get(ctx, keyID)
	if err != nil {
		return identityDomain.Principal{}, domain.ErrVerificationFailed
	}
	if !key.Usable(time.Now()) {
		return identityDomain.Principal{}, domain.ErrVerificationFailed
	}

	expected := service.ComputeMAC(key.MACKey, challenge)
	if !service.CompareMAC(expected, mac) {
		return identityDomain.Principal{}, domain.ErrVerificationFailed
	}

	if !u.challenges.Consume(challenge) {
		return identityDomain.Principal{}, domain.ErrChallengeInvalid
	}

	_ = u.repo.TouchLastUsed(ctx, key.ID)
	return identityDomain.Principal{UserID: key.UserID, TenantID: key.TenantID, Scopes: key.Scopes}, nil
}

// splitRawKey splits "<id>.<secret>" into its two halves.
func splitRawKey(rawKey string) (uuid.UUID, string, error) {
	parts := strings.SplitN(rawKey, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return uuid.UUID{}, "", apperrors.Wrap(domain.ErrMalformedKey, "expected <id>.<secret>")
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.UUID{}, "", domain.ErrMalformedKey
	}
	return id, parts[1], nil
}
