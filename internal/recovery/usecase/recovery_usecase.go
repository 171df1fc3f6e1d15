package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	authzDomain "github.com/allisson/authkeyd/internal/authz/domain"
	"github.com/allisson/authkeyd/internal/database"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	kekDomain "github.com/allisson/authkeyd/internal/kek/domain"
	"github.com/allisson/authkeyd/internal/recovery/domain"
	"github.com/allisson/authkeyd/internal/recovery/repository"
)

// DefaultSessionTTL bounds a recovery session when the initiator doesn't
// specify one.
const DefaultSessionTTL = time.Hour

// recoveryUseCase implements RecoveryUseCase. Session state transitions are
// serialized per session id (§5); expiry is enforced lazily on every read and
// eagerly by the sweeper.
type recoveryUseCase struct {
	txManager database.TxManager
	repo      repository.RecoverySessionRepository
	versions  KekVersionRegistry
	checker   RelationChecker

	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

// NewRecoveryUseCase creates the threshold recovery use case.
func NewRecoveryUseCase(
	txManager database.TxManager,
	repo repository.RecoverySessionRepository,
	versions KekVersionRegistry,
	checker RelationChecker,
) RecoveryUseCase {
	return &recoveryUseCase{
		txManager:    txManager,
		repo:         repo,
		versions:     versions,
		checker:      checker,
		sessionLocks: map[string]*sync.Mutex{},
	}
}

func (u *recoveryUseCase) lockFor(sessionID string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	l, ok := u.sessionLocks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		u.sessionLocks[sessionID] = l
	}
	return l
}

func (u *recoveryUseCase) requireRelation(
	ctx context.Context, tenantID, userID string, relation authzDomain.Relation,
) error {
	allowed, err := u.checker.Check(ctx, tenantID, "user:"+userID, relation, "tenant:"+tenantID, nil)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.Wrap(apperrors.ErrForbidden, "caller lacks the "+string(relation)+" relation on the tenant")
	}
	return nil
}

// Initiate starts a recovery session for a decrypt-only or deprecated version.
// The active version is never recovered (§4.8).
func (u *recoveryUseCase) Initiate(ctx context.Context, input domain.InitiateInput) (*domain.RecoverySession, error) {
	if input.Threshold < 1 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "threshold must be at least 1")
	}
	if err := u.requireRelation(ctx, input.TenantID, input.InitiatorID, authzDomain.RelationAdmin); err != nil {
		return nil, err
	}

	version, err := u.versions.Get(ctx, input.TenantID, input.VersionID)
	if err != nil {
		return nil, err
	}
	if version.Status == kekDomain.KekVersionActive {
		return nil, domain.ErrVersionNotRecoverable
	}

	ttl := input.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	now := time.Now()
	session := &domain.RecoverySession{
		ID:          uuid.Must(uuid.NewV7()).String(),
		TenantID:    input.TenantID,
		VersionID:   input.VersionID,
		InitiatedBy: input.InitiatorID,
		Threshold:   input.Threshold,
		Reason:      input.Reason,
		Status:      domain.RecoverySessionPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	if err := u.repo.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// getPending loads the session, enforces tenant scoping, and lazily expires it.
func (u *recoveryUseCase) getPending(ctx context.Context, sessionID, tenantID string) (*domain.RecoverySession, error) {
	session, err := u.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TenantID != tenantID {
		return nil, domain.ErrSessionNotFound
	}
	if session.ExpiredAt(time.Now()) {
		if err := u.repo.UpdateStatus(ctx, sessionID, domain.RecoverySessionExpired); err != nil {
			return nil, err
		}
		session.Status = domain.RecoverySessionExpired
		return session, domain.ErrSessionExpired
	}
	if session.Status != domain.RecoverySessionPending {
		return session, domain.ErrSessionNotPending
	}
	return session, nil
}

// SubmitShare records one member's encrypted share (S6).
func (u *recoveryUseCase) SubmitShare(
	ctx context.Context, sessionID, tenantID, submitterUserID, encryptedFor, ciphertext string,
) (*domain.RecoverySession, error) {
	if _, err := domain.ParseShareCiphertext(ciphertext); err != nil {
		return nil, err
	}
	if err := u.requireRelation(ctx, tenantID, submitterUserID, authzDomain.RelationMember); err != nil {
		return nil, err
	}

	lock := u.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := u.getPending(ctx, sessionID, tenantID)
	if err != nil {
		return nil, err
	}
	if session.HasSubmitter(submitterUserID) {
		return nil, domain.ErrDuplicateShare
	}

	share := &domain.RecoveryShare{
		SessionID:       sessionID,
		SubmitterUserID: submitterUserID,
		EncryptedFor:    encryptedFor,
		Ciphertext:      ciphertext,
		Commitment:      domain.ShareCommitment(ciphertext),
		SubmittedAt:     time.Now(),
	}
	if err := u.repo.AddShare(ctx, share); err != nil {
		return nil, err
	}

	session.Shares = append(session.Shares, *share)
	return session, nil
}

// Complete finishes the session: only the initiator, only while pending, only
// with threshold met. The new KEK version is created in the same transaction
// that flips the session to completed (S6): the registry's own WithTx joins
// the transaction already in ctx, so a SetCompleted failure rolls back the
// version creation with it.
func (u *recoveryUseCase) Complete(
	ctx context.Context, tenantID string, input domain.CompleteInput,
) (*domain.RecoverySession, *kekDomain.KekVersion, error) {
	lock := u.lockFor(input.SessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := u.getPending(ctx, input.SessionID, tenantID)
	if err != nil {
		return nil, nil, err
	}
	if session.InitiatedBy != input.CallerUserID {
		return nil, nil, domain.ErrNotInitiator
	}
	if !session.ThresholdMet() {
		return nil, nil, domain.ErrThresholdNotMet
	}

	var newVersion *kekDomain.KekVersion
	err = u.txManager.WithTx(ctx, func(ctx context.Context) error {
		v, err := u.versions.Create(ctx, kekDomain.CreateVersionInput{
			TenantID:    tenantID,
			InitiatorID: input.CallerUserID,
			Reason:      input.NewVersionReason,
			ID:          input.NewVersionID,
		})
		if err != nil {
			return err
		}
		newVersion = v
		return u.repo.SetCompleted(ctx, input.SessionID, v.ID, input.RecoveredKEKCiphertext)
	})
	if err != nil {
		return nil, nil, err
	}

	session.Status = domain.RecoverySessionCompleted
	session.NewVersionID = newVersion.ID
	session.RecoveredKEKCiphertext = input.RecoveredKEKCiphertext
	return session, newVersion, nil
}

// Cancel aborts a pending session; only the initiator may cancel.
func (u *recoveryUseCase) Cancel(ctx context.Context, sessionID, tenantID, callerUserID string) error {
	lock := u.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := u.getPending(ctx, sessionID, tenantID)
	if err != nil {
		return err
	}
	if session.InitiatedBy != callerUserID {
		return domain.ErrNotInitiator
	}
	return u.repo.UpdateStatus(ctx, sessionID, domain.RecoverySessionCancelled)
}

// GetSession returns the session for display. Expiry is applied lazily; share
// ciphertexts are redacted at the DTO layer, which only exposes submitter ids
// and timestamps (§4.8).
func (u *recoveryUseCase) GetSession(ctx context.Context, sessionID, tenantID string) (*domain.RecoverySession, error) {
	session, err := u.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TenantID != tenantID {
		return nil, domain.ErrSessionNotFound
	}
	if session.ExpiredAt(time.Now()) {
		if err := u.repo.UpdateStatus(ctx, sessionID, domain.RecoverySessionExpired); err != nil {
			return nil, err
		}
		session.Status = domain.RecoverySessionExpired
	}
	return session, nil
}

// ListSessions returns the tenant's sessions, newest first, without shares.
func (u *recoveryUseCase) ListSessions(ctx context.Context, tenantID string) ([]*domain.RecoverySession, error) {
	return u.repo.ListByTenant(ctx, tenantID)
}

// DeleteByTenant removes every session for tenantID.
func (u *recoveryUseCase) DeleteByTenant(ctx context.Context, tenantID string) error {
	return u.repo.DeleteByTenant(ctx, tenantID)
}

// SweepExpired transitions overdue pending sessions to expired.
func (u *recoveryUseCase) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return u.repo.ExpirePending(ctx, now)
}
