// Package service implements the authorization service (C3): tenant-scoped
// grant/revoke/check over the fixed schema, plus tenant lifecycle and identity
// bootstrap.
package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/allisson/authkeyd/internal/authz/cache"
	"github.com/allisson/authkeyd/internal/authz/domain"
	apperrors "github.com/allisson/authkeyd/internal/errors"
)

// DefaultTenantID is used when a request arrives without a tenant header.
// Preserved for backward compatibility with single-tenant deployments.
const DefaultTenantID = "default"

// Checker is the narrow read path other components (C4-C9) depend on to gate
// their own operations without importing the full service.
type Checker interface {
	Check(ctx context.Context, tenantID, user string, relation domain.Relation, object string, contextualTuples []domain.Tuple) (bool, error)
	CheckPermission(ctx context.Context, tenantID, user, permission, object string) (bool, error)
}

// Service implements C3 over a decision cache (which itself wraps a tuple
// store) and serializes tenant lifecycle operations per tenant so a concurrent
// createTenant/deleteTenant pair can't interleave into partial state.
type Service struct {
	cache *cache.DecisionCache

	mu          sync.Mutex
	tenantLocks map[string]*sync.Mutex

	logger *slog.Logger
}

// New creates an authorization service over the given decision cache.
func New(decisionCache *cache.DecisionCache, logger *slog.Logger) *Service {
	return &Service{
		cache:       decisionCache,
		tenantLocks: map[string]*sync.Mutex{},
		logger:      logger,
	}
}

func (s *Service) lockFor(tenantID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.tenantLocks[tenantID]
	if !ok {
		l = &sync.Mutex{}
		s.tenantLocks[tenantID] = l
	}
	return l
}

// Check resolves whether user holds relation on object within tenantID.
func (s *Service) Check(
	ctx context.Context,
	tenantID, user string,
	relation domain.Relation,
	object string,
	contextualTuples []domain.Tuple,
) (bool, error) {
	if tenantID == "" {
		tenantID = DefaultTenantID
	}
	return s.cache.Check(ctx, tenantID, user, relation, object, contextualTuples)
}

// CheckPermission is a convenience wrapper translating the read/write/admin/owner
// permission vocabulary to the underlying relation before checking.
func (s *Service) CheckPermission(ctx context.Context, tenantID, user, permission, object string) (bool, error) {
	relation := domain.PermissionToRelation(permission)
	return s.Check(ctx, tenantID, user, relation, object, nil)
}

// Grant writes a single tuple. Idempotent: granting an existing tuple succeeds.
func (s *Service) Grant(ctx context.Context, tenantID string, t domain.Tuple) error {
	if tenantID == "" {
		tenantID = DefaultTenantID
	}
	return s.cache.WriteTuples(ctx, tenantID, []domain.Tuple{t})
}

// Revoke removes a single tuple. Idempotent: revoking a missing tuple succeeds.
func (s *Service) Revoke(ctx context.Context, tenantID string, t domain.Tuple) error {
	if tenantID == "" {
		tenantID = DefaultTenantID
	}
	return s.cache.DeleteTuples(ctx, tenantID, []domain.Tuple{t})
}

// CreateTenant bootstraps a new tenant: records its existence, makes callerUserID
// both admin and member, and returns once the tuples are durably written. KEK
// version initialization (§3) is the caller's responsibility (C7), since this
// package has no KEK dependency.
func (s *Service) CreateTenant(ctx context.Context, tenantID, callerUserID string) error {
	lock := s.lockFor(tenantID)
	lock.Lock()
	defer lock.Unlock()

	exists, err := s.cache.Check(ctx, tenantID, "tenant:"+tenantID, domain.RelationExists, "tenant:"+tenantID, nil)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.Wrap(domain.ErrTenantAlreadyExists, tenantID)
	}

	tenantRef := "tenant:" + tenantID
	userRef := "user:" + callerUserID
	tuples := []domain.Tuple{
		{User: tenantRef, Relation: domain.RelationExists, Object: tenantRef},
		{User: userRef, Relation: domain.RelationAdmin, Object: tenantRef},
		{User: userRef, Relation: domain.RelationMember, Object: tenantRef},
	}
	if err := s.cache.WriteTuples(ctx, tenantID, tuples); err != nil {
		return err
	}
	return nil
}

// DeleteTenant cascade-removes every tuple for tenantID. It first checks that
// callerUserID is admin of tenantID or admin of system:* (§4.3) and returns
// ErrForbidden otherwise.
func (s *Service) DeleteTenant(ctx context.Context, tenantID, callerUserID string) error {
	lock := s.lockFor(tenantID)
	lock.Lock()
	defer lock.Unlock()

	allowed, err := s.isTenantAdminOrSystemAdmin(ctx, tenantID, callerUserID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.Wrap(apperrors.ErrForbidden, "caller is not tenant admin or system admin")
	}

	tenantRef := "tenant:" + tenantID
	exists, err := s.cache.Check(ctx, tenantID, tenantRef, domain.RelationExists, tenantRef, nil)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.Wrap(domain.ErrTenantNotFound, tenantID)
	}

	if err := s.cache.DeleteTenantTuples(ctx, tenantID); err != nil {
		return err
	}
	s.cache.InvalidateTenant(tenantID)
	return nil
}

func (s *Service) isTenantAdminOrSystemAdmin(ctx context.Context, tenantID, userID string) (bool, error) {
	userRef := "user:" + userID
	tenantAdmin, err := s.cache.Check(ctx, tenantID, userRef, domain.RelationAdmin, "tenant:"+tenantID, nil)
	if err != nil {
		return false, err
	}
	if tenantAdmin {
		return true, nil
	}
	return s.cache.Check(ctx, tenantID, userRef, domain.RelationAdmin, "system:*", nil)
}

// CleanupTenant removes a tenant's tuples without an authorization check. It
// exists solely so tenant bootstrap can roll back the tuples it just wrote when
// a later bootstrap step (KEK initialization) fails; it is never routed.
func (s *Service) CleanupTenant(ctx context.Context, tenantID string) error {
	if err := s.cache.DeleteTenantTuples(ctx, tenantID); err != nil {
		return err
	}
	s.cache.InvalidateTenant(tenantID)
	return nil
}

// AddUserToTenant grants userID the member relation on tenantID, and admin too
// when asAdmin is set.
func (s *Service) AddUserToTenant(ctx context.Context, tenantID, userID string, asAdmin bool) error {
	tenantRef := "tenant:" + tenantID
	userRef := "user:" + userID
	tuples := []domain.Tuple{{User: userRef, Relation: domain.RelationMember, Object: tenantRef}}
	if asAdmin {
		tuples = append(tuples, domain.Tuple{User: userRef, Relation: domain.RelationAdmin, Object: tenantRef})
	}
	return s.cache.WriteTuples(ctx, tenantID, tuples)
}

// UpdateUserRole promotes or demotes userID's admin status on tenantID without
// disturbing their member relation.
func (s *Service) UpdateUserRole(ctx context.Context, tenantID, userID string, admin bool) error {
	tenantRef := "tenant:" + tenantID
	userRef := "user:" + userID
	t := domain.Tuple{User: userRef, Relation: domain.RelationAdmin, Object: tenantRef}
	if admin {
		return s.cache.WriteTuples(ctx, tenantID, []domain.Tuple{t})
	}
	return s.cache.DeleteTuples(ctx, tenantID, []domain.Tuple{t})
}

// ListTenants returns every tenant id the tuple store knows about.
func (s *Service) ListTenants(ctx context.Context) ([]string, error) {
	return s.cache.ListTenantIDs(ctx)
}
