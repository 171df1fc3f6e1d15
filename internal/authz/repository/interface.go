// Package repository implements the tuple-store adapter (C1) in its two operating
// modes: a local SQL-backed store and a per-tenant OpenFGA-backed store, unified
// behind one interface selected by configuration rather than runtime type checks.
package repository

import (
	"context"

	"github.com/allisson/authkeyd/internal/authz/domain"
)

// TupleStore is the narrow interface the authorization service (C3) and the
// decision cache (C2) depend on. Both adapter modes implement it identically.
type TupleStore interface {
	WriteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error
	DeleteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error
	Check(ctx context.Context, tenantID, user string, relation domain.Relation, object string, contextualTuples []domain.Tuple) (bool, error)
	EnsureStore(ctx context.Context, tenantID string) error
	EnsureModel(ctx context.Context, tenantID string) error
	// DeleteTenantTuples removes every tuple belonging to tenantID. Used by
	// tenant deletion to cascade-remove the authorization graph.
	DeleteTenantTuples(ctx context.Context, tenantID string) error
	// ListTenantIDs returns every tenant id the backend currently knows about.
	ListTenantIDs(ctx context.Context) ([]string, error)
}
