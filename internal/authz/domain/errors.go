// Package domain defines the authorization graph's fixed type/relation schema.
package domain

import (
	"github.com/allisson/authkeyd/internal/errors"
)

// Tuple-store and authorization-service error definitions.
var (
	// ErrTupleStoreUnavailable indicates the tuple-store backend could not be
	// reached or timed out. Retryable.
	ErrTupleStoreUnavailable = errors.Wrap(errors.ErrBackendUnavailable, "tuple store unavailable")

	// ErrTupleStoreRejected indicates the tuple-store backend refused the write
	// (e.g. schema violation). Not retryable.
	ErrTupleStoreRejected = errors.Wrap(errors.ErrInvalidInput, "tuple store rejected write")

	// ErrTenantAlreadyExists indicates createTenant collided on an existing id.
	ErrTenantAlreadyExists = errors.Wrap(errors.ErrConflict, "tenant already exists")

	// ErrTenantNotFound indicates the referenced tenant has no "exists" tuple.
	ErrTenantNotFound = errors.Wrap(errors.ErrNotFound, "tenant not found")

	// ErrInvalidObjectRef indicates a user/object string isn't "<type>:<id>".
	ErrInvalidObjectRef = errors.Wrap(errors.ErrInvalidInput, "invalid object reference")
)
