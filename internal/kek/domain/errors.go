package domain

import (
	"github.com/allisson/authkeyd/internal/errors"
)

// KEK custody error definitions.
var (
	// ErrKekVersionNotFound indicates the referenced KEK version does not exist.
	ErrKekVersionNotFound = errors.Wrap(errors.ErrNotFound, "kek version not found")

	// ErrActiveKekVersionNotFound indicates the tenant has no active KEK version.
	ErrActiveKekVersionNotFound = errors.Wrap(errors.ErrNotFound, "active kek version not found")

	// ErrKekVersionExists indicates a version with this id already exists for the tenant.
	ErrKekVersionExists = errors.Wrap(errors.ErrConflict, "kek version already exists")

	// ErrInvalidStatusTransition indicates the requested status change is not
	// permitted by the version state machine.
	ErrInvalidStatusTransition = errors.Wrap(errors.ErrInvalidTransition, "kek version status transition not permitted")

	// ErrKekBlobNotFound indicates no blob exists for the (tenant, user, version) triple.
	ErrKekBlobNotFound = errors.Wrap(errors.ErrNotFound, "kek blob not found")

	// ErrVersionDeprecated indicates blobs cannot be provisioned against a
	// deprecated version.
	ErrVersionDeprecated = errors.Wrap(errors.ErrConflict, "kek version is deprecated")

	// ErrUserRemovedFromVersion indicates the user was removed during the
	// rotation that created this version and must not receive a blob for it.
	ErrUserRemovedFromVersion = errors.Wrap(errors.ErrForbidden, "user was removed from this kek version")
)
