package domain

import (
	"github.com/allisson/authkeyd/internal/errors"
)

// Recovery and public-key error definitions.
var (
	// ErrPublicKeyNotFound indicates no key is registered for (user, purpose, tenant).
	ErrPublicKeyNotFound = errors.Wrap(errors.ErrNotFound, "public key not found")

	// ErrSessionNotFound indicates the referenced recovery session does not exist.
	ErrSessionNotFound = errors.Wrap(errors.ErrNotFound, "recovery session not found")

	// ErrSessionNotPending indicates the session already reached a terminal
	// state (completed, expired, or cancelled).
	ErrSessionNotPending = errors.Wrap(errors.ErrInvalidTransition, "recovery session is not pending")

	// ErrSessionExpired indicates the session's deadline passed before the
	// operation.
	ErrSessionExpired = errors.Wrap(errors.ErrInvalidTransition, "recovery session expired")

	// ErrDuplicateShare indicates the submitter already contributed to this session.
	ErrDuplicateShare = errors.Wrap(errors.ErrConflict, "submitter already provided a share")

	// ErrThresholdNotMet indicates completion was attempted with too few shares.
	ErrThresholdNotMet = errors.Wrap(errors.ErrConflict, "not enough shares submitted")

	// ErrNotInitiator indicates only the session initiator may perform this operation.
	ErrNotInitiator = errors.Wrap(errors.ErrForbidden, "caller did not initiate this session")

	// ErrVersionNotRecoverable indicates recovery was attempted on the active
	// version; only decrypt-only or deprecated versions can be recovered.
	ErrVersionNotRecoverable = errors.Wrap(errors.ErrConflict, "cannot recover the active kek version")
)
