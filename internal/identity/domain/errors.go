package domain

import "github.com/allisson/authkeyd/internal/errors"

var (
	// ErrAuthenticationFailed covers bad credentials and IdP rejection.
	ErrAuthenticationFailed = errors.Wrap(errors.ErrUnauthorized, "authentication failed")

	// ErrInvalidToken covers signature, expiry, or claim-shape failures on a
	// session or resource token.
	ErrInvalidToken = errors.Wrap(errors.ErrUnauthorized, "invalid token")

	// ErrIdPUnavailable indicates the external identity provider's token or JWKS
	// endpoint could not be reached or timed out. Retryable.
	ErrIdPUnavailable = errors.Wrap(errors.ErrBackendUnavailable, "identity provider unavailable")
)
