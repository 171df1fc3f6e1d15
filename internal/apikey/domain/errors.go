package domain

import apperrors "github.com/allisson/authkeyd/internal/errors"

var (
	// ErrAPIKeyNotFound is returned when a referenced key id does not exist.
	ErrAPIKeyNotFound = apperrors.Wrap(apperrors.ErrNotFound, "api key not found")
	// ErrChallengeInvalid is returned when a challenge is unknown, expired, or
	// already consumed.
	ErrChallengeInvalid = apperrors.Wrap(apperrors.ErrInvalidInput, "challenge invalid or expired")
	// ErrVerificationFailed is returned for any failed direct or
	// challenge/response verification.
	ErrVerificationFailed = apperrors.Wrap(apperrors.ErrUnauthorized, "api key verification failed")
	// ErrMalformedKey is returned when a raw key does not match "<id>.<secret>".
	ErrMalformedKey = apperrors.Wrap(apperrors.ErrInvalidInput, "malformed api key")
)
