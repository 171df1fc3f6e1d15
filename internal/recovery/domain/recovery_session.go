// Package domain defines the public-key registry and threshold KEK recovery
// types (C9). The server stores opaque encrypted shares and commitments; it can
// never combine shares or reconstruct key material on its own.
package domain

import (
	"time"
)

// RecoverySessionStatus is the lifecycle state of a recovery session.
type RecoverySessionStatus string

const (
	RecoverySessionPending   RecoverySessionStatus = "pending"
	RecoverySessionCompleted RecoverySessionStatus = "completed"
	RecoverySessionExpired   RecoverySessionStatus = "expired"
	RecoverySessionCancelled RecoverySessionStatus = "cancelled"
)

// RecoveryShare is one submitted share: ciphertext encrypted for the session
// initiator, opaque to the server. Commitment is a server-computed hash of the
// ciphertext so the initiator can detect substitution without the server ever
// learning the share value.
type RecoveryShare struct {
	SessionID       string
	SubmitterUserID string
	EncryptedFor    string
	Ciphertext      string
	Commitment      string
	SubmittedAt     time.Time
}

// RecoverySession is a time-bounded threshold recovery protocol instance.
type RecoverySession struct {
	ID          string
	TenantID    string
	VersionID   string
	InitiatedBy string
	Threshold   int
	Reason      string
	Status      RecoverySessionStatus
	Shares      []RecoveryShare
	// NewVersionID is the KEK version created when the session completed.
	NewVersionID string
	// RecoveredKEKCiphertext is the reconstructed KEK re-encrypted by the
	// initiator before submission; the server stores it opaquely.
	RecoveredKEKCiphertext string
	CreatedAt              time.Time
	ExpiresAt              time.Time
}

// ExpiredAt reports whether the session's deadline has passed at now. Only
// pending sessions expire; terminal states are unaffected by the clock.
func (s *RecoverySession) ExpiredAt(now time.Time) bool {
	return s.Status == RecoverySessionPending && now.After(s.ExpiresAt)
}

// HasSubmitter reports whether userID already submitted a share.
func (s *RecoverySession) HasSubmitter(userID string) bool {
	for _, share := range s.Shares {
		if share.SubmitterUserID == userID {
			return true
		}
	}
	return false
}

// ThresholdMet reports whether enough distinct submitters have contributed.
func (s *RecoverySession) ThresholdMet() bool {
	return len(s.Shares) >= s.Threshold
}

// InitiateInput carries the parameters for starting a recovery session.
type InitiateInput struct {
	TenantID    string
	InitiatorID string
	VersionID   string
	Threshold   int
	Reason      string
	TTL         time.Duration
}

// CompleteInput carries the parameters for completing a recovery session: the
// re-encrypted recovered KEK and the new version to create from it.
type CompleteInput struct {
	SessionID              string
	CallerUserID           string
	RecoveredKEKCiphertext string
	NewVersionID           string
	NewVersionReason       string
}
