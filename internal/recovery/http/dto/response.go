package dto

import (
	"time"

	"github.com/allisson/authkeyd/internal/recovery/domain"
)

// ShareResponse is the wire representation of a submitted share. The ciphertext
// is intentionally absent: reads expose who submitted and when, never what
// (§4.8).
type ShareResponse struct {
	SubmitterUserID string `json:"submitter_user_id"`
	EncryptedFor    string `json:"encrypted_for"`
	SubmittedAt     string `json:"submitted_at"`
}

// SessionResponse is the wire representation of a recovery session.
type SessionResponse struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	KekVersionID    string          `json:"kek_version_id"`
	InitiatedBy     string          `json:"initiated_by"`
	Threshold       int             `json:"threshold"`
	Reason          string          `json:"reason"`
	Status          string          `json:"status"`
	Shares          []ShareResponse `json:"shares"`
	NewKekVersionID string          `json:"new_kek_version_id,omitempty"`
	CreatedAt       string          `json:"created_at"`
	ExpiresAt       string          `json:"expires_at"`
}

// NewSessionResponse maps a domain session to its wire shape, redacting share
// ciphertexts.
func NewSessionResponse(s *domain.RecoverySession) SessionResponse {
	shares := make([]ShareResponse, 0, len(s.Shares))
	for _, share := range s.Shares {
		shares = append(shares, ShareResponse{
			SubmitterUserID: share.SubmitterUserID,
			EncryptedFor:    share.EncryptedFor,
			SubmittedAt:     share.SubmittedAt.Format(time.RFC3339),
		})
	}
	return SessionResponse{
		ID:              s.ID,
		TenantID:        s.TenantID,
		KekVersionID:    s.VersionID,
		InitiatedBy:     s.InitiatedBy,
		Threshold:       s.Threshold,
		Reason:          s.Reason,
		Status:          string(s.Status),
		Shares:          shares,
		NewKekVersionID: s.NewVersionID,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
		ExpiresAt:       s.ExpiresAt.Format(time.RFC3339),
	}
}

// PublicKeyResponse is the wire representation of a public-key registration.
type PublicKeyResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id"`
	Purpose   string `json:"purpose"`
	PublicKey string `json:"public_key"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// NewPublicKeyResponse maps a domain public key to its wire shape.
func NewPublicKeyResponse(k *domain.PublicKey) PublicKeyResponse {
	return PublicKeyResponse{
		ID:        k.ID.String(),
		UserID:    k.UserID,
		TenantID:  k.TenantID,
		Purpose:   k.Purpose,
		PublicKey: k.PublicKey,
		CreatedAt: k.CreatedAt.Format(time.RFC3339),
		UpdatedAt: k.UpdatedAt.Format(time.RFC3339),
	}
}

// VerifyPublicKeyResponse reports whether a presented key matched.
type VerifyPublicKeyResponse struct {
	Valid bool `json:"valid"`
}
