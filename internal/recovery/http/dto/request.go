// Package dto provides data transfer objects for the recovery and public-key
// HTTP endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/authkeyd/internal/validation"
)

// InitiateRecoveryRequest contains the parameters for starting a recovery session.
type InitiateRecoveryRequest struct {
	VersionID string `json:"version_id"`
	Threshold int    `json:"threshold"`
	Reason    string `json:"reason"`
	// ExpiresIn is the session lifetime in seconds; the server default applies
	// when omitted.
	ExpiresIn int `json:"expires_in"`
}

// Validate checks if the initiate-recovery request is valid.
func (r *InitiateRecoveryRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.VersionID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Threshold, validation.Required, validation.Min(1)),
		validation.Field(&r.Reason, validation.Required, customValidation.NotBlank),
		validation.Field(&r.ExpiresIn, validation.Min(0)),
	)
}

// SubmitShareRequest contains one member's encrypted share.
type SubmitShareRequest struct {
	Share        string `json:"share"`
	EncryptedFor string `json:"encrypted_for"`
}

// Validate checks if the submit-share request is valid.
func (r *SubmitShareRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Share, validation.Required, customValidation.NotBlank),
		validation.Field(&r.EncryptedFor, validation.Required, customValidation.NotBlank),
	)
}

// NewKekVersionSpec names the version a completed recovery produces.
type NewKekVersionSpec struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// CompleteRecoveryRequest contains the re-encrypted recovered KEK and the new
// version to create from it.
type CompleteRecoveryRequest struct {
	RecoveredKEK  string            `json:"recovered_kek"`
	NewKEKVersion NewKekVersionSpec `json:"new_kek_version"`
}

// Validate checks if the complete-recovery request is valid.
func (r *CompleteRecoveryRequest) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.RecoveredKEK, validation.Required, customValidation.Base64),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&r.NewKEKVersion,
		validation.Field(&r.NewKEKVersion.Reason, validation.Required, customValidation.NotBlank),
	)
}

// StorePublicKeyRequest registers (or replaces) the caller's public key for a
// purpose.
type StorePublicKeyRequest struct {
	Purpose   string `json:"purpose"`
	PublicKey string `json:"public_key"`
}

// Validate checks if the store-public-key request is valid.
func (r *StorePublicKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Purpose, validation.Required, customValidation.NotBlank),
		validation.Field(&r.PublicKey, validation.Required, customValidation.Base64),
	)
}

// UpdatePublicKeyRequest replaces the key material of an existing registration.
type UpdatePublicKeyRequest struct {
	PublicKey string `json:"public_key"`
}

// Validate checks if the update-public-key request is valid.
func (r *UpdatePublicKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.PublicKey, validation.Required, customValidation.Base64),
	)
}

// VerifyPublicKeyRequest checks a presented key against the registry.
type VerifyPublicKeyRequest struct {
	UserID    string `json:"user_id"`
	Purpose   string `json:"purpose"`
	PublicKey string `json:"public_key"`
}

// Validate checks if the verify-public-key request is valid.
func (r *VerifyPublicKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Purpose, validation.Required, customValidation.NotBlank),
		validation.Field(&r.PublicKey, validation.Required, customValidation.Base64),
	)
}
