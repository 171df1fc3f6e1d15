// Package dto provides data transfer objects for the KEK custody HTTP endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/authkeyd/internal/validation"
)

// CreateVersionRequest contains the parameters for creating a new KEK version.
type CreateVersionRequest struct {
	Reason string `json:"reason"`
}

// Validate checks if the create-version request is valid.
func (r *CreateVersionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Required, customValidation.NotBlank),
	)
}

// UpdateVersionStatusRequest contains the target status for a version transition.
type UpdateVersionStatusRequest struct {
	Status string `json:"status"`
}

// Validate checks if the update-status request is valid.
func (r *UpdateVersionStatusRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Status, validation.Required, validation.In("active", "decrypt-only", "deprecated")),
	)
}

// RotateRequest contains the parameters for rotating the tenant's KEK, with an
// optional list of users that must not receive blobs for the new version.
type RotateRequest struct {
	Reason       string   `json:"reason"`
	RemovedUsers []string `json:"removed_users"`
}

// Validate checks if the rotate request is valid.
func (r *RotateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Required, customValidation.NotBlank),
		validation.Field(&r.RemovedUsers, validation.Each(customValidation.NotBlank)),
	)
}

// ProvisionBlobRequest contains a wrapped-KEK blob to store for one user under
// one version. The blob is opaque ciphertext; only its encoding is validated.
type ProvisionBlobRequest struct {
	UserID        string `json:"user_id"`
	KekVersionID  string `json:"kek_version_id"`
	EncryptedBlob string `json:"encrypted_blob"`
}

// Validate checks if the provision-blob request is valid.
func (r *ProvisionBlobRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.KekVersionID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.EncryptedBlob, validation.Required, customValidation.Base64),
	)
}
