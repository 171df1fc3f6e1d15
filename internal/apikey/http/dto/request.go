// Package dto provides data transfer objects for the API-key endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/authkeyd/internal/validation"
)

// IssueAPIKeyRequest contains the parameters for minting a new API key.
type IssueAPIKeyRequest struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
	// ExpiresIn is the key lifetime in seconds; zero means no expiry.
	ExpiresIn int `json:"expires_in"`
}

// Validate checks if the issue request is valid.
func (r *IssueAPIKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Scopes, validation.Each(customValidation.NotBlank)),
		validation.Field(&r.ExpiresIn, validation.Min(0)),
	)
}

// VerifyAPIKeyRequest contains a raw key to verify directly.
type VerifyAPIKeyRequest struct {
	APIKey string `json:"api_key"`
}

// Validate checks if the verify request is valid.
func (r *VerifyAPIKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.APIKey, validation.Required, customValidation.NotBlank),
	)
}

// VerifyChallengeRequest contains a challenge nonce and the caller's MAC
// response "<keyId>.<mac>".
type VerifyChallengeRequest struct {
	Challenge string `json:"challenge"`
	Response  string `json:"response"`
}

// Validate checks if the verify-challenge request is valid.
func (r *VerifyChallengeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Challenge, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Response, validation.Required, customValidation.NotBlank),
	)
}
