// Package dto provides data transfer objects for the identity gateway's HTTP endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/authkeyd/internal/validation"
)

// LoginRequest contains the parameters for a password login, which is
// delegated to the external identity provider (§4.4).
type LoginRequest struct {
	TenantID string `json:"tenant_id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks if the login request is valid.
func (r *LoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TenantID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Username, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Password, validation.Required, customValidation.NotBlank),
	)
}

// M2MLoginRequest contains the parameters for a client-credentials login.
type M2MLoginRequest struct {
	TenantID     string `json:"tenant_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Validate checks if the M2M login request is valid.
func (r *M2MLoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TenantID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.ClientID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.ClientSecret, validation.Required, customValidation.NotBlank),
	)
}

// APIKeyLoginRequest contains the parameters for exchanging a raw API key for a
// session token.
type APIKeyLoginRequest struct {
	APIKey string `json:"api_key"`
}

// Validate checks if the API-key login request is valid.
func (r *APIKeyLoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.APIKey, validation.Required, customValidation.NotBlank),
	)
}

// ValidateTokenRequest contains the session token to validate.
type ValidateTokenRequest struct {
	SessionToken string `json:"session_token"`
}

// Validate checks if the validate-token request is valid.
func (r *ValidateTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SessionToken, validation.Required, customValidation.NotBlank),
	)
}
