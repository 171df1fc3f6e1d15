// Package dto provides data transfer objects for the token-exchange endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/authkeyd/internal/validation"
)

// ExchangeTokenRequest contains the identity-provider token to exchange.
type ExchangeTokenRequest struct {
	Token string `json:"token"`
}

// Validate checks if the exchange-token request is valid.
func (r *ExchangeTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Token, validation.Required, customValidation.NotBlank),
	)
}

// ExchangeForResourceRequest contains the IdP token and the single resource the
// resulting token will be bound to.
type ExchangeForResourceRequest struct {
	Token    string `json:"token"`
	Resource string `json:"resource"`
}

// Validate checks if the exchange-for-resource request is valid.
func (r *ExchangeForResourceRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Token, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Resource, validation.Required, customValidation.NotBlank),
	)
}

// VerifyResourceTokenRequest contains the resource token to verify.
type VerifyResourceTokenRequest struct {
	Token string `json:"token"`
}

// Validate checks if the verify-resource-token request is valid.
func (r *VerifyResourceTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Token, validation.Required, customValidation.NotBlank),
	)
}
