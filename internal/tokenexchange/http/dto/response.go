package dto

// TokenResponse carries a freshly minted session or resource token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// ResourceClaimsResponse is the result of verifying a resource token.
type ResourceClaimsResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Resource string `json:"resource"`
}
