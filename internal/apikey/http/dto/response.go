package dto

import (
	"time"

	"github.com/allisson/authkeyd/internal/apikey/domain"
)

// APIKeyResponse is the metadata view of a key. The raw secret never appears
// here (invariant 5); IssueAPIKeyResponse discloses it exactly once.
type APIKeyResponse struct {
	ID         string   `json:"id"`
	UserID     string   `json:"user_id"`
	TenantID   string   `json:"tenant_id"`
	Name       string   `json:"name"`
	Scopes     []string `json:"scopes"`
	CreatedAt  string   `json:"created_at"`
	ExpiresAt  string   `json:"expires_at,omitempty"`
	Revoked    bool     `json:"revoked"`
	LastUsedAt string   `json:"last_used_at,omitempty"`
}

// NewAPIKeyResponse maps a domain key to its metadata wire shape.
func NewAPIKeyResponse(k *domain.APIKey) APIKeyResponse {
	out := APIKeyResponse{
		ID:        k.ID.String(),
		UserID:    k.UserID,
		TenantID:  k.TenantID,
		Name:      k.Name,
		Scopes:    k.Scopes,
		CreatedAt: k.CreatedAt.Format(time.RFC3339),
		Revoked:   k.Revoked,
	}
	if k.ExpiresAt != nil {
		out.ExpiresAt = k.ExpiresAt.Format(time.RFC3339)
	}
	if k.LastUsedAt != nil {
		out.LastUsedAt = k.LastUsedAt.Format(time.RFC3339)
	}
	return out
}

// IssueAPIKeyResponse is returned by key creation only: the single disclosure
// of the raw key.
type IssueAPIKeyResponse struct {
	APIKey   string         `json:"api_key"`
	Metadata APIKeyResponse `json:"metadata"`
}

// ChallengeResponse carries a fresh challenge nonce and its lifetime in seconds.
type ChallengeResponse struct {
	Challenge string `json:"challenge"`
	ExpiresIn int    `json:"expires_in"`
}

// PrincipalResponse reports a successful verification.
type PrincipalResponse struct {
	Valid    bool     `json:"valid"`
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id"`
	Scopes   []string `json:"scopes"`
}
