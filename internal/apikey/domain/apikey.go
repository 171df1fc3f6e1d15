// Package domain defines the API-key subsystem's (C5) types: a key discloses
// its raw secret exactly once, at creation, and is thereafter authenticated
// only against its stored verification digest.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is a persisted API key. VerificationDigest is the Argon2id hash of
// the raw secret half of "<id>.<secret>"; the raw secret is never stored.
type APIKey struct {
	ID                 uuid.UUID
	UserID             string
	TenantID           string
	Name               string
	Scopes             []string
	VerificationDigest string
	// MACKey is sha256(secret), a deterministic symmetric key both the client
	// (which holds the raw secret) and the server can derive independently,
	// used to compute and verify challenge/response MACs without ever
	// transmitting the raw secret or relying on the one-way Argon2id digest.
	MACKey     string
	CreatedAt  time.Time
	ExpiresAt  *time.Time
	Revoked    bool
	LastUsedAt *time.Time
}

// Expired reports whether the key has passed its expiry time, if any.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// Usable reports whether the key may still authenticate a request.
func (k *APIKey) Usable(now time.Time) bool {
	return !k.Revoked && !k.Expired(now)
}

// IssueInput carries the parameters for issuing a new API key.
type IssueInput struct {
	UserID   string
	TenantID string
	Name     string
	Scopes   []string
	TTL      *time.Duration
}

// IssueOutput returns the raw key exactly once.
type IssueOutput struct {
	APIKey APIKey
	RawKey string
}
