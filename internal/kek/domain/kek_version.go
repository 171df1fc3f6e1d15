// Package domain defines the KEK custody types: versioned Key Encryption Keys
// with a status state machine (C7) and the per-user encrypted blobs that
// distribute them (C8). The server never holds plaintext KEK material; every
// blob is opaque ciphertext wrapped for exactly one user.
package domain

import (
	"time"
)

// KekVersionStatus is the lifecycle state of a KEK version. Transitions form a
// DAG: active → decrypt-only → deprecated. A deprecated version never comes back.
type KekVersionStatus string

const (
	KekVersionActive      KekVersionStatus = "active"
	KekVersionDecryptOnly KekVersionStatus = "decrypt-only"
	KekVersionDeprecated  KekVersionStatus = "deprecated"
)

// Valid reports whether s is one of the three known statuses.
func (s KekVersionStatus) Valid() bool {
	switch s {
	case KekVersionActive, KekVersionDecryptOnly, KekVersionDeprecated:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine permits moving from s to
// next. Promotion to active is never a transition: a version is only ever
// active by being created as the new head (Create/Rotate demote the old one).
func (s KekVersionStatus) CanTransitionTo(next KekVersionStatus) bool {
	switch s {
	case KekVersionActive:
		return next == KekVersionDecryptOnly || next == KekVersionDeprecated
	case KekVersionDecryptOnly:
		return next == KekVersionDeprecated
	}
	return false
}

// KekVersion is one version of a tenant's Key Encryption Key. The key material
// itself never appears here; only per-user blobs (KekBlob) carry it, encrypted.
type KekVersion struct {
	ID        string
	TenantID  string
	CreatedBy string
	Reason    string
	Status    KekVersionStatus
	CreatedAt time.Time
}

// CreateVersionInput carries the parameters for creating (or rotating to) a new
// KEK version. ID is optional; when empty a UUIDv7 is generated. RemovedUsers
// lists users that must never be provisioned a blob for the new version.
type CreateVersionInput struct {
	TenantID     string
	InitiatorID  string
	Reason       string
	ID           string
	RemovedUsers []string
}

// KekBlob is the encrypted KEK material wrapped for a single user under a
// single version. Unique per (tenant, user, version); opaque to the server.
type KekBlob struct {
	TenantID      string
	UserID        string
	KekVersionID  string
	EncryptedBlob string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
