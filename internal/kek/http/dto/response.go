package dto

import (
	"time"

	"github.com/allisson/authkeyd/internal/kek/domain"
)

// VersionResponse is the wire representation of a KEK version.
type VersionResponse struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	CreatedBy string `json:"created_by"`
	Reason    string `json:"reason"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// NewVersionResponse maps a domain KEK version to its wire shape.
func NewVersionResponse(v *domain.KekVersion) VersionResponse {
	return VersionResponse{
		ID:        v.ID,
		TenantID:  v.TenantID,
		CreatedBy: v.CreatedBy,
		Reason:    v.Reason,
		Status:    string(v.Status),
		CreatedAt: v.CreatedAt.Format(time.RFC3339),
	}
}

// VersionListResponse wraps a list of KEK versions.
type VersionListResponse struct {
	Versions []VersionResponse `json:"versions"`
}

// NewVersionListResponse maps a list of domain KEK versions to the wire shape.
func NewVersionListResponse(versions []*domain.KekVersion) VersionListResponse {
	out := VersionListResponse{Versions: make([]VersionResponse, 0, len(versions))}
	for _, v := range versions {
		out.Versions = append(out.Versions, NewVersionResponse(v))
	}
	return out
}

// BlobResponse is the wire representation of a KEK blob.
type BlobResponse struct {
	TenantID      string `json:"tenant_id"`
	UserID        string `json:"user_id"`
	KekVersionID  string `json:"kek_version_id"`
	EncryptedBlob string `json:"encrypted_blob"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// NewBlobResponse maps a domain KEK blob to its wire shape.
func NewBlobResponse(b *domain.KekBlob) BlobResponse {
	return BlobResponse{
		TenantID:      b.TenantID,
		UserID:        b.UserID,
		KekVersionID:  b.KekVersionID,
		EncryptedBlob: b.EncryptedBlob,
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     b.UpdatedAt.Format(time.RFC3339),
	}
}

// BlobListResponse wraps a list of KEK blobs.
type BlobListResponse struct {
	Blobs []BlobResponse `json:"blobs"`
}

// NewBlobListResponse maps a list of domain KEK blobs to the wire shape.
func NewBlobListResponse(blobs []*domain.KekBlob) BlobListResponse {
	out := BlobListResponse{Blobs: make([]BlobResponse, 0, len(blobs))}
	for _, b := range blobs {
		out.Blobs = append(out.Blobs, NewBlobResponse(b))
	}
	return out
}
