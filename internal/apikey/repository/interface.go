// Package repository persists API keys under a tenant-scoped namespace
// (§6: apikey:{id}, apikey:byUser:{tenant}:{user}).
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/authkeyd/internal/apikey/domain"
)

// APIKeyRepository persists and retrieves API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	Get(ctx context.Context, id uuid.UUID) (*domain.APIKey, error)
	ListByUser(ctx context.Context, tenantID, userID string) ([]*domain.APIKey, error)
	Delete(ctx context.Context, id uuid.UUID) error
	TouchLastUsed(ctx context.Context, id uuid.UUID) error
}
