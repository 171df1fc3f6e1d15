package domain

import (
	"time"

	"github.com/google/uuid"
)

// PurposeAdminPromotion is the canonical public-key purpose: the key under
// which recovery shares are encrypted when promoting a user to admin custody.
// Purposes are open strings; this is merely the conventional one.
const PurposeAdminPromotion = "admin-promotion"

// PublicKey is a user's registered public key for one purpose within a tenant.
// Unique per (user, purpose, tenant). The key is stored as supplied (base64);
// no structural validation beyond encoding is performed.
type PublicKey struct {
	ID        uuid.UUID
	UserID    string
	TenantID  string
	Purpose   string
	PublicKey string
	CreatedAt time.Time
	UpdatedAt time.Time
}
