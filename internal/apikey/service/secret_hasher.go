package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/authkeyd/internal/errors"
)

// SecretHasher generates and verifies the secret half of a raw API key using
// Argon2id, the same KDF the client-secret flow uses (§4.4: "a per-key salt
// or password-hashing KDF").
type SecretHasher struct {
	hasher *pwdhash.PasswordHasher
}

// NewSecretHasher creates a hasher using the moderate Argon2id policy.
func NewSecretHasher() *SecretHasher {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyModerate))
	if err != nil {
		panic(err)
	}
	return &SecretHasher{hasher: hasher}
}

// GenerateSecret returns a fresh cryptographically random secret, base64-encoded.
func (h *SecretHasher) GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", apperrors.Wrap(err, "failed to generate api key secret")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash produces the verification digest stored alongside the key.
func (h *SecretHasher) Hash(secret string) (string, error) {
	digest, err := h.hasher.Hash([]byte(secret))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash api key secret")
	}
	return digest, nil
}

// Compare performs a constant-time comparison between a candidate secret and
// its stored digest.
func (h *SecretHasher) Compare(secret, digest string) bool {
	ok, err := h.hasher.Verify([]byte(secret), digest)
	if err != nil {
		return false
	}
	return ok
}

// DeriveMACKey computes the deterministic symmetric key used for
// challenge/response MACs (sha256 of the raw secret).
func DeriveMACKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
