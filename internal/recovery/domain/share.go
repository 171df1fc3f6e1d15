package domain

import (
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	apperrors "github.com/allisson/authkeyd/internal/errors"
)

// ParseShareCiphertext validates the "index:base64" framing of a submitted
// share ciphertext and returns the share index. The payload itself stays
// opaque; only the frame is checked.
func ParseShareCiphertext(ciphertext string) (int, error) {
	idxPart, payload, found := strings.Cut(ciphertext, ":")
	if !found {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "share ciphertext must be of the form index:base64")
	}
	idx, err := strconv.Atoi(idxPart)
	if err != nil || idx < 1 {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "share index must be a positive integer")
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "share payload must be valid base64")
	}
	return idx, nil
}

// ShareCommitment computes the BLAKE2b-256 commitment of a share ciphertext.
// Stored alongside the share so the initiator can verify shares weren't
// substituted in transit or at rest.
func ShareCommitment(ciphertext string) string {
	sum := blake2b.Sum256([]byte(ciphertext))
	return hex.EncodeToString(sum[:])
}
