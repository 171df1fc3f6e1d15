package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKekVersionStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from KekVersionStatus
		to   KekVersionStatus
		want bool
	}{
		{"active to decrypt-only", KekVersionActive, KekVersionDecryptOnly, true},
		{"active to deprecated", KekVersionActive, KekVersionDeprecated, true},
		{"decrypt-only to deprecated", KekVersionDecryptOnly, KekVersionDeprecated, true},
		{"decrypt-only to active", KekVersionDecryptOnly, KekVersionActive, false},
		{"deprecated to active", KekVersionDeprecated, KekVersionActive, false},
		{"deprecated to decrypt-only", KekVersionDeprecated, KekVersionDecryptOnly, false},
		{"active to active", KekVersionActive, KekVersionActive, false},
		{"deprecated to deprecated", KekVersionDeprecated, KekVersionDeprecated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestKekVersionStatusValid(t *testing.T) {
	assert.True(t, KekVersionActive.Valid())
	assert.True(t, KekVersionDecryptOnly.Valid())
	assert.True(t, KekVersionDeprecated.Valid())
	assert.False(t, KekVersionStatus("retired").Valid())
	assert.False(t, KekVersionStatus("").Valid())
}
