package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShareCiphertext(t *testing.T) {
	idx, err := ParseShareCiphertext("3:c2hhcmU=")
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	_, err = ParseShareCiphertext("c2hhcmU=")
	assert.Error(t, err)

	_, err = ParseShareCiphertext("0:c2hhcmU=")
	assert.Error(t, err)

	_, err = ParseShareCiphertext("x:c2hhcmU=")
	assert.Error(t, err)

	_, err = ParseShareCiphertext("1:!!!")
	assert.Error(t, err)
}

func TestShareCommitmentIsDeterministic(t *testing.T) {
	a := ShareCommitment("1:c2hhcmU=")
	b := ShareCommitment("1:c2hhcmU=")
	c := ShareCommitment("2:c2hhcmU=")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestRecoverySessionHelpers(t *testing.T) {
	s := &RecoverySession{
		Status:    RecoverySessionPending,
		Threshold: 2,
		Shares: []RecoveryShare{
			{SubmitterUserID: "alice"},
		},
	}
	assert.True(t, s.HasSubmitter("alice"))
	assert.False(t, s.HasSubmitter("bob"))
	assert.False(t, s.ThresholdMet())

	s.Shares = append(s.Shares, RecoveryShare{SubmitterUserID: "bob"})
	assert.True(t, s.ThresholdMet())
}
