package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInviteCodeShape(t *testing.T) {
	code, err := GenerateInviteCode()
	require.NoError(t, err)

	assert.Len(t, code, InviteCodeLength)
	for _, c := range code {
		assert.True(t, strings.ContainsRune(inviteCodeAlphabet, c), "unexpected character %q", c)
	}
}

func TestGenerateInviteCodeVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateInviteCode()
		require.NoError(t, err)
		seen[code] = true
	}
	// 100 draws from 36^6 codes colliding down to a handful would mean a
	// broken generator.
	assert.Greater(t, len(seen), 90)
}
