package utils

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReferralCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := GenerateReferralCode()
		require.NoError(t, err)
		require.True(t, IsReferralCode(code), code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 190)
}

func TestIsReferralCode(t *testing.T) {
	assert.True(t, IsReferralCode("AB12CD34"))
	assert.False(t, IsReferralCode("ab12cd34"))
	assert.False(t, IsReferralCode("AB12CD3"))
	assert.False(t, IsReferralCode("AB12CD345"))
	assert.False(t, IsReferralCode("AB12-D34"))
}

func TestGenerateResetToken(t *testing.T) {
	a, err := GenerateResetToken()
	require.NoError(t, err)
	b, err := GenerateResetToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}
