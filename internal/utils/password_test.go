package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestNewPasswordHasher_RejectsCostOutOfRange(t *testing.T) {
	_, err := NewPasswordHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)

	_, err = NewPasswordHasher(1)
	assert.Error(t, err)
}

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("Secret123")
	require.NoError(t, err)

	assert.Equal(t, HashBcrypt, DetectHashFormat(hash))
	assert.True(t, h.Verify("Secret123", hash))
	assert.False(t, h.Verify("secret123", hash))
}

func TestPasswordHasher_LongPasswords(t *testing.T) {
	h := newTestHasher(t)

	for name, password := range map[string]string{
		"ascii 80":      strings.Repeat("a", 80),
		"multibyte 100": strings.Repeat("пароль", 16) + "abcd",
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, ValidatePassword(password))

			hash, err := h.Hash(password)
			require.NoError(t, err)
			assert.Equal(t, HashBcryptSHA256, DetectHashFormat(hash))
			assert.LessOrEqual(t, len(hash), 255)

			assert.True(t, h.Verify(password, hash))
			assert.False(t, h.Verify(password[:len(password)-1], hash))
			assert.False(t, h.NeedsUpgrade(password, hash))
		})
	}
}

func TestPasswordHasher_TruncatedBcrypt(t *testing.T) {
	h := newTestHasher(t)
	long := strings.Repeat("a", 72) + "tail"

	// as stored by implementations that silently truncate at 72 bytes
	truncated, err := bcrypt.GenerateFromPassword([]byte(long[:72]), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, h.Verify(long, string(truncated)))
	assert.True(t, h.NeedsUpgrade(long, string(truncated)))
	assert.False(t, h.NeedsUpgrade(long[:72], string(truncated)))

	upgraded, err := h.Hash(long)
	require.NoError(t, err)
	assert.True(t, h.Verify(long, upgraded))
	assert.False(t, h.Verify(long[:72], upgraded))
	assert.False(t, h.Verify(long[:72]+"other", upgraded))
}

func TestPasswordHasher_VerifyLegacy(t *testing.T) {
	h := newTestHasher(t)

	legacy := LegacyHash("Secret123")
	assert.Len(t, legacy, 64)
	assert.Equal(t, HashLegacySHA256, DetectHashFormat(legacy))

	assert.True(t, h.Verify("Secret123", legacy))
	assert.True(t, h.Verify("Secret123", upper(legacy)), "hex digests compare case-insensitively")
	assert.False(t, h.Verify("Secret124", legacy))
}

func TestPasswordHasher_VerifyUnknownFormat(t *testing.T) {
	h := newTestHasher(t)

	assert.False(t, h.Verify("Secret123", ""))
	assert.False(t, h.Verify("Secret123", "plaintext"))
	assert.Equal(t, HashUnknown, DetectHashFormat("zz"+LegacyHash("x")[2:]))
}

func TestPasswordHasher_NeedsUpgrade(t *testing.T) {
	h, err := NewPasswordHasher(bcrypt.MinCost + 1)
	require.NoError(t, err)

	weak, err := bcrypt.GenerateFromPassword([]byte("Secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	current, err := h.Hash("Secret123")
	require.NoError(t, err)

	assert.True(t, h.NeedsUpgrade("Secret123", LegacyHash("Secret123")))
	assert.True(t, h.NeedsUpgrade("Secret123", string(weak)))
	assert.False(t, h.NeedsUpgrade("Secret123", current))
	assert.False(t, h.NeedsUpgrade("Secret123", "unknown"))
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
