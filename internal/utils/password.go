package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashFormat identifies the algorithm generation of a stored password hash
type HashFormat int

const (
	HashUnknown HashFormat = iota
	// HashLegacySHA256 is an unsalted hex SHA-256 digest
	HashLegacySHA256
	// HashBcrypt is a self-describing $2a$/$2b$/$2y$ hash
	HashBcrypt
	// HashBcryptSHA256 is a bcrypt hash of the base64 SHA-256 digest of the
	// password, used for passwords longer than bcrypt accepts
	HashBcryptSHA256
)

const (
	legacyHashLength = sha256.Size * 2
	// bcryptMaxBytes is the longest input bcrypt accepts
	bcryptMaxBytes = 72
	// prehashPrefix marks HashBcryptSHA256 values
	prehashPrefix = "$bcrypt-sha256$"
)

// PasswordHasher verifies both hash generations and produces bcrypt hashes
type PasswordHasher struct {
	cost  int
	dummy []byte
}

// NewPasswordHasher creates a hasher producing bcrypt hashes of the given cost
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &PasswordHasher{cost: cost, dummy: dummy}, nil
}

// Hash hashes a password using bcrypt. Passwords over 72 bytes are
// pre-hashed with SHA-256 and stored with prehashPrefix.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if len(password) > bcryptMaxBytes {
		bytes, err := bcrypt.GenerateFromPassword(prehash(password), h.cost)
		if err != nil {
			return "", fmt.Errorf("failed to hash password: %w", err)
		}
		return prehashPrefix + string(bytes), nil
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// Verify compares a password with a stored hash of either generation
func (h *PasswordHasher) Verify(password, stored string) bool {
	switch DetectHashFormat(stored) {
	case HashBcrypt:
		// hashes written by truncating implementations cover only the first 72 bytes
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(truncate(password))) == nil
	case HashBcryptSHA256:
		return bcrypt.CompareHashAndPassword([]byte(stored[len(prehashPrefix):]), prehash(password)) == nil
	case HashLegacySHA256:
		// match the latency of a bcrypt comparison
		h.VerifyMissing(password)
		return subtle.ConstantTimeCompare([]byte(LegacyHash(password)), []byte(strings.ToLower(stored))) == 1
	default:
		h.VerifyMissing(password)
		return false
	}
}

// VerifyMissing burns the same time as a bcrypt verification. Call it when the
// account does not exist so the response time does not reveal that.
func (h *PasswordHasher) VerifyMissing(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, prehash(password))
}

// NeedsUpgrade reports whether stored, already verified against password,
// should be replaced by a fresh hash
func (h *PasswordHasher) NeedsUpgrade(password, stored string) bool {
	switch DetectHashFormat(stored) {
	case HashLegacySHA256:
		return true
	case HashBcrypt, HashBcryptSHA256:
		if len(password) > bcryptMaxBytes && !strings.HasPrefix(stored, prehashPrefix) {
			return true
		}
		cost, err := bcrypt.Cost([]byte(strings.TrimPrefix(stored, prehashPrefix)))
		if err != nil {
			return true
		}
		return cost < h.cost
	default:
		return false
	}
}

// DetectHashFormat classifies a stored hash
func DetectHashFormat(stored string) HashFormat {
	switch {
	case strings.HasPrefix(stored, prehashPrefix):
		return HashBcryptSHA256
	case strings.HasPrefix(stored, "$2a$"), strings.HasPrefix(stored, "$2b$"), strings.HasPrefix(stored, "$2y$"):
		return HashBcrypt
	case len(stored) == legacyHashLength && isHex(stored):
		return HashLegacySHA256
	default:
		return HashUnknown
	}
}

// LegacyHash returns the legacy hex SHA-256 digest of password
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func truncate(password string) string {
	if len(password) > bcryptMaxBytes {
		return password[:bcryptMaxBytes]
	}
	return password
}

func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}
