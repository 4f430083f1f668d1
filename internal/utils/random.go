package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	ReferralCodeLength   = 8
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	resetTokenBytes      = 32
)

// GenerateReferralCode returns a random code of uppercase letters and digits
func GenerateReferralCode() (string, error) {
	code := make([]byte, ReferralCodeLength)
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		code[i] = referralCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// IsReferralCode reports whether s has the shape of a referral code
func IsReferralCode(s string) bool {
	if len(s) != ReferralCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// GenerateResetToken returns a URL-safe token with 256 bits of entropy
func GenerateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
