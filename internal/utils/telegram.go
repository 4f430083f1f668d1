package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	// ErrTelegramSignature is returned when the login widget hash does not match
	ErrTelegramSignature = errors.New("telegram login signature mismatch")
	// ErrTelegramAuthExpired is returned when auth_date is too old
	ErrTelegramAuthExpired = errors.New("telegram login data is outdated")
)

// VerifyTelegramLogin checks Login Widget data. fields holds every received
// field except hash; empty values are skipped.
func VerifyTelegramLogin(botToken string, fields map[string]string, hash string, authDate, now time.Time, maxAge time.Duration) error {
	expected := TelegramLoginHash(botToken, fields)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(hash))) {
		return ErrTelegramSignature
	}

	if maxAge > 0 && now.Sub(authDate) > maxAge {
		return ErrTelegramAuthExpired
	}

	return nil
}

// TelegramLoginHash computes the hex HMAC-SHA256 of the sorted data-check string
// keyed with SHA256(bot token)
func TelegramLoginHash(botToken string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + fields[k]
	}

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
