package domain

import "time"

// TokenClaims represents the claims embedded in a session token
type TokenClaims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	ID     string `json:"jti"`
	Exp    int64  `json:"exp"`
	Iat    int64  `json:"iat"`
}

// IssuedToken is the registry row kept for every session token handed out.
// A token is only accepted while its row exists and has not expired.
type IssuedToken struct {
	Token     string    `json:"-" db:"token"`
	UserID    int64     `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ResetToken is a single-use password reset token. At most one exists per user.
type ResetToken struct {
	Token     string    `json:"-" db:"token"`
	UserID    int64     `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsExpired checks if the reset token is expired at the given moment
func (t ResetToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
