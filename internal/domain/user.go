package domain

import "time"

// User represents an account in the system
type User struct {
	ID           int64      `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	Name         string     `json:"name" db:"name"`
	PasswordHash string     `json:"-" db:"password_hash"`
	ReferralCode string     `json:"referral_code" db:"referral_code"`
	ReferredBy   *int64     `json:"referred_by" db:"referred_by"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at" db:"last_login_at"`
}

// HasPassword reports whether the account can sign in with email and password.
// Accounts created through federated login have no password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// OAuthProvider links a user to an external identity provider account.
// Username is the handle last reported by the provider and may change between logins.
type OAuthProvider struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	Provider       string    `json:"provider" db:"provider"` // telegram
	ProviderUserID string    `json:"provider_user_id" db:"provider_user_id"`
	Username       string    `json:"username" db:"username"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

const ProviderTelegram = "telegram"
