package domain

import "time"

// Referral records that ReferredID signed up with ReferrerID's code
type Referral struct {
	ID            int64     `json:"id" db:"id"`
	ReferrerID    int64     `json:"referrer_id" db:"referrer_id"`
	ReferredID    int64     `json:"referred_id" db:"referred_id"`
	ReferralCode  string    `json:"referral_code" db:"referral_code"`
	RewardGranted bool      `json:"reward_granted" db:"reward_granted"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// ReferredUser is a read model for referral statistics
type ReferredUser struct {
	UserID        int64     `json:"user_id"`
	Name          string    `json:"name"`
	RewardGranted bool      `json:"reward_granted"`
	JoinedAt      time.Time `json:"joined_at"`
}
