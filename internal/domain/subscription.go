package domain

import "time"

// SubscriptionPlan is a catalog entry. Read-only for this service.
type SubscriptionPlan struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Price          string    `json:"price" db:"price"`
	Currency       string    `json:"currency" db:"currency"`
	DurationDays   int       `json:"duration_days" db:"duration_days"`
	MaxCards       int       `json:"max_cards" db:"max_cards"`
	RemoveBranding bool      `json:"remove_branding" db:"remove_branding"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// ExpiresAt returns the expiry of a subscription to this plan starting at start.
// Plans without a duration never expire.
func (p *SubscriptionPlan) ExpiresAt(start time.Time) *time.Time {
	if p.DurationDays <= 0 {
		return nil
	}
	expires := start.AddDate(0, 0, p.DurationDays)
	return &expires
}

const SubscriptionActive = "active"

// UserSubscription grants a plan to a user. PaymentID is nil for the default plan.
type UserSubscription struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"user_id" db:"user_id"`
	PlanID    int64      `json:"plan_id" db:"plan_id"`
	PaymentID *int64     `json:"payment_id" db:"payment_id"`
	Status    string     `json:"status" db:"status"`
	StartsAt  time.Time  `json:"starts_at" db:"starts_at"`
	ExpiresAt *time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// IsActive reports whether the subscription is active at now
func (s *UserSubscription) IsActive(now time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}
