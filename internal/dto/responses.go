package dto

// AuthResponse is returned by every successful sign-in
type AuthResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// UserInfo represents user information in response
type UserInfo struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserResponse is the profile of the authenticated user
type UserResponse struct {
	ID           int64                 `json:"id"`
	Email        string                `json:"email"`
	Name         string                `json:"name"`
	ReferralCode string                `json:"referral_code"`
	CreatedAt    string                `json:"created_at"`
	LastLoginAt  *string               `json:"last_login_at"`
	Subscription *SubscriptionResponse `json:"subscription"`
}

// SubscriptionResponse describes an active subscription
type SubscriptionResponse struct {
	PlanID    int64   `json:"plan_id"`
	PlanName  string  `json:"plan_name"`
	Status    string  `json:"status"`
	StartsAt  string  `json:"starts_at"`
	ExpiresAt *string `json:"expires_at"`
}

// PlanResponse is a catalog entry
type PlanResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Price          string `json:"price"`
	Currency       string `json:"currency"`
	DurationDays   int    `json:"duration_days"`
	MaxCards       int    `json:"max_cards"`
	RemoveBranding bool   `json:"remove_branding"`
}

// PaymentResponse describes a payment initiated by the user
type PaymentResponse struct {
	PaymentID       string `json:"payment_id"`
	Status          string `json:"status"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

// ReferralStatsResponse lists the users who signed up with the caller's code
type ReferralStatsResponse struct {
	ReferralCode  string                 `json:"referral_code"`
	ReferredCount int                    `json:"referred_count"`
	Referred      []ReferredUserResponse `json:"referred"`
}

// ReferredUserResponse is one referred account
type ReferredUserResponse struct {
	UserID        int64  `json:"user_id"`
	Name          string `json:"name"`
	RewardGranted bool   `json:"reward_granted"`
	JoinedAt      string `json:"joined_at"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
}
