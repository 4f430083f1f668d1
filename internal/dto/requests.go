package dto

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TelegramLoginRequest is the payload produced by the Telegram Login Widget
type TelegramLoginRequest struct {
	ID           int64  `json:"id" binding:"required"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	PhotoURL     string `json:"photo_url"`
	AuthDate     int64  `json:"auth_date" binding:"required"`
	Hash         string `json:"hash" binding:"required"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest redeems a reset token
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// AuthActionRequest is the body of the combined auth endpoint, dispatched on Action
type AuthActionRequest struct {
	Action       string `json:"action"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// ResetActionRequest is the body of the combined password reset endpoint
type ResetActionRequest struct {
	Action      string `json:"action"`
	Email       string `json:"email"`
	Token       string `json:"token"`
	Password    string `json:"password"`
	NewPassword string `json:"new_password"`
}

// NewPasswordValue accepts both field names used by clients
func (r *ResetActionRequest) NewPasswordValue() string {
	if r.NewPassword != "" {
		return r.NewPassword
	}
	return r.Password
}

// CreatePaymentRequest starts a subscription purchase
type CreatePaymentRequest struct {
	PlanID    int64  `json:"subscription_id" binding:"required"`
	ReturnURL string `json:"return_url"`
}

// WebhookEvent is the payment provider notification envelope
type WebhookEvent struct {
	Type   string        `json:"type"`
	Event  string        `json:"event"`
	Object WebhookObject `json:"object"`
}

// WebhookObject is the payment carried by a webhook event
type WebhookObject struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Paid     bool           `json:"paid"`
	Amount   *Amount        `json:"amount,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

// Amount is a monetary value as sent by the provider
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}
