package domain

import "time"

// PaymentStatus is the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentCanceled  PaymentStatus = "canceled"
	PaymentFailed    PaymentStatus = "failed"
)

// EventPaymentSucceeded is the only provider event that drives activation
const EventPaymentSucceeded = "payment.succeeded"

// Valid reports whether s is a known status
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentSucceeded, PaymentCanceled, PaymentFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentSucceeded || s == PaymentCanceled || s == PaymentFailed
}

// CanTransitionTo reports whether moving from s to next is a forward step.
// Only pending payments may change state.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return s == PaymentPending && next.Valid() && next != PaymentPending
}

// Payment is a provider payment initiated by a user
type Payment struct {
	ID                int64             `json:"id" db:"id"`
	UserID            int64             `json:"user_id" db:"user_id"`
	Amount            string            `json:"amount" db:"amount"`
	Currency          string            `json:"currency" db:"currency"`
	PaymentType       string            `json:"payment_type" db:"payment_type"`
	Provider          string            `json:"provider" db:"provider"`
	ProviderPaymentID string            `json:"provider_payment_id" db:"provider_payment_id"`
	Status            PaymentStatus     `json:"status" db:"status"`
	Metadata          map[string]string `json:"metadata" db:"metadata"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}
