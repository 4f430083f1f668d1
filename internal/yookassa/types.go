package yookassa

import (
	"fmt"
	"time"
)

// Amount is a monetary value, for example {"value": "299.00", "currency": "RUB"}
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Confirmation describes how the payer confirms the payment
type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

const ConfirmationRedirect = "redirect"

// CreatePaymentRequest is the body of POST /payments
type CreatePaymentRequest struct {
	Amount       Amount            `json:"amount"`
	Capture      bool              `json:"capture"`
	Confirmation Confirmation      `json:"confirmation"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Payment is the provider's view of a payment
type Payment struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Paid         bool              `json:"paid"`
	Amount       Amount            `json:"amount"`
	Confirmation *Confirmation     `json:"confirmation,omitempty"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ConfirmationURL returns the redirect URL for the payer, if any
func (p *Payment) ConfirmationURL() string {
	if p.Confirmation == nil {
		return ""
	}
	return p.Confirmation.ConfirmationURL
}

// APIError is an error body returned by the provider
type APIError struct {
	StatusCode  int    `json:"-"`
	Type        string `json:"type"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("yookassa: %d %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("yookassa: unexpected status %d", e.StatusCode)
}
