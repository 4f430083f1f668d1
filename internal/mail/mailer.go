// Package mail delivers transactional email through SMTP or Resend.
package mail

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no delivery credentials are set
var ErrNotConfigured = errors.New("mail delivery is not configured")

// Message is a single outgoing email
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends email
type Mailer interface {
	Configured() bool
	Send(ctx context.Context, msg Message) error
}
