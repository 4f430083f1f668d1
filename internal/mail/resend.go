package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"
	"go.uber.org/zap"
)

// ResendMailer delivers mail through the Resend HTTP API
type ResendMailer struct {
	client *resend.Client
	from   string
	logger *zap.Logger
}

// NewResendMailer creates a new Resend mailer
func NewResendMailer(apiKey, from string, logger *zap.Logger) *ResendMailer {
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   from,
		logger: logger,
	}
}

// Configured reports whether a sender address is set
func (m *ResendMailer) Configured() bool {
	return m.from != ""
}

// Send delivers msg; ctx bounds the API call
func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	if !m.Configured() {
		return ErrNotConfigured
	}

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email via resend: %w", err)
	}

	m.logger.Debug("email sent via resend", zap.String("id", sent.Id))
	return nil
}
