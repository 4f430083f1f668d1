package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestResendMailer_RequiresSender(t *testing.T) {
	m := NewResendMailer("re_test", "", zap.NewNop())
	assert.False(t, m.Configured())
	assert.ErrorIs(t, m.Send(context.Background(), Message{To: "a@x.io"}), ErrNotConfigured)

	assert.True(t, NewResendMailer("re_test", "hello@x.io", zap.NewNop()).Configured())
}

func TestMailersImplementMailer(t *testing.T) {
	var _ Mailer = (*SMTPMailer)(nil)
	var _ Mailer = (*ResendMailer)(nil)
}
