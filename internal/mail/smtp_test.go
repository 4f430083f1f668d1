package mail

import (
	"context"
	"mime"
	"mime/multipart"
	netmail "net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSMTPMailer_Configured(t *testing.T) {
	full := SMTPConfig{Host: "smtp.x.io", Port: 465, User: "noreply@x.io", Password: "pw"}

	assert.True(t, NewSMTPMailer(full, zap.NewNop()).Configured())

	missingPassword := full
	missingPassword.Password = ""
	assert.False(t, NewSMTPMailer(missingPassword, zap.NewNop()).Configured())

	missingHost := full
	missingHost.Host = ""
	assert.False(t, NewSMTPMailer(missingHost, zap.NewNop()).Configured())
}

func TestSMTPMailer_FromFallsBackToUser(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{User: "noreply@x.io"}, zap.NewNop())
	assert.Equal(t, "noreply@x.io", m.from())

	m = NewSMTPMailer(SMTPConfig{User: "noreply@x.io", From: "Visitka <hello@x.io>"}, zap.NewNop())
	assert.Equal(t, "Visitka <hello@x.io>", m.from())
}

func TestSMTPMailer_SendNotConfigured(t *testing.T) {
	err := NewSMTPMailer(SMTPConfig{}, zap.NewNop()).Send(context.Background(), Message{To: "a@x.io"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBuildMIME(t *testing.T) {
	raw, err := buildMIME("noreply@x.io", Message{
		To:      "alice@x.io",
		Subject: "Сброс пароля",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	})
	require.NoError(t, err)

	parsed, err := netmail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)

	assert.Equal(t, "noreply@x.io", parsed.Header.Get("From"))
	assert.Equal(t, "alice@x.io", parsed.Header.Get("To"))

	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Сброс пароля", subject)

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	reader := multipart.NewReader(parsed.Body, params["boundary"])

	var types []string
	for {
		part, err := reader.NextPart()
		if err != nil {
			break
		}
		types = append(types, part.Header.Get("Content-Type"))
	}
	assert.Equal(t, []string{"text/plain; charset=UTF-8", "text/html; charset=UTF-8"}, types)
}
