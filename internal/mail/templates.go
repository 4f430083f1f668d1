package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

const resetSubject = "Password reset"

var resetText = texttemplate.Must(texttemplate.New("reset_text").Parse(
	`Hello{{if .Name}}, {{.Name}}{{end}}!

We received a request to reset the password for your account.
Open the link below to choose a new password:

{{.Link}}

The link is valid for {{.ValidFor}}. If you did not request a reset, ignore this email.
`))

var resetHTML = htmltemplate.Must(htmltemplate.New("reset_html").Parse(
	`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <p>Hello{{if .Name}}, {{.Name}}{{end}}!</p>
  <p>We received a request to reset the password for your account.</p>
  <p><a href="{{.Link}}" style="display:inline-block;padding:10px 20px;background:#4f46e5;color:#fff;text-decoration:none;border-radius:6px;">Reset password</a></p>
  <p>The link is valid for {{.ValidFor}}. If you did not request a reset, ignore this email.</p>
</body>
</html>
`))

type resetData struct {
	Name     string
	Link     string
	ValidFor string
}

// PasswordResetMessage renders the reset email for a recipient
func PasswordResetMessage(to, name, link string, validFor time.Duration) (Message, error) {
	data := resetData{Name: name, Link: link, ValidFor: humanizeDuration(validFor)}

	var text, html bytes.Buffer
	if err := resetText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("failed to render reset email text: %w", err)
	}
	if err := resetHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("failed to render reset email html: %w", err)
	}

	return Message{
		To:      to,
		Subject: resetSubject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return strings.TrimSuffix(d.String(), "0s")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
