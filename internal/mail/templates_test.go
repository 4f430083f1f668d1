package mail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordResetMessage(t *testing.T) {
	link := "https://visitka.site/reset-password?token=abc_DEF-123"

	msg, err := PasswordResetMessage("alice@x.io", "Alice", link, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "alice@x.io", msg.To)
	assert.Equal(t, "Password reset", msg.Subject)
	assert.Contains(t, msg.Text, "Hello, Alice!")
	assert.Contains(t, msg.Text, link)
	assert.Contains(t, msg.Text, "valid for 1 hour")
	assert.Contains(t, msg.HTML, `href="`+link+`"`)
}

func TestPasswordResetMessage_EscapesName(t *testing.T) {
	msg, err := PasswordResetMessage("a@x.io", "<script>", "https://x.io/r?token=t", time.Hour)
	require.NoError(t, err)

	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
}

func TestPasswordResetMessage_WithoutName(t *testing.T) {
	msg, err := PasswordResetMessage("a@x.io", "", "https://x.io/r?token=t", 30*time.Minute)
	require.NoError(t, err)

	assert.Contains(t, msg.Text, "Hello!")
	assert.Contains(t, msg.Text, "30 minutes")
}

func TestHumanizeDuration(t *testing.T) {
	assert.Equal(t, "1 hour", humanizeDuration(time.Hour))
	assert.Equal(t, "2 hours", humanizeDuration(2*time.Hour))
	assert.Equal(t, "1 minute", humanizeDuration(time.Minute))
	assert.Equal(t, "90 minutes", humanizeDuration(90*time.Minute))
	assert.Equal(t, "45s", humanizeDuration(45*time.Second))
}
