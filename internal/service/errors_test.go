package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindValidation, KindOf(fmt.Errorf("wrapped: %w", ValidationError("bad"))))
	assert.Equal(t, KindAuth, KindOf(ErrInvalidToken))
	assert.Equal(t, KindRateLimited, KindOf(RateLimitedError(10)))
}

func TestUpstreamError(t *testing.T) {
	cause := fmt.Errorf("send: %w", context.DeadlineExceeded)

	err := UpstreamError("Failed to send", cause)
	assert.Equal(t, KindUpstreamTimeout, KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, KindUpstream, KindOf(UpstreamError("Failed to send", errors.New("refused"))))
}

func TestConfigurationError_HidesCause(t *testing.T) {
	var svcErr *Error
	assert.True(t, errors.As(ConfigurationError(errors.New("SMTP_HOST missing")), &svcErr))
	assert.Equal(t, "Server configuration error", svcErr.Message)
}

func TestRateLimitedError(t *testing.T) {
	var svcErr *Error
	assert.True(t, errors.As(RateLimitedError(42), &svcErr))
	assert.Equal(t, 42, svcErr.RetryAfter)
	assert.Equal(t, "rate_limited", svcErr.Kind.String())
}
