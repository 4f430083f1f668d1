package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/internal/repository/memory"
	"github.com/visitka/visitka-backend/internal/utils"
)

func TestTokenService_IssueValidateRevoke(t *testing.T) {
	repos, store := memory.NewRepositories()
	tokens := NewTokenService(utils.NewTokenIssuer(testSigningSecret, time.Hour), repos.Token)
	ctx := context.Background()

	user := &domain.User{ID: 7, Email: "alice@x.io"}
	token, err := tokens.Issue(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, store.TokenCount())

	claims, err := tokens.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "alice@x.io", claims.Email)

	require.NoError(t, tokens.Revoke(ctx, token))
	_, err = tokens.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsUnregisteredToken(t *testing.T) {
	repos, _ := memory.NewRepositories()
	issuer := utils.NewTokenIssuer(testSigningSecret, time.Hour)
	tokens := NewTokenService(issuer, repos.Token)

	// correctly signed but never recorded
	token, _, err := issuer.Issue(7, "alice@x.io")
	require.NoError(t, err)

	_, err = tokens.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	repos, _ := memory.NewRepositories()
	tokens := NewTokenService(utils.NewTokenIssuer(testSigningSecret, time.Hour), repos.Token)

	_, err := tokens.Validate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "Invalid token", svcErr.Message)
}

func TestTokenService_RegistryExpiry(t *testing.T) {
	repos, _ := memory.NewRepositories()
	now := time.Now()
	tokens := NewTokenService(utils.NewTokenIssuer(testSigningSecret, time.Hour), repos.Token).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	token, err := tokens.Issue(ctx, &domain.User{ID: 1, Email: "a@x.io"})
	require.NoError(t, err)

	// the signature is still valid but the registry row has lapsed
	now = now.Add(2 * time.Hour)
	_, err = tokens.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_NotConfigured(t *testing.T) {
	repos, store := memory.NewRepositories()
	tokens := NewTokenService(utils.NewTokenIssuer("", time.Hour), repos.Token)

	assert.False(t, tokens.Configured())

	_, err := tokens.Issue(context.Background(), &domain.User{ID: 1})
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.Zero(t, store.TokenCount())

	_, err = tokens.Validate(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
