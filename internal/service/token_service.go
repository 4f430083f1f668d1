package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/internal/repository"
	"github.com/visitka/visitka-backend/internal/utils"
)

// TokenService issues session tokens and checks them against the registry.
// Deleting a registry row revokes the token.
type TokenService struct {
	issuer *utils.TokenIssuer
	tokens repository.TokenRepository
	now    func() time.Time
}

// NewTokenService creates a new token service
func NewTokenService(issuer *utils.TokenIssuer, tokens repository.TokenRepository) *TokenService {
	return &TokenService{
		issuer: issuer,
		tokens: tokens,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for registry expiry checks
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Configured reports whether a signing secret is available
func (s *TokenService) Configured() bool {
	return s.issuer.Configured()
}

// Issue signs a token for user and records it in the registry
func (s *TokenService) Issue(ctx context.Context, user *domain.User) (string, error) {
	token, expiresAt, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		if errors.Is(err, utils.ErrSigningSecretMissing) {
			return "", ConfigurationError(err)
		}
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	if err := s.tokens.Create(ctx, &domain.IssuedToken{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}); err != nil {
		return "", fmt.Errorf("failed to register token: %w", err)
	}

	return token, nil
}

// Validate accepts a token only if it is signed, unexpired and still registered.
// Every rejection is ErrInvalidToken.
func (s *TokenService) Validate(ctx context.Context, token string) (*domain.TokenClaims, error) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	issued, err := s.tokens.GetActive(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if issued.UserID != claims.UserID {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Revoke removes token from the registry. Unknown tokens are ignored.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	if err := s.tokens.Delete(ctx, token); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
