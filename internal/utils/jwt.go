package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/visitka/visitka-backend/internal/domain"
)

// ErrSigningSecretMissing is returned when no signing secret is configured
var ErrSigningSecretMissing = errors.New("token signing secret is not configured")

// TokenIssuer signs and parses HS256 session tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a new token issuer
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	t.now = now
	return t
}

// Configured reports whether tokens can be issued
func (t *TokenIssuer) Configured() bool {
	return len(t.secret) > 0
}

// TTL returns the lifetime of issued tokens
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue signs a token for the user and returns it with its expiry
func (t *TokenIssuer) Issue(userID int64, email string) (string, time.Time, error) {
	if !t.Configured() {
		return "", time.Time{}, ErrSigningSecretMissing
	}

	now := t.now()
	expiresAt := now.Add(t.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
		"jti":     uuid.NewString(),
	})

	tokenString, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, time.Unix(expiresAt.Unix(), 0), nil
}

// Parse verifies the signature and expiry of a token and returns its claims
func (t *TokenIssuer) Parse(tokenString string) (*domain.TokenClaims, error) {
	if !t.Configured() {
		return nil, ErrSigningSecretMissing
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return nil, fmt.Errorf("invalid user_id in token")
	}

	email, _ := claims["email"].(string)
	jti, _ := claims["jti"].(string)

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid exp in token")
	}

	iat, _ := claims["iat"].(float64)

	return &domain.TokenClaims{
		UserID: int64(userID),
		Email:  email,
		ID:     jti,
		Exp:    int64(exp),
		Iat:    int64(iat),
	}, nil
}
