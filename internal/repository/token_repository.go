package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/pkg/database"
)

// tokenRepository implements TokenRepository interface
type tokenRepository struct {
	db *database.Postgres
}

// NewTokenRepository creates a new token registry repository
func NewTokenRepository(db *database.Postgres) TokenRepository {
	return &tokenRepository{db: db}
}

// Create registers an issued session token
func (r *tokenRepository) Create(ctx context.Context, token *domain.IssuedToken) error {
	query := `
		INSERT INTO auth_tokens (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		token.Token,
		token.UserID,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		if _, ok := constraintViolated(err); ok {
			return fmt.Errorf("failed to register token: %w", ErrDuplicateToken)
		}
		return fmt.Errorf("failed to create token: %w", err)
	}

	return nil
}

// GetActive returns the registry row for token if it has not expired at now
func (r *tokenRepository) GetActive(ctx context.Context, token string, now time.Time) (*domain.IssuedToken, error) {
	query := `
		SELECT token, user_id, expires_at, created_at
		FROM auth_tokens
		WHERE token = $1 AND expires_at > $2
	`

	issued := &domain.IssuedToken{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, token, now).Scan(
		&issued.Token,
		&issued.UserID,
		&issued.ExpiresAt,
		&issued.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return issued, nil
}

// Delete revokes a token by removing its registry row
func (r *tokenRepository) Delete(ctx context.Context, token string) error {
	query := `DELETE FROM auth_tokens WHERE token = $1`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	return expectOneRow(result, "token")
}
