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

type resetTokenRepository struct {
	db *database.Postgres
}

// NewResetTokenRepository creates a new password reset token repository
func NewResetTokenRepository(db *database.Postgres) ResetTokenRepository {
	return &resetTokenRepository{db: db}
}

// Replace stores token as the only outstanding reset token of its user
func (r *resetTokenRepository) Replace(ctx context.Context, token *domain.ResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at
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
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	return nil
}

// Consume deletes a live token and returns it. Concurrent redemptions of the
// same token cannot both succeed because only one DELETE returns the row.
func (r *resetTokenRepository) Consume(ctx context.Context, token string, now time.Time) (*domain.ResetToken, error) {
	query := `
		DELETE FROM password_reset_tokens
		WHERE token = $1 AND expires_at > $2
		RETURNING token, user_id, expires_at, created_at
	`

	consumed := &domain.ResetToken{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, token, now).Scan(
		&consumed.Token,
		&consumed.UserID,
		&consumed.ExpiresAt,
		&consumed.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reset token not found or expired: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to consume reset token: %w", err)
	}

	return consumed, nil
}
