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

// oauthProviderRepository stores links between accounts and external identities
type oauthProviderRepository struct {
	db *database.Postgres
}

// NewOAuthProviderRepository creates a new identity link repository
func NewOAuthProviderRepository(db *database.Postgres) OAuthProviderRepository {
	return &oauthProviderRepository{db: db}
}

// Create links a user to an external identity
func (r *oauthProviderRepository) Create(ctx context.Context, link *domain.OAuthProvider) error {
	query := `
		INSERT INTO oauth_providers (user_id, provider, provider_user_id, username, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $5)
		RETURNING id
	`

	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	link.UpdatedAt = link.CreatedAt

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		link.UserID,
		link.Provider,
		link.ProviderUserID,
		link.Username,
		link.CreatedAt,
	).Scan(&link.ID)
	if err != nil {
		if _, ok := constraintViolated(err); ok {
			return fmt.Errorf("%s account %s: %w", link.Provider, link.ProviderUserID, ErrDuplicateOAuthProvider)
		}
		return fmt.Errorf("failed to link %s account: %w", link.Provider, err)
	}

	return nil
}

// GetByProvider finds the link for an external account
func (r *oauthProviderRepository) GetByProvider(ctx context.Context, provider, providerUserID string) (*domain.OAuthProvider, error) {
	query := `
		SELECT id, user_id, provider, provider_user_id, COALESCE(username, ''), created_at, updated_at
		FROM oauth_providers
		WHERE provider = $1 AND provider_user_id = $2
	`

	link := &domain.OAuthProvider{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, provider, providerUserID).Scan(
		&link.ID,
		&link.UserID,
		&link.Provider,
		&link.ProviderUserID,
		&link.Username,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s account %s not linked: %w", provider, providerUserID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s link: %w", provider, err)
	}

	return link, nil
}

// UpdateUsername records the handle reported on the latest login
func (r *oauthProviderRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	query := `UPDATE oauth_providers SET username = NULLIF($2, ''), updated_at = NOW() WHERE id = $1`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, username)
	if err != nil {
		return fmt.Errorf("failed to update linked username: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("identity link %d: %w", id, ErrNotFound)
	}

	return nil
}
