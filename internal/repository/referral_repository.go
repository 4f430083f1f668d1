package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/pkg/database"
)

type referralRepository struct {
	db *database.Postgres
}

// NewReferralRepository creates a new referral repository
func NewReferralRepository(db *database.Postgres) ReferralRepository {
	return &referralRepository{db: db}
}

// Create stores a referral link
func (r *referralRepository) Create(ctx context.Context, referral *domain.Referral) error {
	query := `
		INSERT INTO referrals (referrer_id, referred_id, referral_code, reward_granted, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	if referral.CreatedAt.IsZero() {
		referral.CreatedAt = time.Now()
	}

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		referral.ReferrerID,
		referral.ReferredID,
		referral.ReferralCode,
		referral.RewardGranted,
		referral.CreatedAt,
	).Scan(&referral.ID)
	if err != nil {
		if _, ok := constraintViolated(err); ok {
			return fmt.Errorf("user %d: %w", referral.ReferredID, ErrDuplicateReferral)
		}
		return fmt.Errorf("failed to create referral: %w", err)
	}

	return nil
}

// ListByReferrer returns the users referred by referrerID, newest first
func (r *referralRepository) ListByReferrer(ctx context.Context, referrerID int64) ([]*domain.ReferredUser, error) {
	query := `
		SELECT u.id, u.name, rf.reward_granted, rf.created_at
		FROM referrals rf
		JOIN users u ON u.id = rf.referred_id
		WHERE rf.referrer_id = $1
		ORDER BY rf.created_at DESC
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, referrerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	defer rows.Close()

	var referred []*domain.ReferredUser
	for rows.Next() {
		item := &domain.ReferredUser{}
		if err := rows.Scan(&item.UserID, &item.Name, &item.RewardGranted, &item.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		referred = append(referred, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate referrals: %w", err)
	}

	return referred, nil
}
