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

type subscriptionRepository struct {
	db *database.Postgres
}

// NewSubscriptionRepository creates a new user subscription repository
func NewSubscriptionRepository(db *database.Postgres) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Create grants a subscription. At most one subscription may reference a payment.
func (r *subscriptionRepository) Create(ctx context.Context, subscription *domain.UserSubscription) error {
	query := `
		INSERT INTO user_subscriptions (user_id, plan_id, payment_id, status, starts_at, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	if subscription.CreatedAt.IsZero() {
		subscription.CreatedAt = time.Now()
	}

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		subscription.UserID,
		subscription.PlanID,
		subscription.PaymentID,
		subscription.Status,
		subscription.StartsAt,
		subscription.ExpiresAt,
		subscription.CreatedAt,
	).Scan(&subscription.ID)
	if err != nil {
		if _, ok := constraintViolated(err); ok {
			return fmt.Errorf("failed to create subscription: %w", ErrDuplicateSubscription)
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// GetActiveByUser returns the most recently started active subscription
func (r *subscriptionRepository) GetActiveByUser(ctx context.Context, userID int64, now time.Time) (*domain.UserSubscription, error) {
	query := `
		SELECT id, user_id, plan_id, payment_id, status, starts_at, expires_at, created_at
		FROM user_subscriptions
		WHERE user_id = $1 AND status = $2 AND (expires_at IS NULL OR expires_at > $3)
		ORDER BY starts_at DESC, id DESC
		LIMIT 1
	`

	subscription := &domain.UserSubscription{}
	var (
		paymentID sql.NullInt64
		expiresAt sql.NullTime
	)

	err := conn(ctx, r.db).QueryRowContext(ctx, query, userID, domain.SubscriptionActive, now).Scan(
		&subscription.ID,
		&subscription.UserID,
		&subscription.PlanID,
		&paymentID,
		&subscription.Status,
		&subscription.StartsAt,
		&expiresAt,
		&subscription.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active subscription for user %d not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}

	if paymentID.Valid {
		subscription.PaymentID = &paymentID.Int64
	}
	if expiresAt.Valid {
		subscription.ExpiresAt = &expiresAt.Time
	}

	return subscription, nil
}

// CountByPayment returns how many subscriptions reference paymentID
func (r *subscriptionRepository) CountByPayment(ctx context.Context, paymentID int64) (int, error) {
	query := `SELECT COUNT(*) FROM user_subscriptions WHERE payment_id = $1`

	var count int
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, paymentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	return count, nil
}
