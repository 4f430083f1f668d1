package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/pkg/database"
)

const planColumns = `id, name, price, currency, duration_days, max_cards, remove_branding, created_at`

type planRepository struct {
	db *database.Postgres
}

// NewPlanRepository creates a new subscription plan repository
func NewPlanRepository(db *database.Postgres) PlanRepository {
	return &planRepository{db: db}
}

// GetByID retrieves a plan by ID
func (r *planRepository) GetByID(ctx context.Context, id int64) (*domain.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = $1`

	plan := &domain.SubscriptionPlan{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&plan.ID,
		&plan.Name,
		&plan.Price,
		&plan.Currency,
		&plan.DurationDays,
		&plan.MaxCards,
		&plan.RemoveBranding,
		&plan.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("plan with id %d not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return plan, nil
}

// List returns the whole catalog ordered by price
func (r *planRepository) List(ctx context.Context) ([]*domain.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans ORDER BY price, id`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*domain.SubscriptionPlan
	for rows.Next() {
		plan := &domain.SubscriptionPlan{}
		err := rows.Scan(
			&plan.ID,
			&plan.Name,
			&plan.Price,
			&plan.Currency,
			&plan.DurationDays,
			&plan.MaxCards,
			&plan.RemoveBranding,
			&plan.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}

	return plans, nil
}
