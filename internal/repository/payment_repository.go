package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/pkg/database"
)

const paymentColumns = `id, user_id, amount, currency, payment_type, provider, provider_payment_id, status, metadata, created_at, updated_at`

type paymentRepository struct {
	db *database.Postgres
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *database.Postgres) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create stores a payment initiated with the provider
func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (user_id, amount, currency, payment_type, provider, provider_payment_id, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`

	metadata, err := json.Marshal(payment.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode payment metadata: %w", err)
	}
	if payment.Metadata == nil {
		metadata = []byte("{}")
	}

	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}
	payment.UpdatedAt = payment.CreatedAt

	err = conn(ctx, r.db).QueryRowContext(ctx, query,
		payment.UserID,
		payment.Amount,
		payment.Currency,
		payment.PaymentType,
		payment.Provider,
		payment.ProviderPaymentID,
		string(payment.Status),
		metadata,
		payment.CreatedAt,
	).Scan(&payment.ID)
	if err != nil {
		if _, ok := constraintViolated(err); ok {
			return fmt.Errorf("payment %s: %w", payment.ProviderPaymentID, ErrDuplicatePayment)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByProviderPaymentID retrieves a payment by the provider-assigned id
func (r *paymentRepository) GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_payment_id = $1`
	return r.get(ctx, query, providerPaymentID)
}

// LockByProviderPaymentID retrieves a payment with FOR UPDATE so concurrent
// webhook deliveries for the same payment are serialized
func (r *paymentRepository) LockByProviderPaymentID(ctx context.Context, providerPaymentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_payment_id = $1 FOR UPDATE`
	return r.get(ctx, query, providerPaymentID)
}

// UpdateStatus sets the payment status
func (r *paymentRepository) UpdateStatus(ctx context.Context, paymentID int64, status domain.PaymentStatus) error {
	query := `UPDATE payments SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, string(status), time.Now(), paymentID)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	return expectOneRow(result, fmt.Sprintf("payment with id %d", paymentID))
}

func (r *paymentRepository) get(ctx context.Context, query, providerPaymentID string) (*domain.Payment, error) {
	payment := &domain.Payment{}
	var (
		status   string
		metadata []byte
	)

	err := conn(ctx, r.db).QueryRowContext(ctx, query, providerPaymentID).Scan(
		&payment.ID,
		&payment.UserID,
		&payment.Amount,
		&payment.Currency,
		&payment.PaymentType,
		&payment.Provider,
		&payment.ProviderPaymentID,
		&status,
		&metadata,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment %s not found: %w", providerPaymentID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	payment.Status = domain.PaymentStatus(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &payment.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode payment metadata: %w", err)
		}
	}

	return payment, nil
}
