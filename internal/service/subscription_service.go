package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/internal/dto"
	"github.com/visitka/visitka-backend/internal/repository"
	"github.com/visitka/visitka-backend/pkg/observability"
	"go.uber.org/zap"
)

const (
	webhookIgnoredMessage   = "Event ignored"
	webhookProcessedMessage = "Payment updated successfully"
)

type subscriptionService struct {
	repos   *repository.Repositories
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewSubscriptionService creates a new subscription activator
func NewSubscriptionService(repos *repository.Repositories, metrics *observability.Metrics, logger *zap.Logger) SubscriptionService {
	return &subscriptionService{
		repos:   repos,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// HandleWebhook applies a provider notification. A subscription is created only
// when the payment moves from pending to succeeded, so replays are no-ops.
func (s *subscriptionService) HandleWebhook(ctx context.Context, event *dto.WebhookEvent) (*dto.SuccessResponse, error) {
	if event.Event != domain.EventPaymentSucceeded {
		s.metrics.RecordWebhook(ctx, "ignored")
		s.logger.Debug("ignoring webhook event", zap.String("event", event.Event))
		return &dto.SuccessResponse{Message: webhookIgnoredMessage}, nil
	}

	paymentID := strings.TrimSpace(event.Object.ID)
	if paymentID == "" {
		s.metrics.RecordWebhook(ctx, "invalid")
		return nil, ValidationError("Missing payment ID")
	}

	status := domain.PaymentStatus(event.Object.Status)
	if status == "" {
		status = domain.PaymentSucceeded
	}
	if !status.Valid() {
		s.metrics.RecordWebhook(ctx, "invalid")
		return nil, ValidationError("Unknown payment status")
	}

	outcome := "status_updated"
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		payment, err := s.repos.Payment.LockByProviderPaymentID(ctx, paymentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NotFoundError("Payment not found")
			}
			return fmt.Errorf("failed to load payment: %w", err)
		}

		previous := payment.Status
		if previous == status {
			outcome = "duplicate"
			s.logger.Info("webhook replay ignored",
				zap.String("payment_id", paymentID),
				zap.String("status", string(status)),
			)
			return nil
		}

		if !previous.CanTransitionTo(status) {
			outcome = "rejected_transition"
			s.logger.Warn("ignoring backward payment status change",
				zap.String("payment_id", paymentID),
				zap.String("from", string(previous)),
				zap.String("to", string(status)),
			)
			return nil
		}

		// The status write must succeed before any subscription is created
		if err := s.repos.Payment.UpdateStatus(ctx, payment.ID, status); err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}
		payment.Status = status

		if status != domain.PaymentSucceeded {
			return nil
		}

		activated, err := s.activate(ctx, payment, event.Object.Metadata)
		if err != nil {
			return err
		}
		if activated {
			outcome = "activated"
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordWebhook(ctx, "error")
		return nil, err
	}

	s.metrics.RecordWebhook(ctx, outcome)
	return &dto.SuccessResponse{Message: webhookProcessedMessage}, nil
}

// activate creates the subscription paid for by payment. Linkage comes from the
// event metadata, falling back to the metadata stored when the payment was created.
func (s *subscriptionService) activate(ctx context.Context, payment *domain.Payment, metadata map[string]any) (bool, error) {
	userID, okUser := lookupID(metadata, payment.Metadata, "user_id")
	planID, okPlan := lookupID(metadata, payment.Metadata, "subscription_id", "plan_id")
	if !okUser || !okPlan {
		s.logger.Warn("succeeded payment carries no subscription linkage",
			zap.String("payment_id", payment.ProviderPaymentID),
		)
		return false, nil
	}

	// The payment owner is authoritative
	if userID != payment.UserID {
		s.logger.Warn("webhook user does not own payment",
			zap.String("payment_id", payment.ProviderPaymentID),
			zap.Int64("metadata_user_id", userID),
			zap.Int64("owner_id", payment.UserID),
		)
		return false, nil
	}

	plan, err := s.repos.Plan.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, NotFoundError("Subscription plan not found")
		}
		return false, fmt.Errorf("failed to load plan: %w", err)
	}

	existing, err := s.repos.Subscription.CountByPayment(ctx, payment.ID)
	if err != nil {
		return false, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	if existing > 0 {
		return false, nil
	}

	now := s.now()
	paymentRowID := payment.ID
	sub := &domain.UserSubscription{
		UserID:    userID,
		PlanID:    plan.ID,
		PaymentID: &paymentRowID,
		Status:    domain.SubscriptionActive,
		StartsAt:  now,
		ExpiresAt: plan.ExpiresAt(now),
	}
	if err := s.repos.Subscription.Create(ctx, sub); err != nil {
		return false, fmt.Errorf("failed to create subscription: %w", err)
	}

	s.logger.Info("subscription activated",
		zap.Int64("user_id", userID),
		zap.Int64("plan_id", plan.ID),
		zap.String("payment_id", payment.ProviderPaymentID),
	)
	return true, nil
}

// lookupID reads the first of keys present in primary, then in fallback
func lookupID(primary map[string]any, fallback map[string]string, keys ...string) (int64, bool) {
	for _, key := range keys {
		if v, ok := primary[key]; ok {
			if id, ok := toID(v); ok {
				return id, true
			}
		}
	}
	for _, key := range keys {
		if v, ok := fallback[key]; ok {
			if id, ok := toID(v); ok {
				return id, true
			}
		}
	}
	return 0, false
}

func toID(v any) (int64, bool) {
	var (
		id  int64
		err error
	)
	switch t := v.(type) {
	case float64:
		if t != float64(int64(t)) {
			return 0, false
		}
		id = int64(t)
	case int:
		id = int64(t)
	case int64:
		id = t
	case json.Number:
		id, err = t.Int64()
	case string:
		id, err = strconv.ParseInt(strings.TrimSpace(t), 10, 64)
	default:
		return 0, false
	}
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
