package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/internal/dto"
	"github.com/visitka/visitka-backend/internal/repository"
	"github.com/visitka/visitka-backend/internal/yookassa"
	"go.uber.org/zap"
)

const (
	providerYooKassa        = "yookassa"
	paymentTypeSubscription = "subscription"
)

// PaymentConfig holds payment defaults
type PaymentConfig struct {
	ReturnURL string
}

type paymentService struct {
	repos    *repository.Repositories
	provider PaymentProvider
	cfg      PaymentConfig
	logger   *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(repos *repository.Repositories, provider PaymentProvider, cfg PaymentConfig, logger *zap.Logger) PaymentService {
	return &paymentService{
		repos:    repos,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
}

// ListPlans returns the plan catalog
func (s *paymentService) ListPlans(ctx context.Context) ([]dto.PlanResponse, error) {
	plans, err := s.repos.Plan.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	out := make([]dto.PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, planResponse(p))
	}
	return out, nil
}

// CreatePayment registers a provider payment for plan. The webhook activates the
// subscription once the provider reports success.
func (s *paymentService) CreatePayment(ctx context.Context, userID int64, req *dto.CreatePaymentRequest) (*dto.PaymentResponse, error) {
	if req.PlanID <= 0 {
		return nil, ValidationError("Subscription plan is required")
	}

	plan, err := s.repos.Plan.GetByID(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundError("Subscription plan not found")
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	if price, err := strconv.ParseFloat(plan.Price, 64); err != nil || price <= 0 {
		return nil, ValidationError("This plan cannot be purchased")
	}

	returnURL, err := s.returnURL(req.ReturnURL)
	if err != nil {
		return nil, err
	}

	if !s.provider.Configured() {
		return nil, ConfigurationError(yookassa.ErrNotConfigured)
	}

	metadata := map[string]string{
		"user_id":         strconv.FormatInt(userID, 10),
		"subscription_id": strconv.FormatInt(plan.ID, 10),
	}

	created, err := s.provider.CreatePayment(ctx, uuid.NewString(), yookassa.CreatePaymentRequest{
		Amount:  yookassa.Amount{Value: plan.Price, Currency: plan.Currency},
		Capture: true,
		Confirmation: yookassa.Confirmation{
			Type:      yookassa.ConfirmationRedirect,
			ReturnURL: returnURL,
		},
		Description: "Subscription " + plan.Name,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, UpstreamError("Payment provider request failed", err)
	}

	// the webhook is the only writer of the status
	status := domain.PaymentPending
	if created.Status != string(status) {
		s.logger.Info("provider reported non-pending status at creation",
			zap.String("payment_id", created.ID),
			zap.String("status", created.Status),
		)
	}

	payment := &domain.Payment{
		UserID:            userID,
		Amount:            plan.Price,
		Currency:          plan.Currency,
		PaymentType:       paymentTypeSubscription,
		Provider:          providerYooKassa,
		ProviderPaymentID: created.ID,
		Status:            status,
		Metadata:          metadata,
	}
	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repos.Payment.Create(ctx, payment)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	s.logger.Info("payment created",
		zap.Int64("user_id", userID),
		zap.Int64("plan_id", plan.ID),
		zap.String("payment_id", created.ID),
	)

	return &dto.PaymentResponse{
		PaymentID:       created.ID,
		Status:          string(status),
		Amount:          plan.Price,
		Currency:        plan.Currency,
		ConfirmationURL: created.ConfirmationURL(),
	}, nil
}

// returnURL accepts only redirects to the origin of the configured return URL
func (s *paymentService) returnURL(requested string) (string, error) {
	if requested == "" {
		return s.cfg.ReturnURL, nil
	}

	allowed, err := url.Parse(s.cfg.ReturnURL)
	if err != nil || allowed.Host == "" {
		return "", ValidationError("Custom return URL is not allowed")
	}

	u, err := url.Parse(requested)
	if err != nil || u.Scheme != allowed.Scheme || !strings.EqualFold(u.Host, allowed.Host) || u.User != nil {
		return "", ValidationError("Invalid return URL")
	}
	return u.String(), nil
}

// GetPayment returns a payment owned by userID
func (s *paymentService) GetPayment(ctx context.Context, userID int64, providerPaymentID string) (*dto.PaymentResponse, error) {
	payment, err := s.repos.Payment.GetByProviderPaymentID(ctx, providerPaymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundError("Payment not found")
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	if payment.UserID != userID {
		return nil, AuthorizationError("Access denied")
	}

	return &dto.PaymentResponse{
		PaymentID: payment.ProviderPaymentID,
		Status:    string(payment.Status),
		Amount:    payment.Amount,
		Currency:  payment.Currency,
	}, nil
}
