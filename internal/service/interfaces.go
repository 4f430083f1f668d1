package service

import (
	"context"

	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/internal/dto"
	"github.com/visitka/visitka-backend/internal/yookassa"
)

// AuthService defines methods for authentication operations
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	TelegramLogin(ctx context.Context, req *dto.TelegramLoginRequest) (*dto.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	GetUser(ctx context.Context, userID int64) (*dto.UserResponse, error)
	ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error)
}

// PasswordResetService issues and redeems password reset tokens
type PasswordResetService interface {
	Request(ctx context.Context, email string) (*dto.SuccessResponse, error)
	Redeem(ctx context.Context, token, newPassword string) (*dto.SuccessResponse, error)
}

// SubscriptionService reacts to payment provider notifications
type SubscriptionService interface {
	HandleWebhook(ctx context.Context, event *dto.WebhookEvent) (*dto.SuccessResponse, error)
}

// PaymentService starts subscription purchases
type PaymentService interface {
	ListPlans(ctx context.Context) ([]dto.PlanResponse, error)
	CreatePayment(ctx context.Context, userID int64, req *dto.CreatePaymentRequest) (*dto.PaymentResponse, error)
	GetPayment(ctx context.Context, userID int64, providerPaymentID string) (*dto.PaymentResponse, error)
}

// ReferralService reports referral statistics
type ReferralService interface {
	Stats(ctx context.Context, userID int64) (*dto.ReferralStatsResponse, error)
}

// PaymentProvider is the external payment gateway
type PaymentProvider interface {
	Configured() bool
	CreatePayment(ctx context.Context, idempotenceKey string, params yookassa.CreatePaymentRequest) (*yookassa.Payment, error)
}
