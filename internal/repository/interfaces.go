package repository

import (
	"context"
	"time"

	"github.com/visitka/visitka-backend/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.User, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	SetReferralCode(ctx context.Context, userID int64, code string) error
	SetReferredBy(ctx context.Context, userID, referrerID int64) error
	UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error
	UpdateLastLogin(ctx context.Context, userID int64) error
}

// TokenRepository is the registry of issued session tokens
type TokenRepository interface {
	Create(ctx context.Context, token *domain.IssuedToken) error
	GetActive(ctx context.Context, token string, now time.Time) (*domain.IssuedToken, error)
	Delete(ctx context.Context, token string) error
}

// ResetTokenRepository stores password reset tokens
type ResetTokenRepository interface {
	Replace(ctx context.Context, token *domain.ResetToken) error
	Consume(ctx context.Context, token string, now time.Time) (*domain.ResetToken, error)
}

// ReferralRepository defines methods for referral links
type ReferralRepository interface {
	Create(ctx context.Context, referral *domain.Referral) error
	ListByReferrer(ctx context.Context, referrerID int64) ([]*domain.ReferredUser, error)
}

// OAuthProviderRepository defines methods for OAuth provider operations
type OAuthProviderRepository interface {
	Create(ctx context.Context, provider *domain.OAuthProvider) error
	GetByProvider(ctx context.Context, provider, providerUserID string) (*domain.OAuthProvider, error)
	UpdateUsername(ctx context.Context, id int64, username string) error
}

// PlanRepository reads the subscription plan catalog
type PlanRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.SubscriptionPlan, error)
	List(ctx context.Context) ([]*domain.SubscriptionPlan, error)
}

// PaymentRepository defines methods for payment operations
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*domain.Payment, error)
	// LockByProviderPaymentID loads the payment and holds a row lock until the transaction ends.
	LockByProviderPaymentID(ctx context.Context, providerPaymentID string) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, paymentID int64, status domain.PaymentStatus) error
}

// SubscriptionRepository defines methods for user subscriptions
type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *domain.UserSubscription) error
	GetActiveByUser(ctx context.Context, userID int64, now time.Time) (*domain.UserSubscription, error)
	CountByPayment(ctx context.Context, paymentID int64) (int, error)
}
