package repository

import (
	"github.com/visitka/visitka-backend/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	Tx            Transactor
	User          UserRepository
	Token         TokenRepository
	ResetToken    ResetTokenRepository
	Referral      ReferralRepository
	OAuthProvider OAuthProviderRepository
	Plan          PlanRepository
	Payment       PaymentRepository
	Subscription  SubscriptionRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		Tx:            NewTransactor(db),
		User:          NewUserRepository(db),
		Token:         NewTokenRepository(db),
		ResetToken:    NewResetTokenRepository(db),
		Referral:      NewReferralRepository(db),
		OAuthProvider: NewOAuthProviderRepository(db),
		Plan:          NewPlanRepository(db),
		Payment:       NewPaymentRepository(db),
		Subscription:  NewSubscriptionRepository(db),
	}
}
