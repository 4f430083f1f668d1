package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/internal/mail"
	"github.com/visitka/visitka-backend/internal/repository"
	"github.com/visitka/visitka-backend/internal/repository/memory"
	"github.com/visitka/visitka-backend/internal/utils"
	"github.com/visitka/visitka-backend/internal/yookassa"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSigningSecret = "test-secret-key-that-is-at-least-32-characters-long"

const (
	planFree int64 = iota + 1
	planPro
	planProAnnual
)

func seedPlans(store *memory.Store) {
	store.AddPlan(domain.SubscriptionPlan{ID: planFree, Name: "Free", Price: "0.00", Currency: "RUB", MaxCards: 1})
	store.AddPlan(domain.SubscriptionPlan{ID: planPro, Name: "Pro", Price: "299.00", Currency: "RUB", DurationDays: 30, MaxCards: 10, RemoveBranding: true})
	store.AddPlan(domain.SubscriptionPlan{ID: planProAnnual, Name: "Pro Annual", Price: "2990.00", Currency: "RUB", DurationDays: 365, MaxCards: 10, RemoveBranding: true})
}

type testEnv struct {
	repos     *repository.Repositories
	store     *memory.Store
	hasher    *utils.PasswordHasher
	tokens    *TokenService
	referrals *ReferralAllocator
	logger    *zap.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repos, store := memory.NewRepositories()
	seedPlans(store)

	hasher, err := utils.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	logger := zap.NewNop()
	return &testEnv{
		repos:     repos,
		store:     store,
		hasher:    hasher,
		tokens:    NewTokenService(utils.NewTokenIssuer(testSigningSecret, 30*24*time.Hour), repos.Token),
		referrals: NewReferralAllocator(repos, DefaultReferralCodeAttempts, logger),
		logger:    logger,
	}
}

func (e *testEnv) authService(cfg AuthConfig) *authService {
	return NewAuthService(e.repos, e.hasher, e.tokens, e.referrals, nil, cfg, e.logger).(*authService)
}

// sequence returns a generator yielding codes in order, then the last one forever
func sequence(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Configured() bool {
	return m.Called().Bool(0)
}

func (m *mockMailer) Send(ctx context.Context, msg mail.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Configured() bool {
	return m.Called().Bool(0)
}

func (m *mockProvider) CreatePayment(ctx context.Context, idempotenceKey string, params yookassa.CreatePaymentRequest) (*yookassa.Payment, error) {
	args := m.Called(ctx, idempotenceKey, params)
	payment, _ := args.Get(0).(*yookassa.Payment)
	return payment, args.Error(1)
}
