package repository_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/internal/dto"
	"github.com/visitka/visitka-backend/internal/repository"
	"github.com/visitka/visitka-backend/internal/service"
	"github.com/visitka/visitka-backend/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSigningSecret = "test-secret-key-that-is-at-least-32-characters-long"

// blindUsers hides existing codes from the allocator's pre-check so a
// collision surfaces as a unique violation inside the transaction
type blindUsers struct {
	repository.UserRepository
}

func (blindUsers) ReferralCodeExists(context.Context, string) (bool, error) {
	return false, nil
}

func (s *PostgresSuite) authService(referrals *service.ReferralAllocator) service.AuthService {
	hasher, err := utils.NewPasswordHasher(bcrypt.MinCost)
	s.Require().NoError(err)

	tokens := service.NewTokenService(utils.NewTokenIssuer(testSigningSecret, time.Hour), s.repos.Token)
	return service.NewAuthService(s.repos, hasher, tokens, referrals, nil,
		service.AuthConfig{DefaultPlanID: 1}, zap.NewNop())
}

func (s *PostgresSuite) TestRegisterRetriesReferralCollisionInTransaction() {
	s.createUser("taken@example.com", "TAKEN001")

	blind := *s.repos
	blind.User = blindUsers{s.repos.User}

	var calls atomic.Int32
	referrals := service.NewReferralAllocator(&blind, 3, zap.NewNop()).
		WithGenerator(func() (string, error) {
			if calls.Add(1) == 1 {
				return "TAKEN001", nil
			}
			return "FRESH001", nil
		})

	resp, err := s.authService(referrals).Register(s.ctx, &dto.RegisterRequest{
		Email: "new@example.com", Password: "secret1", Name: "New",
	})
	s.Require().NoError(err)
	s.Equal(int32(2), calls.Load())

	user, err := s.repos.User.GetByID(s.ctx, resp.User.ID)
	s.Require().NoError(err)
	s.Equal("FRESH001", user.ReferralCode)

	// statements after the collision ran in the same transaction
	sub, err := s.repos.Subscription.GetActiveByUser(s.ctx, user.ID, time.Now())
	s.Require().NoError(err)
	s.Equal(int64(1), sub.PlanID)
}

func (s *PostgresSuite) TestConcurrentRegistrationsGetDistinctCodes() {
	const n = 8

	// the first n draws return the same code, so concurrent transactions race for it
	var draws atomic.Int64
	referrals := service.NewReferralAllocator(s.repos, n+2, zap.NewNop()).
		WithGenerator(func() (string, error) {
			d := draws.Add(1)
			if d <= n {
				return "SHARED01", nil
			}
			return fmt.Sprintf("U%07d", d), nil
		})
	svc := s.authService(referrals)

	var wg sync.WaitGroup
	errs := make([]error, n)
	ids := make([]int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := svc.Register(s.ctx, &dto.RegisterRequest{
				Email:    fmt.Sprintf("user%d@example.com", i),
				Password: "secret1",
				Name:     "User " + strconv.Itoa(i),
			})
			errs[i] = err
			if err == nil {
				ids[i] = resp.User.ID
			}
		}(i)
	}
	wg.Wait()

	codes := map[string]int64{}
	for i := 0; i < n; i++ {
		s.Require().NoError(errs[i])
		user, err := s.repos.User.GetByID(s.ctx, ids[i])
		s.Require().NoError(err)
		s.True(utils.IsReferralCode(user.ReferralCode))
		_, dup := codes[user.ReferralCode]
		s.False(dup, "code %s assigned twice", user.ReferralCode)
		codes[user.ReferralCode] = user.ID
	}
	s.Contains(codes, "SHARED01")
}

func (s *PostgresSuite) TestConcurrentWebhookDeliveriesActivateOnce() {
	user := s.createUser("henry@example.com", "HENRY001")
	payment := &domain.Payment{
		UserID:            user.ID,
		Amount:            "299.00",
		Currency:          "RUB",
		PaymentType:       "subscription",
		Provider:          "yookassa",
		ProviderPaymentID: "pay_race",
		Status:            domain.PaymentPending,
		Metadata:          map[string]string{"user_id": strconv.FormatInt(user.ID, 10), "subscription_id": "2"},
	}
	s.Require().NoError(s.repos.Payment.Create(s.ctx, payment))

	svc := service.NewSubscriptionService(s.repos, nil, zap.NewNop())
	event := &dto.WebhookEvent{
		Type:  "notification",
		Event: domain.EventPaymentSucceeded,
		Object: dto.WebhookObject{
			ID:     "pay_race",
			Status: string(domain.PaymentSucceeded),
			Paid:   true,
		},
	}

	const deliveries = 2
	var wg sync.WaitGroup
	errs := make([]error, deliveries)
	start := make(chan struct{})
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.HandleWebhook(s.ctx, event)
		}(i)
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		s.NoError(err)
	}

	count, err := s.repos.Subscription.CountByPayment(s.ctx, payment.ID)
	s.Require().NoError(err)
	s.Equal(1, count)

	stored, err := s.repos.Payment.GetByProviderPaymentID(s.ctx, "pay_race")
	s.Require().NoError(err)
	s.Equal(domain.PaymentSucceeded, stored.Status)
}
