package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/internal/migrations"
	"github.com/visitka/visitka-backend/internal/repository"
	"github.com/visitka/visitka-backend/pkg/database"
)

type PostgresSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *database.Postgres
	repos     *repository.Repositories
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration tests in short mode")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("visitka_test"),
		postgres.WithUsername("visitka"),
		postgres.WithPassword("visitka"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		s.T().Skipf("postgres container unavailable: %v", err)
	}
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.db, err = database.NewPostgres(s.ctx, dsn, database.PoolOptions{MaxOpenConns: 5})
	s.Require().NoError(err)
	s.Require().NoError(migrations.Run(s.db.DB, "../../migrations"))

	s.repos = repository.NewRepositories(s.db)
}

func (s *PostgresSuite) TearDownSuite() {
	if s.db != nil {
		s.NoError(s.db.Close())
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(s.ctx))
	}
}

func (s *PostgresSuite) SetupTest() {
	_, err := s.db.DB.ExecContext(s.ctx, `
		TRUNCATE users, auth_tokens, password_reset_tokens, referrals,
			payments, user_subscriptions, oauth_providers RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)
}

func (s *PostgresSuite) createUser(email, code string) *domain.User {
	user := &domain.User{Email: email, Name: "Test", PasswordHash: "$2a$04$abcdefghijklmnopqrstuu", ReferralCode: code}
	s.Require().NoError(s.repos.User.Create(s.ctx, user))
	return user
}

func (s *PostgresSuite) TestUserUniqueness() {
	alice := s.createUser("alice@example.com", "ALICE001")

	got, err := s.repos.User.GetByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(alice.ID, got.ID)

	err = s.repos.User.Create(s.ctx, &domain.User{Email: "alice@example.com", Name: "Again", ReferralCode: "ALICE002"})
	s.ErrorIs(err, repository.ErrDuplicateEmail)

	err = s.repos.User.Create(s.ctx, &domain.User{Email: "bob@example.com", Name: "Bob", ReferralCode: "ALICE001"})
	s.ErrorIs(err, repository.ErrDuplicateReferralCode)

	exists, err := s.repos.User.ReferralCodeExists(s.ctx, "ALICE001")
	s.Require().NoError(err)
	s.True(exists)

	_, err = s.repos.User.GetByID(s.ctx, 9999)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *PostgresSuite) TestTokenRegistry() {
	user := s.createUser("carol@example.com", "CAROL001")
	now := time.Now()

	s.Require().NoError(s.repos.Token.Create(s.ctx, &domain.IssuedToken{
		Token: "tok-1", UserID: user.ID, ExpiresAt: now.Add(time.Hour),
	}))
	s.Require().NoError(s.repos.Token.Create(s.ctx, &domain.IssuedToken{
		Token: "tok-old", UserID: user.ID, ExpiresAt: now.Add(-time.Minute),
	}))

	got, err := s.repos.Token.GetActive(s.ctx, "tok-1", now)
	s.Require().NoError(err)
	s.Equal(user.ID, got.UserID)

	_, err = s.repos.Token.GetActive(s.ctx, "tok-old", now)
	s.ErrorIs(err, repository.ErrNotFound)

	s.Require().NoError(s.repos.Token.Delete(s.ctx, "tok-1"))
	_, err = s.repos.Token.GetActive(s.ctx, "tok-1", now)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *PostgresSuite) TestResetTokenSingleUse() {
	user := s.createUser("dave@example.com", "DAVE0001")
	now := time.Now()

	s.Require().NoError(s.repos.ResetToken.Replace(s.ctx, &domain.ResetToken{
		Token: "first", UserID: user.ID, ExpiresAt: now.Add(time.Hour),
	}))
	s.Require().NoError(s.repos.ResetToken.Replace(s.ctx, &domain.ResetToken{
		Token: "second", UserID: user.ID, ExpiresAt: now.Add(time.Hour),
	}))

	_, err := s.repos.ResetToken.Consume(s.ctx, "first", now)
	s.ErrorIs(err, repository.ErrNotFound)

	consumed, err := s.repos.ResetToken.Consume(s.ctx, "second", now)
	s.Require().NoError(err)
	s.Equal(user.ID, consumed.UserID)

	_, err = s.repos.ResetToken.Consume(s.ctx, "second", now)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *PostgresSuite) TestPaymentActivatesOnce() {
	user := s.createUser("erin@example.com", "ERIN0001")

	payment := &domain.Payment{
		UserID:            user.ID,
		Amount:            "299.00",
		Currency:          "RUB",
		PaymentType:       "subscription",
		Provider:          "yookassa",
		ProviderPaymentID: "pay_1",
		Status:            domain.PaymentPending,
		Metadata:          map[string]string{"subscription_id": "2"},
	}
	s.Require().NoError(s.repos.Payment.Create(s.ctx, payment))

	err := s.repos.Tx.WithinTx(s.ctx, func(ctx context.Context) error {
		locked, err := s.repos.Payment.LockByProviderPaymentID(ctx, "pay_1")
		if err != nil {
			return err
		}
		s.Equal("2", locked.Metadata["subscription_id"])
		if err := s.repos.Payment.UpdateStatus(ctx, locked.ID, domain.PaymentSucceeded); err != nil {
			return err
		}
		return s.repos.Subscription.Create(ctx, &domain.UserSubscription{
			UserID: user.ID, PlanID: 2, PaymentID: &locked.ID,
			Status: domain.SubscriptionActive, StartsAt: time.Now(),
		})
	})
	s.Require().NoError(err)

	err = s.repos.Subscription.Create(s.ctx, &domain.UserSubscription{
		UserID: user.ID, PlanID: 2, PaymentID: &payment.ID,
		Status: domain.SubscriptionActive, StartsAt: time.Now(),
	})
	s.ErrorIs(err, repository.ErrDuplicateSubscription)

	count, err := s.repos.Subscription.CountByPayment(s.ctx, payment.ID)
	s.Require().NoError(err)
	s.Equal(1, count)

	stored, err := s.repos.Payment.GetByProviderPaymentID(s.ctx, "pay_1")
	s.Require().NoError(err)
	s.Equal(domain.PaymentSucceeded, stored.Status)

	s.ErrorIs(s.repos.Payment.Create(s.ctx, &domain.Payment{
		UserID: user.ID, Amount: "299.00", Currency: "RUB", PaymentType: "subscription",
		Provider: "yookassa", ProviderPaymentID: "pay_1", Status: domain.PaymentPending,
	}), repository.ErrDuplicatePayment)
}

func (s *PostgresSuite) TestTransactionRollback() {
	errBoom := errors.New("boom")

	err := s.repos.Tx.WithinTx(s.ctx, func(ctx context.Context) error {
		if err := s.repos.User.Create(ctx, &domain.User{Email: "frank@example.com", Name: "Frank", ReferralCode: "FRANK001"}); err != nil {
			return err
		}
		return errBoom
	})
	s.ErrorIs(err, errBoom)

	_, err = s.repos.User.GetByEmail(s.ctx, "frank@example.com")
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *PostgresSuite) TestIdentityLink() {
	user := s.createUser("grace@example.com", "GRACE001")

	link := &domain.OAuthProvider{UserID: user.ID, Provider: domain.ProviderTelegram, ProviderUserID: "42", Username: "grace"}
	s.Require().NoError(s.repos.OAuthProvider.Create(s.ctx, link))

	err := s.repos.OAuthProvider.Create(s.ctx, &domain.OAuthProvider{UserID: user.ID, Provider: domain.ProviderTelegram, ProviderUserID: "42"})
	s.ErrorIs(err, repository.ErrDuplicateOAuthProvider)

	s.Require().NoError(s.repos.OAuthProvider.UpdateUsername(s.ctx, link.ID, ""))

	got, err := s.repos.OAuthProvider.GetByProvider(s.ctx, domain.ProviderTelegram, "42")
	s.Require().NoError(err)
	s.Equal(user.ID, got.UserID)
	s.Empty(got.Username)

	_, err = s.repos.OAuthProvider.GetByProvider(s.ctx, domain.ProviderTelegram, "43")
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *PostgresSuite) TestPlanCatalog() {
	plans, err := s.repos.Plan.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(plans, 3)
	s.Equal("Free", plans[0].Name)

	pro, err := s.repos.Plan.GetByID(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal(30, pro.DurationDays)
}
