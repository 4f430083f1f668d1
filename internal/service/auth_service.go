package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/internal/dto"
	"github.com/visitka/visitka-backend/internal/repository"
	"github.com/visitka/visitka-backend/internal/utils"
	"github.com/visitka/visitka-backend/pkg/observability"
	"go.uber.org/zap"
)

const (
	methodPassword = "password"
	methodTelegram = "telegram"

	passwordLengthMessage = "Password must be between 6 and 100 characters"
	defaultTelegramName   = "Telegram user"
)

// AuthConfig holds the settings of the sign-in flows
type AuthConfig struct {
	// DefaultPlanID is granted to every new account. Zero disables it.
	DefaultPlanID      int64
	TelegramBotToken   string
	TelegramAuthMaxAge time.Duration
}

// authService implements AuthService interface
type authService struct {
	repos     *repository.Repositories
	hasher    *utils.PasswordHasher
	tokens    *TokenService
	referrals *ReferralAllocator
	metrics   *observability.Metrics
	cfg       AuthConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	repos *repository.Repositories,
	hasher *utils.PasswordHasher,
	tokens *TokenService,
	referrals *ReferralAllocator,
	metrics *observability.Metrics,
	cfg AuthConfig,
	logger *zap.Logger,
) AuthService {
	return &authService{
		repos:     repos,
		hasher:    hasher,
		tokens:    tokens,
		referrals: referrals,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Register registers a new user
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (resp *dto.AuthResponse, err error) {
	defer func() { s.metrics.RecordRegistration(ctx, methodPassword, resultLabel(err)) }()

	email := utils.SanitizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)

	// Validate input before touching the store
	if !utils.ValidateEmail(email) {
		return nil, ValidationError("Invalid email format")
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, ValidationError(passwordLengthMessage)
	}
	if !utils.ValidateName(name) {
		return nil, ValidationError("Name is required and must be at most 100 characters")
	}
	if !s.tokens.Configured() {
		return nil, ConfigurationError(utils.ErrSigningSecretMissing)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		// Check if user already exists
		_, err := s.repos.User.GetByEmail(ctx, email)
		if err == nil {
			return ConflictError("User with this email already exists", nil)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to check user existence: %w", err)
		}

		user := &domain.User{
			Email:        email,
			Name:         name,
			PasswordHash: passwordHash,
		}
		if err := s.createAccount(ctx, user, req.ReferralCode); err != nil {
			return err
		}

		token, err := s.tokens.Issue(ctx, user)
		if err != nil {
			return err
		}

		resp = authResponse(token, user)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", resp.User.ID))
	return resp, nil
}

// createAccount inserts user and gives it a referral code, its referrer and the default plan.
// Must run inside a transaction.
func (s *authService) createAccount(ctx context.Context, user *domain.User, referralCode string) error {
	if err := s.repos.User.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return ConflictError("User with this email already exists", err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	// The code is allocated first so that the new user's own code is recognized below
	code, err := s.referrals.Allocate(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to allocate referral code: %w", err)
	}
	user.ReferralCode = code

	if err := s.referrals.Apply(ctx, user.ID, referralCode); err != nil {
		return err
	}

	return s.grantDefaultPlan(ctx, user.ID)
}

func (s *authService) grantDefaultPlan(ctx context.Context, userID int64) error {
	if s.cfg.DefaultPlanID == 0 {
		return nil
	}

	plan, err := s.repos.Plan.GetByID(ctx, s.cfg.DefaultPlanID)
	if err != nil {
		return fmt.Errorf("failed to load default plan %d: %w", s.cfg.DefaultPlanID, err)
	}

	now := s.now()
	if err := s.repos.Subscription.Create(ctx, &domain.UserSubscription{
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    domain.SubscriptionActive,
		StartsAt:  now,
		ExpiresAt: plan.ExpiresAt(now),
	}); err != nil {
		return fmt.Errorf("failed to grant default plan: %w", err)
	}

	return nil
}

// Login authenticates a user
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (resp *dto.AuthResponse, err error) {
	defer func() { s.metrics.RecordLogin(ctx, methodPassword, resultLabel(err)) }()

	email := utils.SanitizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ValidationError("Email and password are required")
	}

	user, err := s.repos.User.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.VerifyMissing(req.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Federated accounts have no password
	if !user.HasPassword() {
		s.hasher.VerifyMissing(req.Password)
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !s.tokens.Configured() {
		return nil, ConfigurationError(utils.ErrSigningSecretMissing)
	}

	if s.hasher.NeedsUpgrade(req.Password, user.PasswordHash) {
		s.upgradeHash(ctx, user, req.Password)
	}

	if err := s.repos.User.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	token, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	return authResponse(token, user), nil
}

// upgradeHash replaces an outdated hash. Failure is logged and retried on the next login.
func (s *authService) upgradeHash(ctx context.Context, user *domain.User, password string) {
	format := utils.DetectHashFormat(user.PasswordHash)

	newHash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.repos.User.UpdatePasswordHash(ctx, user.ID, newHash)
	}
	if err != nil {
		s.logger.Warn("failed to upgrade password hash",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		return
	}

	user.PasswordHash = newHash
	s.logger.Info("password hash upgraded",
		zap.Int64("user_id", user.ID),
		zap.Bool("from_legacy", format == utils.HashLegacySHA256),
	)
}

// TelegramLogin signs in with Telegram Login Widget data, creating the account on first use
func (s *authService) TelegramLogin(ctx context.Context, req *dto.TelegramLoginRequest) (resp *dto.AuthResponse, err error) {
	defer func() { s.metrics.RecordLogin(ctx, methodTelegram, resultLabel(err)) }()

	if s.cfg.TelegramBotToken == "" {
		return nil, ConfigurationError(errors.New("telegram bot token is not configured"))
	}
	if !s.tokens.Configured() {
		return nil, ConfigurationError(utils.ErrSigningSecretMissing)
	}

	telegramID := strconv.FormatInt(req.ID, 10)
	fields := map[string]string{
		"id":         telegramID,
		"first_name": req.FirstName,
		"last_name":  req.LastName,
		"username":   req.Username,
		"photo_url":  req.PhotoURL,
		"auth_date":  strconv.FormatInt(req.AuthDate, 10),
	}

	err = utils.VerifyTelegramLogin(s.cfg.TelegramBotToken, fields, req.Hash,
		time.Unix(req.AuthDate, 0), s.now(), s.cfg.TelegramAuthMaxAge)
	switch {
	case errors.Is(err, utils.ErrTelegramSignature):
		return nil, AuthorizationError("Invalid Telegram authentication data")
	case errors.Is(err, utils.ErrTelegramAuthExpired):
		return nil, AuthorizationError("Telegram authentication data is outdated")
	case err != nil:
		return nil, fmt.Errorf("failed to verify telegram login: %w", err)
	}

	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.findOrCreateTelegramUser(ctx, telegramID, req)
		if err != nil {
			return err
		}

		if err := s.repos.User.UpdateLastLogin(ctx, user.ID); err != nil {
			return fmt.Errorf("failed to update last login: %w", err)
		}

		token, err := s.tokens.Issue(ctx, user)
		if err != nil {
			return err
		}

		resp = authResponse(token, user)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (s *authService) findOrCreateTelegramUser(ctx context.Context, telegramID string, req *dto.TelegramLoginRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)

	link, err := s.repos.OAuthProvider.GetByProvider(ctx, domain.ProviderTelegram, telegramID)
	if err == nil {
		user, err := s.repos.User.GetByID(ctx, link.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get linked user: %w", err)
		}
		if username != link.Username {
			if err := s.repos.OAuthProvider.UpdateUsername(ctx, link.ID, username); err != nil {
				return nil, err
			}
		}
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up telegram link: %w", err)
	}

	user := &domain.User{Name: telegramDisplayName(req)}
	if err := s.createAccount(ctx, user, req.ReferralCode); err != nil {
		return nil, err
	}

	if err := s.repos.OAuthProvider.Create(ctx, &domain.OAuthProvider{
		UserID:         user.ID,
		Provider:       domain.ProviderTelegram,
		ProviderUserID: telegramID,
		Username:       username,
	}); err != nil {
		return nil, fmt.Errorf("failed to link telegram account: %w", err)
	}

	s.metrics.RecordRegistration(ctx, methodTelegram, resultLabel(nil))
	s.logger.Info("user registered via telegram", zap.Int64("user_id", user.ID))
	return user, nil
}

func telegramDisplayName(req *dto.TelegramLoginRequest) string {
	name := strings.TrimSpace(strings.TrimSpace(req.FirstName) + " " + strings.TrimSpace(req.LastName))
	if name == "" {
		name = strings.TrimSpace(req.Username)
	}
	if name == "" {
		return defaultTelegramName
	}
	if r := []rune(name); len(r) > utils.MaxNameLength {
		name = string(r[:utils.MaxNameLength])
	}
	return name
}

// Logout revokes the presented token
func (s *authService) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// GetUser gets user information
func (s *authService) GetUser(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundError("User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var (
		sub  *domain.UserSubscription
		plan *domain.SubscriptionPlan
	)
	sub, err = s.repos.Subscription.GetActiveByUser(ctx, userID, s.now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		sub = nil
	case err != nil:
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	default:
		plan, err = s.repos.Plan.GetByID(ctx, sub.PlanID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to get plan: %w", err)
		}
	}

	return userResponse(user, sub, plan), nil
}

// ValidateToken validates a session token
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	return s.tokens.Validate(ctx, token)
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	return KindOf(err).String()
}
