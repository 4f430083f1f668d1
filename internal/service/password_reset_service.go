package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/internal/dto"
	"github.com/visitka/visitka-backend/internal/mail"
	"github.com/visitka/visitka-backend/internal/repository"
	"github.com/visitka/visitka-backend/internal/utils"
	"github.com/visitka/visitka-backend/pkg/observability"
	"go.uber.org/zap"
)

const (
	DefaultResetTokenTTL = time.Hour

	resetRequestedMessage = "If an account with that email exists, a password reset link has been sent"
	resetDoneMessage      = "Password has been reset successfully"
)

// PasswordResetConfig holds the settings of the reset flow
type PasswordResetConfig struct {
	TokenTTL    time.Duration
	LinkBaseURL string
	// AsyncDelivery answers before the email is sent; delivery failures are only logged.
	AsyncDelivery   bool
	DeliveryTimeout time.Duration
}

type passwordResetService struct {
	repos   *repository.Repositories
	hasher  *utils.PasswordHasher
	mailer  mail.Mailer
	metrics *observability.Metrics
	cfg     PasswordResetConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewPasswordResetService creates a new password reset service
func NewPasswordResetService(
	repos *repository.Repositories,
	hasher *utils.PasswordHasher,
	mailer mail.Mailer,
	metrics *observability.Metrics,
	cfg PasswordResetConfig,
	logger *zap.Logger,
) PasswordResetService {
	if cfg.TokenTTL <= 0 || cfg.TokenTTL > DefaultResetTokenTTL {
		cfg.TokenTTL = DefaultResetTokenTTL
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 15 * time.Second
	}
	return &passwordResetService{
		repos:   repos,
		hasher:  hasher,
		mailer:  mailer,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Request sends a reset link if the account exists. The response never reveals whether it does.
func (s *passwordResetService) Request(ctx context.Context, email string) (*dto.SuccessResponse, error) {
	email = utils.SanitizeEmail(email)
	if email == "" {
		return nil, ValidationError("Email is required")
	}

	if !s.mailer.Configured() {
		s.metrics.RecordResetRequest(ctx, "not_configured")
		return nil, ConfigurationError(mail.ErrNotConfigured)
	}

	generic := &dto.SuccessResponse{Message: resetRequestedMessage}

	user, err := s.repos.User.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.RecordResetRequest(ctx, "unknown_email")
			return generic, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		return nil, err
	}

	// Replacing drops any token issued earlier for this user
	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repos.ResetToken.Replace(ctx, &domain.ResetToken{
			Token:     token,
			UserID:    user.ID,
			ExpiresAt: s.now().Add(s.cfg.TokenTTL),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	msg, err := mail.PasswordResetMessage(user.Email, user.Name, s.resetLink(token), s.cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	if s.cfg.AsyncDelivery {
		go s.deliver(context.WithoutCancel(ctx), user.ID, msg)
		s.metrics.RecordResetRequest(ctx, "queued")
		return generic, nil
	}

	if err := s.send(ctx, msg); err != nil {
		s.metrics.RecordResetRequest(ctx, "delivery_failed")
		return nil, UpstreamError("Failed to send password reset email", err)
	}

	s.metrics.RecordResetRequest(ctx, "sent")
	s.logger.Info("password reset link sent", zap.Int64("user_id", user.ID))
	return generic, nil
}

func (s *passwordResetService) send(ctx context.Context, msg mail.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
	defer cancel()
	return s.mailer.Send(ctx, msg)
}

func (s *passwordResetService) deliver(ctx context.Context, userID int64, msg mail.Message) {
	if err := s.send(ctx, msg); err != nil {
		s.logger.Error("failed to send password reset email",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("password reset link sent", zap.Int64("user_id", userID))
}

func (s *passwordResetService) resetLink(token string) string {
	u, err := url.Parse(s.cfg.LinkBaseURL)
	if err != nil {
		return s.cfg.LinkBaseURL + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// Redeem sets a new password. The token is consumed in the same transaction as the update.
func (s *passwordResetService) Redeem(ctx context.Context, token, newPassword string) (*dto.SuccessResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ValidationError("Token is required")
	}
	if err := utils.ValidatePassword(newPassword); err != nil {
		return nil, ValidationError(passwordLengthMessage)
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}

	var userID int64
	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		reset, err := s.repos.ResetToken.Consume(ctx, token, s.now())
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ValidationError("Invalid or expired token")
			}
			return fmt.Errorf("failed to consume reset token: %w", err)
		}

		if err := s.repos.User.UpdatePasswordHash(ctx, reset.UserID, passwordHash); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}

		userID = reset.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("password reset completed", zap.Int64("user_id", userID))
	return &dto.SuccessResponse{Message: resetDoneMessage}, nil
}
