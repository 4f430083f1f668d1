package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/internal/dto"
	"github.com/visitka/visitka-backend/internal/repository"
	"github.com/visitka/visitka-backend/internal/utils"
	"go.uber.org/zap"
)

const DefaultReferralCodeAttempts = 10

var errReferralCodesExhausted = errors.New("no unique referral code found")

// ReferralAllocator hands out unique referral codes and links referred accounts
type ReferralAllocator struct {
	users       repository.UserRepository
	referrals   repository.ReferralRepository
	generate    func() (string, error)
	maxAttempts int
	logger      *zap.Logger
}

var _ ReferralService = (*ReferralAllocator)(nil)

// NewReferralAllocator creates a new allocator
func NewReferralAllocator(repos *repository.Repositories, maxAttempts int, logger *zap.Logger) *ReferralAllocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultReferralCodeAttempts
	}
	return &ReferralAllocator{
		users:       repos.User,
		referrals:   repos.Referral,
		generate:    utils.GenerateReferralCode,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// WithGenerator replaces the code generator
func (a *ReferralAllocator) WithGenerator(generate func() (string, error)) *ReferralAllocator {
	a.generate = generate
	return a
}

// Allocate assigns a fresh code to userID. A collision, whether seen by the
// pre-check or by the unique constraint, costs one attempt.
func (a *ReferralAllocator) Allocate(ctx context.Context, userID int64) (string, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		code, err := a.generate()
		if err != nil {
			return "", err
		}

		exists, err := a.users.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check referral code: %w", err)
		}
		if exists {
			a.logger.Debug("referral code collision", zap.Int("attempt", attempt))
			continue
		}

		err = a.users.SetReferralCode(ctx, userID, code)
		if errors.Is(err, repository.ErrDuplicateReferralCode) {
			a.logger.Debug("referral code taken concurrently", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to store referral code: %w", err)
		}

		return code, nil
	}

	return "", fmt.Errorf("after %d attempts: %w", a.maxAttempts, errReferralCodesExhausted)
}

// Apply links newUserID to the owner of code. Unknown codes are ignored;
// the caller's own code is rejected.
func (a *ReferralAllocator) Apply(ctx context.Context, newUserID int64, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if !utils.IsReferralCode(code) {
		a.logger.Debug("ignoring malformed referral code", zap.Int64("user_id", newUserID))
		return nil
	}

	referrer, err := a.users.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			a.logger.Debug("ignoring unknown referral code", zap.Int64("user_id", newUserID))
			return nil
		}
		return fmt.Errorf("failed to resolve referral code: %w", err)
	}

	if referrer.ID == newUserID {
		return ValidationError("Cannot use your own referral code")
	}

	if err := a.users.SetReferredBy(ctx, newUserID, referrer.ID); err != nil {
		return fmt.Errorf("failed to set referrer: %w", err)
	}

	if err := a.referrals.Create(ctx, &domain.Referral{
		ReferrerID:   referrer.ID,
		ReferredID:   newUserID,
		ReferralCode: code,
	}); err != nil {
		return fmt.Errorf("failed to record referral: %w", err)
	}

	a.logger.Info("referral applied",
		zap.Int64("referrer_id", referrer.ID),
		zap.Int64("referred_id", newUserID),
	)
	return nil
}

// Stats returns the user's code and the accounts that used it
func (a *ReferralAllocator) Stats(ctx context.Context, userID int64) (*dto.ReferralStatsResponse, error) {
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundError("User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	referred, err := a.referrals.ListByReferrer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}

	resp := &dto.ReferralStatsResponse{
		ReferralCode:  user.ReferralCode,
		ReferredCount: len(referred),
		Referred:      make([]dto.ReferredUserResponse, 0, len(referred)),
	}
	for _, r := range referred {
		resp.Referred = append(resp.Referred, dto.ReferredUserResponse{
			UserID:        r.UserID,
			Name:          r.Name,
			RewardGranted: r.RewardGranted,
			JoinedAt:      r.JoinedAt.Format(time.RFC3339),
		})
	}

	return resp, nil
}
