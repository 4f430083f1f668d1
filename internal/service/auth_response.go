package service

import (
	"time"

	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/internal/dto"
)

func authResponse(token string, user *domain.User) *dto.AuthResponse {
	return &dto.AuthResponse{
		Token: token,
		User: dto.UserInfo{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
		},
	}
}

// userResponse builds the profile. sub and plan may be nil.
func userResponse(user *domain.User, sub *domain.UserSubscription, plan *domain.SubscriptionPlan) *dto.UserResponse {
	response := &dto.UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		ReferralCode: user.ReferralCode,
		CreatedAt:    user.CreatedAt.Format(time.RFC3339),
	}

	if user.LastLoginAt != nil {
		lastLogin := user.LastLoginAt.Format(time.RFC3339)
		response.LastLoginAt = &lastLogin
	}

	if sub != nil {
		subscription := &dto.SubscriptionResponse{
			PlanID:   sub.PlanID,
			Status:   sub.Status,
			StartsAt: sub.StartsAt.Format(time.RFC3339),
		}
		if plan != nil {
			subscription.PlanName = plan.Name
		}
		if sub.ExpiresAt != nil {
			expires := sub.ExpiresAt.Format(time.RFC3339)
			subscription.ExpiresAt = &expires
		}
		response.Subscription = subscription
	}

	return response
}

func planResponse(plan *domain.SubscriptionPlan) dto.PlanResponse {
	return dto.PlanResponse{
		ID:             plan.ID,
		Name:           plan.Name,
		Price:          plan.Price,
		Currency:       plan.Currency,
		DurationDays:   plan.DurationDays,
		MaxCards:       plan.MaxCards,
		RemoveBranding: plan.RemoveBranding,
	}
}
