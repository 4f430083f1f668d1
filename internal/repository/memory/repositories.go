package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/internal/repository"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.create"); err != nil {
		return err
	}
	for _, u := range r.s.users {
		if user.Email != "" && u.Email == user.Email {
			return fmt.Errorf("user with email %s already exists: %w", user.Email, repository.ErrDuplicateEmail)
		}
		if user.ReferralCode != "" && u.ReferralCode == user.ReferralCode {
			return fmt.Errorf("referral code %s: %w", user.ReferralCode, repository.ErrDuplicateReferralCode)
		}
	}
	user.ID = r.s.nextID()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) find(match func(domain.User) bool, subject string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, notFound(subject)
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return email != "" && u.Email == email }, "user with email "+email)
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id }, "user with id "+idString(id))
}

func (r *userRepo) GetByReferralCode(_ context.Context, code string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return code != "" && u.ReferralCode == code }, "referral code "+code)
}

func (r *userRepo) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := r.GetByReferralCode(ctx, code)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *userRepo) update(id int64, fn func(*domain.User) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return notFound("user with id " + idString(id))
	}
	if err := fn(&u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now()
	r.s.users[id] = u
	return nil
}

func (r *userRepo) SetReferralCode(_ context.Context, userID int64, code string) error {
	return r.update(userID, func(u *domain.User) error {
		if err := r.s.fail("users.set_referral_code"); err != nil {
			return err
		}
		for _, other := range r.s.users {
			if other.ID != userID && other.ReferralCode == code {
				return fmt.Errorf("referral code %s: %w", code, repository.ErrDuplicateReferralCode)
			}
		}
		u.ReferralCode = code
		return nil
	})
}

func (r *userRepo) SetReferredBy(_ context.Context, userID, referrerID int64) error {
	return r.update(userID, func(u *domain.User) error {
		id := referrerID
		u.ReferredBy = &id
		return nil
	})
}

func (r *userRepo) UpdatePasswordHash(_ context.Context, userID int64, passwordHash string) error {
	return r.update(userID, func(u *domain.User) error {
		if err := r.s.fail("users.update_password_hash"); err != nil {
			return err
		}
		u.PasswordHash = passwordHash
		return nil
	})
}

func (r *userRepo) UpdateLastLogin(_ context.Context, userID int64) error {
	return r.update(userID, func(u *domain.User) error {
		now := time.Now()
		u.LastLoginAt = &now
		return nil
	})
}

type tokenRepo struct{ s *Store }

func (r *tokenRepo) Create(_ context.Context, token *domain.IssuedToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("tokens.create"); err != nil {
		return err
	}
	if _, ok := r.s.tokens[token.Token]; ok {
		return fmt.Errorf("failed to register token: %w", repository.ErrDuplicateToken)
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	r.s.tokens[token.Token] = *token
	return nil
}

func (r *tokenRepo) GetActive(_ context.Context, token string, now time.Time) (*domain.IssuedToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[token]
	if !ok || !t.ExpiresAt.After(now) {
		return nil, notFound("active token")
	}
	return &t, nil
}

func (r *tokenRepo) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tokens[token]; !ok {
		return notFound("token")
	}
	delete(r.s.tokens, token)
	return nil
}

type resetTokenRepo struct{ s *Store }

func (r *resetTokenRepo) Replace(_ context.Context, token *domain.ResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for key, t := range r.s.resetTokens {
		if t.UserID == token.UserID {
			delete(r.s.resetTokens, key)
		}
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	r.s.resetTokens[token.Token] = *token
	return nil
}

func (r *resetTokenRepo) Consume(_ context.Context, token string, now time.Time) (*domain.ResetToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.resetTokens[token]
	if !ok || !t.ExpiresAt.After(now) {
		return nil, notFound("reset token")
	}
	delete(r.s.resetTokens, token)
	return &t, nil
}

type referralRepo struct{ s *Store }

func (r *referralRepo) Create(_ context.Context, referral *domain.Referral) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if referral.ReferrerID == referral.ReferredID {
		return fmt.Errorf("referrals_no_self_referral violated")
	}
	for _, existing := range r.s.referrals {
		if existing.ReferredID == referral.ReferredID {
			return fmt.Errorf("user %d: %w", referral.ReferredID, repository.ErrDuplicateReferral)
		}
	}
	referral.ID = r.s.nextID()
	if referral.CreatedAt.IsZero() {
		referral.CreatedAt = time.Now()
	}
	r.s.referrals[referral.ID] = *referral
	return nil
}

func (r *referralRepo) ListByReferrer(_ context.Context, referrerID int64) ([]*domain.ReferredUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.ReferredUser
	for _, ref := range r.s.referrals {
		if ref.ReferrerID != referrerID {
			continue
		}
		out = append(out, &domain.ReferredUser{
			UserID:        ref.ReferredID,
			Name:          r.s.users[ref.ReferredID].Name,
			RewardGranted: ref.RewardGranted,
			JoinedAt:      ref.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID > out[j].UserID })
	return out, nil
}

type oauthRepo struct{ s *Store }

func (r *oauthRepo) Create(_ context.Context, provider *domain.OAuthProvider) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.oauth {
		if p.Provider == provider.Provider && p.ProviderUserID == provider.ProviderUserID {
			return fmt.Errorf("oauth provider connection already exists: %w", repository.ErrDuplicateOAuthProvider)
		}
	}
	provider.ID = r.s.nextID()
	if provider.CreatedAt.IsZero() {
		provider.CreatedAt = time.Now()
	}
	provider.UpdatedAt = provider.CreatedAt
	r.s.oauth[provider.ID] = *provider
	return nil
}

func (r *oauthRepo) GetByProvider(_ context.Context, provider, providerUserID string) (*domain.OAuthProvider, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.oauth {
		if p.Provider == provider && p.ProviderUserID == providerUserID {
			found := p
			return &found, nil
		}
	}
	return nil, notFound("oauth provider connection")
}

func (r *oauthRepo) UpdateUsername(_ context.Context, id int64, username string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("oauth.update_username"); err != nil {
		return err
	}
	p, ok := r.s.oauth[id]
	if !ok {
		return notFound("oauth provider connection")
	}
	p.Username = username
	p.UpdatedAt = time.Now()
	r.s.oauth[id] = p
	return nil
}

type planRepo struct{ s *Store }

func (r *planRepo) GetByID(_ context.Context, id int64) (*domain.SubscriptionPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return nil, notFound("plan with id " + idString(id))
	}
	return &p, nil
}

func (r *planRepo) List(_ context.Context) ([]*domain.SubscriptionPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.SubscriptionPlan, 0, len(r.s.plans))
	for _, p := range r.s.plans {
		plan := p
		out = append(out, &plan)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type paymentRepo struct{ s *Store }

func (r *paymentRepo) Create(_ context.Context, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("payments.create"); err != nil {
		return err
	}
	for _, p := range r.s.payments {
		if p.ProviderPaymentID == payment.ProviderPaymentID {
			return fmt.Errorf("payment %s: %w", payment.ProviderPaymentID, repository.ErrDuplicatePayment)
		}
	}
	payment.ID = r.s.nextID()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}
	payment.UpdatedAt = payment.CreatedAt
	r.s.payments[payment.ID] = *payment
	return nil
}

func (r *paymentRepo) GetByProviderPaymentID(_ context.Context, providerPaymentID string) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.ProviderPaymentID == providerPaymentID {
			found := p
			return &found, nil
		}
	}
	return nil, notFound("payment " + providerPaymentID)
}

func (r *paymentRepo) LockByProviderPaymentID(ctx context.Context, providerPaymentID string) (*domain.Payment, error) {
	return r.GetByProviderPaymentID(ctx, providerPaymentID)
}

func (r *paymentRepo) UpdateStatus(_ context.Context, paymentID int64, status domain.PaymentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("payments.update_status"); err != nil {
		return err
	}
	p, ok := r.s.payments[paymentID]
	if !ok {
		return notFound("payment with id " + idString(paymentID))
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	r.s.payments[paymentID] = p
	return nil
}

type subscriptionRepo struct{ s *Store }

func (r *subscriptionRepo) Create(_ context.Context, subscription *domain.UserSubscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("subscriptions.create"); err != nil {
		return err
	}
	if subscription.PaymentID != nil {
		for _, sub := range r.s.subscriptions {
			if sub.PaymentID != nil && *sub.PaymentID == *subscription.PaymentID {
				return fmt.Errorf("failed to create subscription: %w", repository.ErrDuplicateSubscription)
			}
		}
	}
	subscription.ID = r.s.nextID()
	if subscription.CreatedAt.IsZero() {
		subscription.CreatedAt = time.Now()
	}
	r.s.subscriptions[subscription.ID] = *subscription
	return nil
}

func (r *subscriptionRepo) GetActiveByUser(_ context.Context, userID int64, now time.Time) (*domain.UserSubscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *domain.UserSubscription
	for _, sub := range r.s.subscriptions {
		if sub.UserID != userID || !sub.IsActive(now) {
			continue
		}
		if best == nil || sub.StartsAt.After(best.StartsAt) || (sub.StartsAt.Equal(best.StartsAt) && sub.ID > best.ID) {
			candidate := sub
			best = &candidate
		}
	}
	if best == nil {
		return nil, notFound("active subscription")
	}
	return best, nil
}

func (r *subscriptionRepo) CountByPayment(_ context.Context, paymentID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, sub := range r.s.subscriptions {
		if sub.PaymentID != nil && *sub.PaymentID == paymentID {
			count++
		}
	}
	return count, nil
}

var (
	_ repository.UserRepository          = (*userRepo)(nil)
	_ repository.TokenRepository         = (*tokenRepo)(nil)
	_ repository.ResetTokenRepository    = (*resetTokenRepo)(nil)
	_ repository.ReferralRepository      = (*referralRepo)(nil)
	_ repository.OAuthProviderRepository = (*oauthRepo)(nil)
	_ repository.PlanRepository          = (*planRepo)(nil)
	_ repository.PaymentRepository       = (*paymentRepo)(nil)
	_ repository.SubscriptionRepository  = (*subscriptionRepo)(nil)
	_ repository.Transactor              = (*Store)(nil)
)
