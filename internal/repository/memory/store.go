// Package memory provides in-memory repositories with transactional rollback
// for tests. It is not a storage backend: only _test.go files import it, and
// the server always runs on Postgres. Transactions are serialized.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/internal/repository"
)

type txKey struct{}

// Store holds all tables
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	seq           int64
	users         map[int64]domain.User
	tokens        map[string]domain.IssuedToken
	resetTokens   map[string]domain.ResetToken
	referrals     map[int64]domain.Referral
	oauth         map[int64]domain.OAuthProvider
	plans         map[int64]domain.SubscriptionPlan
	payments      map[int64]domain.Payment
	subscriptions map[int64]domain.UserSubscription

	failures map[string]error
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:         map[int64]domain.User{},
		tokens:        map[string]domain.IssuedToken{},
		resetTokens:   map[string]domain.ResetToken{},
		referrals:     map[int64]domain.Referral{},
		oauth:         map[int64]domain.OAuthProvider{},
		plans:         map[int64]domain.SubscriptionPlan{},
		payments:      map[int64]domain.Payment{},
		subscriptions: map[int64]domain.UserSubscription{},
		failures:      map[string]error{},
	}
}

// NewRepositories wires every repository to a fresh store
func NewRepositories() (*repository.Repositories, *Store) {
	s := NewStore()
	return s.Repositories(), s
}

// Repositories returns repository views over s
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Tx:            s,
		User:          &userRepo{s},
		Token:         &tokenRepo{s},
		ResetToken:    &resetTokenRepo{s},
		Referral:      &referralRepo{s},
		OAuthProvider: &oauthRepo{s},
		Plan:          &planRepo{s},
		Payment:       &paymentRepo{s},
		Subscription:  &subscriptionRepo{s},
	}
}

// FailOn makes the named operation (for example "subscriptions.create") return err
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) fail(op string) error {
	if err, ok := s.failures[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// WithinTx restores the previous state of every table when fn fails
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	seq           int64
	users         map[int64]domain.User
	tokens        map[string]domain.IssuedToken
	resetTokens   map[string]domain.ResetToken
	referrals     map[int64]domain.Referral
	oauth         map[int64]domain.OAuthProvider
	payments      map[int64]domain.Payment
	subscriptions map[int64]domain.UserSubscription
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		seq:           s.seq,
		users:         cloneMap(s.users),
		tokens:        cloneMap(s.tokens),
		resetTokens:   cloneMap(s.resetTokens),
		referrals:     cloneMap(s.referrals),
		oauth:         cloneMap(s.oauth),
		payments:      cloneMap(s.payments),
		subscriptions: cloneMap(s.subscriptions),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = snap.seq
	s.users = snap.users
	s.tokens = snap.tokens
	s.resetTokens = snap.resetTokens
	s.referrals = snap.referrals
	s.oauth = snap.oauth
	s.payments = snap.payments
	s.subscriptions = snap.subscriptions
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// AddPlan seeds the plan catalog
func (s *Store) AddPlan(plan domain.SubscriptionPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = plan
}

// AddUser inserts a user as-is, bypassing validation
func (s *Store) AddUser(user domain.User) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		user.ID = s.nextID()
	}
	s.users[user.ID] = user
	return user.ID
}

// AddPayment inserts a payment as-is
func (s *Store) AddPayment(payment domain.Payment) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if payment.ID == 0 {
		payment.ID = s.nextID()
	}
	s.payments[payment.ID] = payment
	return payment.ID
}

// User returns a copy of the stored user
func (s *Store) User(id int64) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

// UserCount returns the number of users
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Payment returns a copy of the stored payment
func (s *Store) Payment(providerPaymentID string) (domain.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.ProviderPaymentID == providerPaymentID {
			return p, true
		}
	}
	return domain.Payment{}, false
}

// Subscriptions returns all subscriptions of a user ordered by id
func (s *Store) Subscriptions(userID int64) []domain.UserSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.UserSubscription
	for _, sub := range s.subscriptions {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Referrals returns all referral links
func (s *Store) Referrals() []domain.Referral {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Referral, 0, len(s.referrals))
	for _, r := range s.referrals {
		out = append(out, r)
	}
	return out
}

// ResetTokenFor returns the outstanding reset token of a user
func (s *Store) ResetTokenFor(userID int64) (domain.ResetToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.resetTokens {
		if t.UserID == userID {
			return t, true
		}
	}
	return domain.ResetToken{}, false
}

// SetResetTokenExpiry rewrites the expiry of a stored reset token
func (s *Store) SetResetTokenExpiry(token string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.resetTokens[token]; ok {
		t.ExpiresAt = expiresAt
		s.resetTokens[token] = t
	}
}

// Link returns the identity link for an external account
func (s *Store) Link(provider, providerUserID string) (domain.OAuthProvider, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.oauth {
		if p.Provider == provider && p.ProviderUserID == providerUserID {
			return p, true
		}
	}
	return domain.OAuthProvider{}, false
}

// TokenCount returns the number of registered session tokens
func (s *Store) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

func notFound(subject string) error {
	return fmt.Errorf("%s not found: %w", subject, repository.ErrNotFound)
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
