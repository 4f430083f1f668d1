package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create a user with an existing email
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicateReferralCode is returned when a referral code is already taken
	ErrDuplicateReferralCode = errors.New("referral code already taken")

	// ErrDuplicateToken is returned when trying to register the same session token twice
	ErrDuplicateToken = errors.New("token already registered")

	// ErrDuplicateOAuthProvider is returned when trying to create a duplicate OAuth provider connection
	ErrDuplicateOAuthProvider = errors.New("oauth provider connection already exists")

	// ErrDuplicateReferral is returned when the referred user already has a referrer
	ErrDuplicateReferral = errors.New("user already has a referrer")

	// ErrDuplicatePayment is returned when a provider payment id is stored twice
	ErrDuplicatePayment = errors.New("payment already exists")

	// ErrDuplicateSubscription is returned when a payment already produced a subscription
	ErrDuplicateSubscription = errors.New("subscription for this payment already exists")
)

const uniqueViolation = "23505"

// constraintViolated returns the name of the unique constraint err violates
func constraintViolated(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}
