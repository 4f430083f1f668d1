package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/visitka/visitka-backend/internal/domain"
	"github.com/visitka/visitka-backend/pkg/database"
)

const userColumns = `id, email, name, password_hash, referral_code, referred_by, created_at, updated_at, last_login_at`

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user and fills in the generated ID and timestamps
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (email, name, password_hash, referral_code, referred_by, created_at, updated_at)
		VALUES (NULLIF($1, ''), $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $6)
		RETURNING id
	`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.ReferralCode,
		user.ReferredBy,
		user.CreatedAt,
	).Scan(&user.ID)

	if err != nil {
		if constraint, ok := constraintViolated(err); ok {
			if constraint == "users_referral_code_key" {
				return fmt.Errorf("referral code %s: %w", user.ReferralCode, ErrDuplicateReferralCode)
			}
			return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %d not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// GetByReferralCode retrieves the owner of a referral code
func (r *userRepository) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referral_code = $1`

	user, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("referral code %s not found: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by referral code: %w", err)
	}

	return user, nil
}

// ReferralCodeExists reports whether any user already owns code
func (r *userRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE referral_code = $1)`

	var exists bool
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check referral code: %w", err)
	}

	return exists, nil
}

// SetReferralCode assigns code to the user. A collision leaves the enclosing
// transaction usable so the caller can retry with another code.
func (r *userRepository) SetReferralCode(ctx context.Context, userID int64, code string) error {
	query := `UPDATE users SET referral_code = $1, updated_at = $2 WHERE id = $3`

	return withSavepoint(ctx, r.db, "set_referral_code", func(q DBTX) error {
		result, err := q.ExecContext(ctx, query, code, time.Now(), userID)
		if err != nil {
			if _, ok := constraintViolated(err); ok {
				return fmt.Errorf("referral code %s: %w", code, ErrDuplicateReferralCode)
			}
			return fmt.Errorf("failed to set referral code: %w", err)
		}
		return expectOneRow(result, fmt.Sprintf("user with id %d", userID))
	})
}

// SetReferredBy records the referrer of a user
func (r *userRepository) SetReferredBy(ctx context.Context, userID, referrerID int64) error {
	query := `UPDATE users SET referred_by = $1, updated_at = $2 WHERE id = $3`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, referrerID, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to set referrer: %w", err)
	}

	return expectOneRow(result, fmt.Sprintf("user with id %d", userID))
}

// UpdatePasswordHash replaces the stored password hash
func (r *userRepository) UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, passwordHash, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}

	return expectOneRow(result, fmt.Sprintf("user with id %d", userID))
}

// UpdateLastLogin updates the last login timestamp for a user
func (r *userRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	query := `UPDATE users SET last_login_at = $1 WHERE id = $2`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return expectOneRow(result, fmt.Sprintf("user with id %d", userID))
}

func scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	var (
		email, passwordHash, referralCode sql.NullString
		referredBy                        sql.NullInt64
		lastLoginAt                       sql.NullTime
	)

	err := row.Scan(
		&user.ID,
		&email,
		&user.Name,
		&passwordHash,
		&referralCode,
		&referredBy,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLoginAt,
	)
	if err != nil {
		return nil, err
	}

	user.Email = email.String
	user.PasswordHash = passwordHash.String
	user.ReferralCode = referralCode.String
	if referredBy.Valid {
		user.ReferredBy = &referredBy.Int64
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}

	return user, nil
}

func expectOneRow(result sql.Result, subject string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %w", subject, ErrNotFound)
	}

	return nil
}
