package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/visitka/visitka-backend/pkg/database"
)

// DBTX is the subset of *sql.DB and *sql.Tx used by repositories
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// Transactor runs a function inside a database transaction.
// Repositories called with the context passed to fn take part in the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type transactor struct {
	db *database.Postgres
}

// NewTransactor creates a transactor backed by PostgreSQL
func NewTransactor(db *database.Postgres) Transactor {
	return &transactor{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise.
// A nested call joins the outer transaction.
func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := t.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func txFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// conn returns the transaction bound to ctx, or the pool
func conn(ctx context.Context, db *database.Postgres) DBTX {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return db.DB
}

// withSavepoint runs fn so that its failure does not abort the enclosing transaction.
// name must be a constant identifier.
func withSavepoint(ctx context.Context, db *database.Postgres, name string, fn func(q DBTX) error) error {
	tx, ok := txFromContext(ctx)
	if !ok {
		return fn(db.DB)
	}

	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	if err := fn(tx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to rollback to savepoint: %w", rbErr))
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}

	return nil
}
