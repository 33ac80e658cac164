package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"hail/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// WithinTx runs fn inside a transaction, committing on success and rolling
// back on error or panic. Settlement and withdrawal processing rely on this
// to keep multi-leg wallet mutations atomic.
func WithinTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// TxManager binds all PostgreSQL repositories to a shared transaction.
type TxManager struct {
	db *sql.DB
}

// NewTxManager creates a TxManager over the given database handle.
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx runs fn with transaction-scoped repositories, committing on
// success and rolling back on error or panic.
func (m *TxManager) WithinTx(ctx context.Context, fn func(repository.Stores) error) error {
	return WithinTx(ctx, m.db, func(tx *sql.Tx) error {
		return fn(repository.Stores{
			Rides:        NewRideRepositoryWithTx(tx),
			Drivers:      NewDriverRepositoryWithTx(tx),
			Passengers:   NewPassengerRepositoryWithTx(tx),
			Transactions: NewTransactionRepositoryWithTx(tx),
			Withdrawals:  NewWithdrawalRepositoryWithTx(tx),
		})
	})
}

var _ repository.TxRunner = (*TxManager)(nil)
