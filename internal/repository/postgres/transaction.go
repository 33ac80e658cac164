package postgres

import (
	"context"
	"database/sql"

	"hail/internal/domain"
	"hail/internal/repository"
)

// TransactionRepository is a PostgreSQL implementation of
// repository.TransactionRepository. The ledger is append-only.
type TransactionRepository struct {
	q Querier
}

// NewTransactionRepository creates a new PostgreSQL transaction repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{q: db}
}

// NewTransactionRepositoryWithTx creates a transaction repository using a transaction.
func NewTransactionRepositoryWithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Create appends a ledger entry.
func (r *TransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, user_type, amount, kind, payment_method, ride_id, description, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID,
		t.UserID,
		t.UserType,
		t.Amount,
		t.Kind,
		t.PaymentMethod,
		nullString(t.RideID),
		t.Description,
		t.Timestamp,
	)
	return err
}

// ListByUser retrieves a user's ledger entries, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, userType domain.UserType, limit int) ([]*domain.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, user_type, amount, kind, payment_method, ride_id, description, ts
		FROM transactions
		WHERE user_id = $1 AND user_type = $2
		ORDER BY ts DESC LIMIT $3`,
		userID, userType, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var rideID sql.NullString
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.UserType, &t.Amount, &t.Kind,
			&t.PaymentMethod, &rideID, &t.Description, &t.Timestamp,
		); err != nil {
			return nil, err
		}
		t.RideID = rideID.String
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}

var _ repository.TransactionRepository = (*TransactionRepository)(nil)
