package repository

import (
	"context"

	"hail/internal/domain"
)

// TransactionRepository defines the persistence operations for the ledger.
// Entries are append-only; there is no update or delete.
type TransactionRepository interface {
	// Create appends a ledger entry.
	Create(ctx context.Context, tx *domain.Transaction) error

	// ListByUser retrieves a user's ledger entries, newest first.
	ListByUser(ctx context.Context, userID string, userType domain.UserType, limit int) ([]*domain.Transaction, error)
}
