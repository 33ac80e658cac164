package repository

import (
	"context"
	"time"

	"hail/internal/domain"
)

// WithdrawalRepository defines the persistence operations for withdrawal
// requests.
type WithdrawalRepository interface {
	// Create persists a new pending request.
	Create(ctx context.Context, req *domain.WithdrawalRequest) error

	// GetByID retrieves a request by ID.
	GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error)

	// Resolve moves a request out of PENDING. Returns false if the request
	// was already processed.
	Resolve(ctx context.Context, id string, to domain.WithdrawalStatus, processedAt time.Time, transactionID, remarks string) (bool, error)

	// List retrieves requests, optionally filtered by driver and status.
	List(ctx context.Context, driverID string, status domain.WithdrawalStatus) ([]*domain.WithdrawalRequest, error)
}
