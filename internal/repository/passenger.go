package repository

import (
	"context"

	"hail/internal/domain"
)

// PassengerRepository defines the persistence operations for passengers.
type PassengerRepository interface {
	// Create adds a new passenger.
	Create(ctx context.Context, passenger *domain.Passenger) error

	// GetByID retrieves a passenger by ID.
	GetByID(ctx context.Context, id string) (*domain.Passenger, error)

	// GetAll retrieves all passengers. Used for discount announcements.
	GetAll(ctx context.Context) ([]*domain.Passenger, error)

	// UpdateLocation stores the passenger's last known position.
	UpdateLocation(ctx context.Context, id string, loc domain.Point) error

	// Debit decreases the wallet balance if funds suffice. Returns false
	// without change when the balance is short.
	Debit(ctx context.Context, id string, amount float64) (bool, error)

	// Credit increases the wallet balance.
	Credit(ctx context.Context, id string, amount float64) error
}
