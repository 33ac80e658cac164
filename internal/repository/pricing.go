package repository

import (
	"context"

	"hail/internal/domain"
)

// PriceRepository defines the persistence operations for per-km rates.
type PriceRepository interface {
	// Upsert creates or replaces the rate for a vehicle type.
	Upsert(ctx context.Context, price domain.Price) error

	// Get retrieves the rate for one vehicle type.
	Get(ctx context.Context, vehicleType domain.VehicleType) (domain.Price, error)

	// List retrieves the rates for the given types. Types with no rate set
	// are omitted.
	List(ctx context.Context, vehicleTypes []domain.VehicleType) ([]domain.Price, error)
}

// DiscountRepository defines the persistence operations for discounts.
type DiscountRepository interface {
	// Activate stores a new discount as the single active one, deactivating
	// all others atomically.
	Activate(ctx context.Context, discount *domain.Discount) error

	// GetActive returns the currently active discount, or ErrNotFound.
	GetActive(ctx context.Context) (*domain.Discount, error)
}
