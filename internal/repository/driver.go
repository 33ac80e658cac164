package repository

import (
	"context"

	"hail/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetByIDs retrieves several drivers in one query. Missing IDs are
	// silently omitted.
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Driver, error)

	// UpdateAvailability sets the availability flag.
	UpdateAvailability(ctx context.Context, id string, available bool) error

	// UpdateLocation stores the driver's reported position and whether
	// location reporting is on.
	UpdateLocation(ctx context.Context, id string, loc domain.Point, locationOn bool) error

	// UpdateContact stores the UPI and mobile destination used for payouts.
	UpdateContact(ctx context.Context, id, upiID, mobileNumber string) error

	// BindCurrentRide binds the driver to a ride and marks them unavailable,
	// but only if they are free and available. Returns false without change
	// when the driver already holds a ride or went offline, so concurrent
	// acceptances of different rides by one driver race cleanly.
	BindCurrentRide(ctx context.Context, id, rideID string) (bool, error)

	// ReleaseCurrentRide clears the driver's current ride and restores
	// availability, but only if they are still bound to that ride. Returns
	// false when already released, making the release idempotent.
	ReleaseCurrentRide(ctx context.Context, id, rideID string) (bool, error)

	// ForceOffline marks the driver unavailable with location reporting off.
	// Used when the wallet balance drops below the operating minimum.
	ForceOffline(ctx context.Context, id string) error

	// Debit decreases the wallet balance if funds suffice. Returns false
	// without change when the balance is short.
	Debit(ctx context.Context, id string, amount float64) (bool, error)

	// DebitAboveFloor decreases the wallet balance only if at least floor
	// remains afterwards. Returns false without change otherwise.
	DebitAboveFloor(ctx context.Context, id string, amount, floor float64) (bool, error)

	// Credit increases the wallet balance.
	Credit(ctx context.Context, id string, amount float64) error

	// RecordRating folds a new rating into the driver's running average.
	RecordRating(ctx context.Context, id string, rating int) error
}
