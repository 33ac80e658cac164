package repository

import (
	"context"
	"time"

	"hail/internal/domain"
)

// RideRepository defines the persistence operations for ride requests.
//
// Status-changing methods are conditional updates: they report whether the
// row matched the expected current state, so concurrent writers race cleanly
// instead of clobbering each other.
type RideRepository interface {
	// Create persists a new ride request with its passengers and fare matrix.
	Create(ctx context.Context, ride *domain.RideRequest) error

	// GetByID retrieves a ride request by ID.
	GetByID(ctx context.Context, id string) (*domain.RideRequest, error)

	// ListByUser retrieves the ride history for a passenger or driver,
	// newest first.
	ListByUser(ctx context.Context, userID string, userType domain.UserType, limit int) ([]*domain.RideRequest, error)

	// AssignDriver atomically commits a driver acceptance: it moves the ride
	// from PENDING/PENDING_POOL to ACCEPTED and records the winning driver
	// and final fare. Returns false if the ride already left the pending
	// states.
	AssignDriver(ctx context.Context, rideID string, driver *domain.Driver, driverNumber string, finalPrice float64, finalType domain.VehicleType) (bool, error)

	// UpdateStatus moves the ride to a new status only if its current status
	// is one of the expected ones. Returns false if the condition failed.
	UpdateStatus(ctx context.Context, rideID string, from []domain.RideStatus, to domain.RideStatus) (bool, error)

	// UpdatePool persists a pooling join: passenger list, passenger count
	// and the re-split fare matrix, as one atomic write.
	UpdatePool(ctx context.Context, ride *domain.RideRequest) error

	// SetNotifiedDrivers records which drivers received the dispatch offer.
	SetNotifiedDrivers(ctx context.Context, rideID string, driverIDs []string) error

	// SetFeedback attaches feedback once. Returns false if the ride already
	// has feedback.
	SetFeedback(ctx context.Context, rideID string, fb domain.Feedback) (bool, error)

	// SetPaymentCompleted marks the ride as settled.
	SetPaymentCompleted(ctx context.Context, rideID string) error

	// FindExpired returns rides still pending past their expiry deadline.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.RideRequest, error)

	// FindPoolCandidates returns shareable rides of the given type that are
	// waiting in the pool or already accepted and still have seats.
	// Proximity filtering happens in the service.
	FindPoolCandidates(ctx context.Context, vehicleType domain.VehicleType, limit int) ([]*domain.RideRequest, error)
}
