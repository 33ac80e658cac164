package redis

import (
	"context"
	"time"

	"hail/internal/domain"
)

// LocationStoreInterface defines the interface for the driver geo index.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, vehicleType domain.VehicleType, lat, lng float64) error
	FindNearby(ctx context.Context, lat, lng, radiusM float64, types []domain.VehicleType) ([]DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error)
	ReleaseRideLock(ctx context.Context, rideID string) error
}

// DiscountCacheInterface defines the interface for the active-discount cache.
type DiscountCacheInterface interface {
	GetActiveDiscount(ctx context.Context) (*domain.Discount, bool, error)
	SetActiveDiscount(ctx context.Context, d *domain.Discount) error
	InvalidateActiveDiscount(ctx context.Context) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ DiscountCacheInterface = (*CacheStore)(nil)
)
