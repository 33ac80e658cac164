package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hail/internal/domain"
	"hail/internal/redis"
	"hail/internal/repository"
)

const (
	defaultPoolRadiusM = 1000.0
	poolCandidateLimit = 50
	poolJoinLockTTL    = 10 * time.Second
)

// PoolingService folds shareable ride requests together when their routes
// overlap closely enough.
type PoolingService struct {
	rideRepo  repository.RideRepository
	txRunner  repository.TxRunner
	lockStore redis.LockStoreInterface
	emitter   RoomEmitter
	radiusM   float64
	logger    *zap.Logger
}

// NewPoolingService creates a new PoolingService. radiusM <= 0 uses the
// default proximity threshold.
func NewPoolingService(
	rideRepo repository.RideRepository,
	txRunner repository.TxRunner,
	lockStore redis.LockStoreInterface,
	emitter RoomEmitter,
	radiusM float64,
	logger *zap.Logger,
) *PoolingService {
	if radiusM <= 0 {
		radiusM = defaultPoolRadiusM
	}
	return &PoolingService{
		rideRepo:  rideRepo,
		txRunner:  txRunner,
		lockStore: lockStore,
		emitter:   emitter,
		radiusM:   radiusM,
		logger:    logger,
	}
}

// TryJoin attempts to fold the passenger into an existing shareable ride of
// the same vehicle type whose pickup and drop both lie within the proximity
// threshold. Returns the joined ride, or nil when no compatible ride exists
// and the caller should create a fresh one.
func (s *PoolingService) TryJoin(ctx context.Context, passenger domain.RidePassenger, vehicleType domain.VehicleType, pickup, drop domain.Point) (*domain.RideRequest, error) {
	candidates, err := s.rideRepo.FindPoolCandidates(ctx, vehicleType, poolCandidateLimit)
	if err != nil {
		return nil, err
	}

	for _, cand := range candidates {
		if !s.routesOverlap(cand, pickup, drop) {
			continue
		}

		ride, err := s.join(ctx, cand.ID, passenger)
		if err != nil {
			// The candidate filled up or changed under us; try the next one.
			s.logger.Debug("pool join attempt failed",
				zap.String("ride_id", cand.ID),
				zap.String("passenger_id", passenger.ID),
				zap.Error(err))
			continue
		}
		return ride, nil
	}

	return nil, nil
}

func (s *PoolingService) routesOverlap(ride *domain.RideRequest, pickup, drop domain.Point) bool {
	return domain.HaversineMeters(ride.PickupLocation, pickup) <= s.radiusM &&
		domain.HaversineMeters(ride.DropLocation, drop) <= s.radiusM
}

// join performs the read-modify-write under the ride lock: re-read, verify
// capacity and state, append the passenger, and re-split every per-type
// per-passenger price.
func (s *PoolingService) join(ctx context.Context, rideID string, passenger domain.RidePassenger) (*domain.RideRequest, error) {
	locked, err := s.lockStore.AcquireRideLock(ctx, rideID, poolJoinLockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrRideConflict
	}
	defer func() {
		if err := s.lockStore.ReleaseRideLock(ctx, rideID); err != nil {
			s.logger.Warn("ride lock release failed", zap.String("ride_id", rideID), zap.Error(err))
		}
	}()

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusPendingPool && ride.Status != domain.RideStatusAccepted {
		return nil, ErrInvalidRideState
	}
	if !ride.Shareable {
		return nil, ErrInvalidRideState
	}
	if ride.CurrentPassengers >= ride.MaxPassengers {
		return nil, ErrRideFull
	}
	if ride.HasPassenger(passenger.ID) {
		return nil, ErrRideConflict
	}

	ride.Passengers = append(ride.Passengers, passenger)
	ride.CurrentPassengers = len(ride.Passengers)
	SplitPerPassenger(&ride.Fares, ride.CurrentPassengers)

	// An already-accepted ride carries a committed per-passenger price that
	// the new occupancy re-splits too. The driver is never reassigned.
	if ride.Status == domain.RideStatusAccepted && ride.FinalVehicleType != "" {
		if f, ok := ride.Fares.Get(ride.FinalVehicleType); ok {
			ride.FinalPrice = f.PerPassenger
		}
	}

	err = s.txRunner.WithinTx(ctx, func(st repository.Stores) error {
		return st.Rides.UpdatePool(ctx, ride)
	})
	if err != nil {
		return nil, err
	}

	s.announceJoin(ctx, ride, passenger)

	return ride, nil
}

func (s *PoolingService) announceJoin(ctx context.Context, ride *domain.RideRequest, joined domain.RidePassenger) {
	payload := map[string]any{
		"rideId":        ride.ID,
		"passengerName": joined.Name,
		"passengers":    ride.CurrentPassengers,
		"price":         ride.FinalPrice,
	}
	for _, p := range ride.Passengers {
		if p.ID == joined.ID {
			continue
		}
		if err := s.emitter.EmitToRoom(ctx, p.ID, EventPoolJoined, payload); err != nil {
			s.logger.Warn("pool join emit failed",
				zap.String("ride_id", ride.ID),
				zap.String("passenger_id", p.ID),
				zap.Error(err))
		}
	}
	if ride.DriverID != "" {
		if err := s.emitter.EmitToRoom(ctx, ride.DriverID, EventPoolJoined, payload); err != nil {
			s.logger.Warn("pool join emit failed",
				zap.String("ride_id", ride.ID),
				zap.String("driver_id", ride.DriverID),
				zap.Error(err))
		}
	}
}
