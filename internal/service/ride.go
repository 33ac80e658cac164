package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hail/internal/domain"
	"hail/internal/repository"
)

// DefaultRideTTL is how long a ride may stay pending before the sweeper
// fails it.
const DefaultRideTTL = 2 * time.Minute

// RideService orchestrates the ride lifecycle from request to settlement.
type RideService struct {
	rideRepo      repository.RideRepository
	driverRepo    repository.DriverRepository
	passengerRepo repository.PassengerRepository
	fareService   *FareService
	dispatch      *DispatchService
	pooling       *PoolingService
	wallet        *WalletService
	emitter       RoomEmitter
	rideTTL       time.Duration
	logger        *zap.Logger
}

// NewRideService creates a new RideService. rideTTL <= 0 uses the default
// pending expiry.
func NewRideService(
	rideRepo repository.RideRepository,
	driverRepo repository.DriverRepository,
	passengerRepo repository.PassengerRepository,
	fareService *FareService,
	dispatch *DispatchService,
	pooling *PoolingService,
	wallet *WalletService,
	emitter RoomEmitter,
	rideTTL time.Duration,
	logger *zap.Logger,
) *RideService {
	if rideTTL <= 0 {
		rideTTL = DefaultRideTTL
	}
	return &RideService{
		rideRepo:      rideRepo,
		driverRepo:    driverRepo,
		passengerRepo: passengerRepo,
		fareService:   fareService,
		dispatch:      dispatch,
		pooling:       pooling,
		wallet:        wallet,
		emitter:       emitter,
		rideTTL:       rideTTL,
		logger:        logger,
	}
}

// RequestRideInput contains the parameters for creating a ride request.
type RequestRideInput struct {
	PassengerID     string
	VehicleType     domain.VehicleType
	Pickup          domain.Point
	Drop            domain.Point
	PreferredGender domain.Gender
	PaymentMethod   domain.PaymentMethod
	Shareable       bool
}

// RequestRideResult is returned from Request. Joined reports whether the
// passenger was folded into an existing pooled ride instead of a new one
// being dispatched.
type RequestRideResult struct {
	Ride   *domain.RideRequest
	Joined bool
}

// Request creates a ride request, or joins an existing pooled one when the
// request is shareable and a compatible ride is nearby. New rides are quoted
// and broadcast to nearby drivers.
func (s *RideService) Request(ctx context.Context, in RequestRideInput) (*RequestRideResult, error) {
	if in.PassengerID == "" {
		return nil, ErrInvalidPassengerID
	}
	if !isValidLatitude(in.Pickup.Lat) || !isValidLongitude(in.Pickup.Lng) ||
		!isValidLatitude(in.Drop.Lat) || !isValidLongitude(in.Drop.Lng) {
		return nil, ErrInvalidLocation
	}
	if !in.VehicleType.IsValid() {
		return nil, ErrInvalidVehicleType
	}
	if in.Shareable && !in.VehicleType.IsConcrete() {
		// Pool seats are per concrete vehicle, the wildcard cannot share.
		return nil, ErrInvalidVehicleType
	}

	passenger, err := s.passengerRepo.GetByID(ctx, in.PassengerID)
	if err != nil {
		return nil, err
	}
	occupant := domain.RidePassenger{
		ID:       passenger.ID,
		Name:     passenger.Username,
		ImageURL: passenger.ProfileURL,
		Mobile:   passenger.MobileNumber,
	}

	if in.Shareable {
		joined, err := s.pooling.TryJoin(ctx, occupant, in.VehicleType, in.Pickup, in.Drop)
		if err != nil {
			return nil, err
		}
		if joined != nil {
			return &RequestRideResult{Ride: joined, Joined: true}, nil
		}
	}

	distanceKm := domain.HaversineMeters(in.Pickup, in.Drop) / 1000
	matrix, pct, err := s.fareService.Quote(ctx, distanceKm, in.VehicleType)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ride := &domain.RideRequest{
		ID:                uuid.New().String(),
		Passengers:        []domain.RidePassenger{occupant},
		VehicleType:       in.VehicleType,
		PickupLocation:    in.Pickup,
		DropLocation:      in.Drop,
		PreferredGender:   in.PreferredGender,
		DistanceKm:        distanceKm,
		Fares:             matrix,
		DiscountPct:       pct,
		Status:            domain.RideStatusPending,
		PaymentStatus:     domain.PaymentStatusPending,
		PaymentMethod:     in.PaymentMethod,
		Shareable:         in.Shareable,
		CurrentPassengers: 1,
		MaxPassengers:     1,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.rideTTL),
	}
	if in.Shareable {
		// Pooled rides wait in their own state so later shareable requests
		// can find them, with seats up to the vehicle's capacity.
		ride.Status = domain.RideStatusPendingPool
		ride.MaxPassengers = in.VehicleType.PoolCapacity()
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	if _, err := s.dispatch.Broadcast(ctx, ride); err != nil {
		// Nobody reachable right now. The ride stays pending until the
		// sweeper fails it.
		s.logger.Info("broadcast found no drivers",
			zap.String("ride_id", ride.ID),
			zap.Error(err))
	}

	return &RequestRideResult{Ride: ride}, nil
}

// Get returns a ride by ID.
func (s *RideService) Get(ctx context.Context, rideID string) (*domain.RideRequest, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	return s.rideRepo.GetByID(ctx, rideID)
}

// History returns a user's rides, newest first.
func (s *RideService) History(ctx context.Context, userID string, userType domain.UserType, limit int) ([]*domain.RideRequest, error) {
	return s.rideRepo.ListByUser(ctx, userID, userType, limit)
}

// Start moves an accepted ride into progress. Only the assigned driver may
// start it.
func (s *RideService) Start(ctx context.Context, rideID, driverID string) (*domain.RideRequest, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != driverID {
		return nil, ErrUnauthorized
	}

	ok, err := s.rideRepo.UpdateStatus(ctx, rideID, []domain.RideStatus{domain.RideStatusAccepted}, domain.RideStatusInProgress)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidRideState
	}
	ride.Status = domain.RideStatusInProgress

	payload := map[string]any{"rideId": ride.ID}
	for _, p := range ride.Passengers {
		s.emit(ctx, p.ID, EventRideStarted, payload)
	}
	return ride, nil
}

// Complete finishes a ride, settles payment and releases the driver. Only
// the assigned driver may complete it. A settlement failure leaves the ride
// completed with payment still pending; calling Complete again on such a
// ride retries only the settlement.
func (s *RideService) Complete(ctx context.Context, rideID, driverID string) (*domain.RideRequest, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != driverID {
		return nil, ErrUnauthorized
	}
	if ride.FinalPrice <= 0 {
		return nil, ErrInvalidAmount
	}

	if ride.Status == domain.RideStatusCompleted && ride.PaymentStatus == domain.PaymentStatusPending {
		// The trip already finished but an earlier settlement failed. Retry
		// the money movement without a second status transition.
		if err := s.wallet.Settle(ctx, ride); err != nil {
			return ride, err
		}
		return ride, nil
	}

	ok, err := s.rideRepo.UpdateStatus(ctx, rideID,
		[]domain.RideStatus{domain.RideStatusAccepted, domain.RideStatusInProgress},
		domain.RideStatusCompleted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidRideState
	}
	ride.Status = domain.RideStatusCompleted
	ride.CompletedAt = time.Now()

	settleErr := s.wallet.Settle(ctx, ride)
	if settleErr != nil {
		s.logger.Error("ride settlement failed",
			zap.String("ride_id", rideID),
			zap.String("driver_id", driverID),
			zap.Error(settleErr))
	}

	s.releaseDriver(ctx, driverID, rideID)

	payload := map[string]any{"rideId": ride.ID, "price": ride.FinalPrice}
	for _, p := range ride.Passengers {
		s.emit(ctx, p.ID, EventRideComplete, payload)
	}

	if settleErr != nil {
		return ride, settleErr
	}
	return ride, nil
}

// Cancel moves a non-terminal ride to cancelled. Any participant may cancel.
// An assigned driver is released exactly once.
func (s *RideService) Cancel(ctx context.Context, rideID, userID string) (*domain.RideRequest, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.HasPassenger(userID) && ride.DriverID != userID {
		return nil, ErrUnauthorized
	}

	ok, err := s.rideRepo.UpdateStatus(ctx, rideID,
		[]domain.RideStatus{
			domain.RideStatusPending,
			domain.RideStatusPendingPool,
			domain.RideStatusAccepted,
			domain.RideStatusInProgress,
		},
		domain.RideStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidRideState
	}
	ride.Status = domain.RideStatusCancelled

	if ride.DriverID != "" {
		s.releaseDriver(ctx, ride.DriverID, rideID)
	}

	payload := map[string]any{"rideId": ride.ID, "cancelledBy": userID}
	for _, p := range ride.Passengers {
		if p.ID == userID {
			continue
		}
		s.emit(ctx, p.ID, EventRideCancel, payload)
	}
	if ride.DriverID != "" && ride.DriverID != userID {
		s.emit(ctx, ride.DriverID, EventRideCancel, payload)
	}
	return ride, nil
}

// LeaveFeedback attaches a one-time rating to a completed ride. Only a
// participant may rate; a passenger's rating also updates the driver's
// running average.
func (s *RideService) LeaveFeedback(ctx context.Context, rideID, userID string, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.Status != domain.RideStatusCompleted {
		return ErrInvalidRideState
	}
	isPassenger := ride.HasPassenger(userID)
	if !isPassenger && ride.DriverID != userID {
		return ErrUnauthorized
	}

	ok, err := s.rideRepo.SetFeedback(ctx, rideID, domain.Feedback{Rating: rating, Comment: comment})
	if err != nil {
		return err
	}
	if !ok {
		return ErrFeedbackExists
	}

	if isPassenger && ride.DriverID != "" {
		if err := s.driverRepo.RecordRating(ctx, ride.DriverID, rating); err != nil {
			s.logger.Warn("driver rating update failed",
				zap.String("ride_id", rideID),
				zap.String("driver_id", ride.DriverID),
				zap.Error(err))
		}
	}
	return nil
}

// releaseDriver clears the driver's binding to the ride. The conditional
// release makes repeated calls harmless.
func (s *RideService) releaseDriver(ctx context.Context, driverID, rideID string) {
	released, err := s.driverRepo.ReleaseCurrentRide(ctx, driverID, rideID)
	if err != nil {
		s.logger.Error("driver release failed",
			zap.String("ride_id", rideID),
			zap.String("driver_id", driverID),
			zap.Error(err))
		return
	}
	if !released {
		s.logger.Debug("driver already released",
			zap.String("ride_id", rideID),
			zap.String("driver_id", driverID))
	}
}

func (s *RideService) emit(ctx context.Context, room, event string, payload any) {
	if err := s.emitter.EmitToRoom(ctx, room, event, payload); err != nil {
		s.logger.Warn("event emit failed",
			zap.String("room", room),
			zap.String("event", event),
			zap.Error(err))
	}
}
