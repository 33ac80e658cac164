package service

import (
	"context"

	"go.uber.org/zap"

	"hail/internal/domain"
	"hail/internal/redis"
	"hail/internal/repository"
)

const defaultDispatchRadiusM = 2000.0

// DispatchService broadcasts ride offers to nearby drivers and commits the
// first acceptance.
type DispatchService struct {
	rideRepo      repository.RideRepository
	driverRepo    repository.DriverRepository
	txRunner      repository.TxRunner
	locationStore redis.LocationStoreInterface
	fareService   *FareService
	emitter       RoomEmitter
	notifier      Notifier
	radiusM       float64
	logger        *zap.Logger
}

// NewDispatchService creates a new DispatchService. radiusM <= 0 uses the
// default broadcast radius.
func NewDispatchService(
	rideRepo repository.RideRepository,
	driverRepo repository.DriverRepository,
	txRunner repository.TxRunner,
	locationStore redis.LocationStoreInterface,
	fareService *FareService,
	emitter RoomEmitter,
	notifier Notifier,
	radiusM float64,
	logger *zap.Logger,
) *DispatchService {
	if radiusM <= 0 {
		radiusM = defaultDispatchRadiusM
	}
	return &DispatchService{
		rideRepo:      rideRepo,
		driverRepo:    driverRepo,
		txRunner:      txRunner,
		locationStore: locationStore,
		fareService:   fareService,
		emitter:       emitter,
		notifier:      notifier,
		radiusM:       radiusM,
		logger:        logger,
	}
}

// RideOffer is the payload emitted to each candidate driver.
type RideOffer struct {
	RideID          string       `json:"rideId"`
	Pickup          domain.Point `json:"pickup"`
	Drop            domain.Point `json:"drop"`
	DistanceKm      float64      `json:"distanceKm"`
	Price           float64      `json:"price"`
	PassengerName   string       `json:"passengerName"`
	PassengerImage  string       `json:"passengerImage"`
	PaymentMethod   string       `json:"paymentMethod"`
	DriverDistanceM float64      `json:"driverDistanceM"`
}

// Broadcast offers the ride to every eligible nearby driver. Returns the IDs
// of the drivers notified. Per-driver emit failures are logged and skipped so
// one bad connection cannot starve the rest of the fan-out.
func (s *DispatchService) Broadcast(ctx context.Context, ride *domain.RideRequest) ([]string, error) {
	types := ride.VehicleType.Expand()

	locations, err := s.locationStore.FindNearby(ctx, ride.PickupLocation.Lat, ride.PickupLocation.Lng, s.radiusM, types)
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, ErrNoDriverAvailable
	}

	ids := make([]string, 0, len(locations))
	distances := make(map[string]float64, len(locations))
	for _, loc := range locations {
		ids = append(ids, loc.DriverID)
		distances[loc.DriverID] = loc.DistanceM
	}

	drivers, err := s.driverRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var lead domain.RidePassenger
	if len(ride.Passengers) > 0 {
		lead = ride.Passengers[0]
	}

	notified := make([]string, 0, len(drivers))
	for _, d := range drivers {
		if !s.eligible(d, ride) {
			continue
		}

		fare, ok := ride.Fares.Get(d.VehicleType)
		if !ok {
			continue
		}

		offer := RideOffer{
			RideID:          ride.ID,
			Pickup:          ride.PickupLocation,
			Drop:            ride.DropLocation,
			DistanceKm:      ride.DistanceKm,
			Price:           fare.PerPassenger,
			PassengerName:   lead.Name,
			PassengerImage:  lead.ImageURL,
			PaymentMethod:   string(ride.PaymentMethod),
			DriverDistanceM: distances[d.ID],
		}
		if err := s.emitter.EmitToRoom(ctx, d.ID, EventRideOffer, offer); err != nil {
			s.logger.Warn("ride offer emit failed",
				zap.String("ride_id", ride.ID),
				zap.String("driver_id", d.ID),
				zap.Error(err))
			continue
		}
		notified = append(notified, d.ID)
	}

	if len(notified) == 0 {
		return nil, ErrNoDriverAvailable
	}

	if err := s.rideRepo.SetNotifiedDrivers(ctx, ride.ID, notified); err != nil {
		return nil, err
	}
	ride.NotifiedDrivers = notified

	return notified, nil
}

func (s *DispatchService) eligible(d *domain.Driver, ride *domain.RideRequest) bool {
	if !d.IsAvailable || !d.IsLocationOn || d.CurrentRideID != "" {
		return false
	}
	if ride.PreferredGender != "" && ride.PreferredGender != domain.GenderAny && d.Gender != ride.PreferredGender {
		return false
	}
	return true
}

// AcceptResult describes a committed acceptance.
type AcceptResult struct {
	Ride        *domain.RideRequest
	FinalPrice  float64
	VehicleType domain.VehicleType
}

// Accept commits a driver's acceptance of a pending ride. Exactly one caller
// wins per ride; the rest get ErrRideConflict. The ride assignment and the
// driver binding are both conditional updates committed in one transaction,
// so a driver racing to accept two rides at once wins at most one.
func (s *DispatchService) Accept(ctx context.Context, driverID, rideID string) (*AcceptResult, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver.CurrentRideID != "" {
		return nil, ErrDriverBusy
	}
	if !driver.IsAvailable {
		return nil, ErrDriverUnavailable
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	price, finalType, err := s.fareService.ResolveFinal(ride, driver.VehicleType)
	if err != nil {
		return nil, err
	}

	err = s.txRunner.WithinTx(ctx, func(st repository.Stores) error {
		won, err := st.Rides.AssignDriver(ctx, rideID, driver, driver.MobileNumber, price, finalType)
		if err != nil {
			return err
		}
		if !won {
			return ErrRideConflict
		}

		bound, err := st.Drivers.BindCurrentRide(ctx, driverID, rideID)
		if err != nil {
			return err
		}
		if !bound {
			// The driver took another ride between the eligibility check and
			// here. Rolling back releases the assignment for other candidates.
			return ErrDriverBusy
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ride.Status = domain.RideStatusAccepted
	ride.DriverID = driver.ID
	ride.DriverName = driver.Username
	ride.DriverImageURL = driver.ProfileURL
	ride.DriverNumber = driver.MobileNumber
	ride.FinalPrice = price
	ride.FinalVehicleType = finalType

	s.announceAcceptance(ctx, ride, driver)

	return &AcceptResult{Ride: ride, FinalPrice: price, VehicleType: finalType}, nil
}

// announceAcceptance tells the passengers their driver is coming and the
// losing candidates that the ride is gone. All emissions are best-effort.
func (s *DispatchService) announceAcceptance(ctx context.Context, ride *domain.RideRequest, driver *domain.Driver) {
	payload := map[string]any{
		"rideId":      ride.ID,
		"driverId":    driver.ID,
		"driverName":  driver.Username,
		"driverImage": driver.ProfileURL,
		"driverPhone": driver.MobileNumber,
		"vehicleType": string(ride.FinalVehicleType),
		"price":       ride.FinalPrice,
		"rating":      driver.AverageRating,
	}
	for _, p := range ride.Passengers {
		if err := s.emitter.EmitToRoom(ctx, p.ID, EventRideAccepted, payload); err != nil {
			s.logger.Warn("acceptance emit failed",
				zap.String("ride_id", ride.ID),
				zap.String("passenger_id", p.ID),
				zap.Error(err))
		}
		if s.notifier != nil {
			_ = s.notifier.Push(ctx, p.ID, "Driver on the way", driver.Username+" accepted your ride")
		}
	}

	taken := map[string]any{"rideId": ride.ID}
	for _, id := range ride.NotifiedDrivers {
		if id == driver.ID {
			continue
		}
		if err := s.emitter.EmitToRoom(ctx, id, EventRideTaken, taken); err != nil {
			s.logger.Debug("ride taken emit failed",
				zap.String("ride_id", ride.ID),
				zap.String("driver_id", id),
				zap.Error(err))
		}
	}
}
