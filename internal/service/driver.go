package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hail/internal/domain"
	"hail/internal/redis"
	"hail/internal/repository"
)

// DriverService handles driver registration, availability and location
// reporting. Location truth for dispatch lives in the geo index; Postgres
// keeps the last reported point for restart recovery.
type DriverService struct {
	driverRepo    repository.DriverRepository
	rideRepo      repository.RideRepository
	locationStore redis.LocationStoreInterface
	logger        *zap.Logger
}

// NewDriverService creates a new DriverService.
func NewDriverService(
	driverRepo repository.DriverRepository,
	rideRepo repository.RideRepository,
	locationStore redis.LocationStoreInterface,
	logger *zap.Logger,
) *DriverService {
	return &DriverService{
		driverRepo:    driverRepo,
		rideRepo:      rideRepo,
		locationStore: locationStore,
		logger:        logger,
	}
}

// RegisterDriverInput contains the parameters for registering a driver.
type RegisterDriverInput struct {
	Username     string
	ProfileURL   string
	Gender       domain.Gender
	VehicleType  domain.VehicleType
	MobileNumber string
}

// Register creates a new driver. The vehicle type must be concrete.
func (s *DriverService) Register(ctx context.Context, in RegisterDriverInput) (*domain.Driver, error) {
	if in.Username == "" {
		return nil, ErrInvalidDriverID
	}
	if !in.VehicleType.IsConcrete() {
		return nil, ErrInvalidVehicleType
	}

	driver := &domain.Driver{
		ID:           uuid.New().String(),
		Username:     in.Username,
		ProfileURL:   in.ProfileURL,
		Gender:       in.Gender,
		VehicleType:  in.VehicleType,
		MobileNumber: in.MobileNumber,
	}
	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// Get returns a driver by ID.
func (s *DriverService) Get(ctx context.Context, driverID string) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.driverRepo.GetByID(ctx, driverID)
}

// SetAvailability flips the driver's availability. Going unavailable also
// drops them from the geo index so no new offers reach them.
func (s *DriverService) SetAvailability(ctx context.Context, driverID string, available bool) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}

	if err := s.driverRepo.UpdateAvailability(ctx, driverID, available); err != nil {
		return err
	}
	if !available {
		if err := s.locationStore.RemoveLocation(ctx, driverID); err != nil {
			s.logger.Warn("geo index removal failed",
				zap.String("driver_id", driverID),
				zap.Error(err))
		}
	}
	return nil
}

// ReportLocation records a driver's position in both stores and marks
// location reporting on. Only available drivers enter the geo index.
func (s *DriverService) ReportLocation(ctx context.Context, driverID string, lat, lng float64) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if !isValidLatitude(lat) || !isValidLongitude(lng) {
		return ErrInvalidLocation
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return err
	}

	if err := s.driverRepo.UpdateLocation(ctx, driverID, domain.Point{Lat: lat, Lng: lng}, true); err != nil {
		return err
	}

	if driver.IsAvailable {
		if err := s.locationStore.UpdateLocation(ctx, driverID, driver.VehicleType, lat, lng); err != nil {
			return err
		}
	}
	return nil
}

// CurrentRide returns the driver's active ride, or ErrNotFound when they
// have none.
func (s *DriverService) CurrentRide(ctx context.Context, driverID string) (*domain.RideRequest, error) {
	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver.CurrentRideID == "" {
		return nil, repository.ErrNotFound
	}
	return s.rideRepo.GetByID(ctx, driver.CurrentRideID)
}
