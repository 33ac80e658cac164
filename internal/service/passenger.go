package service

import (
	"context"

	"github.com/google/uuid"

	"hail/internal/domain"
	"hail/internal/redis"
	"hail/internal/repository"
)

// PassengerService handles passenger registration and nearby-driver lookup.
type PassengerService struct {
	passengerRepo repository.PassengerRepository
	driverRepo    repository.DriverRepository
	locationStore redis.LocationStoreInterface
	radiusM       float64
}

// NewPassengerService creates a new PassengerService. radiusM <= 0 uses the
// dispatch default.
func NewPassengerService(
	passengerRepo repository.PassengerRepository,
	driverRepo repository.DriverRepository,
	locationStore redis.LocationStoreInterface,
	radiusM float64,
) *PassengerService {
	if radiusM <= 0 {
		radiusM = defaultDispatchRadiusM
	}
	return &PassengerService{
		passengerRepo: passengerRepo,
		driverRepo:    driverRepo,
		locationStore: locationStore,
		radiusM:       radiusM,
	}
}

// RegisterPassengerInput contains the parameters for registering a passenger.
type RegisterPassengerInput struct {
	Username     string
	ProfileURL   string
	Gender       domain.Gender
	MobileNumber string
}

// Register creates a new passenger.
func (s *PassengerService) Register(ctx context.Context, in RegisterPassengerInput) (*domain.Passenger, error) {
	if in.Username == "" {
		return nil, ErrInvalidPassengerID
	}

	p := &domain.Passenger{
		ID:           uuid.New().String(),
		Username:     in.Username,
		ProfileURL:   in.ProfileURL,
		Gender:       in.Gender,
		MobileNumber: in.MobileNumber,
	}
	if err := s.passengerRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a passenger by ID.
func (s *PassengerService) Get(ctx context.Context, passengerID string) (*domain.Passenger, error) {
	if passengerID == "" {
		return nil, ErrInvalidPassengerID
	}
	return s.passengerRepo.GetByID(ctx, passengerID)
}

// NearbyDriver is one entry of a nearby-drivers lookup.
type NearbyDriver struct {
	DriverID    string             `json:"driverId"`
	VehicleType domain.VehicleType `json:"vehicleType"`
	Lat         float64            `json:"lat"`
	Lng         float64            `json:"lng"`
	DistanceM   float64            `json:"distanceM"`
}

// NearbyDrivers returns available drivers around a point, closest first per
// vehicle type. The wildcard expands to all car types.
func (s *PassengerService) NearbyDrivers(ctx context.Context, lat, lng float64, vehicleType domain.VehicleType) ([]NearbyDriver, error) {
	if !isValidLatitude(lat) || !isValidLongitude(lng) {
		return nil, ErrInvalidLocation
	}
	if !vehicleType.IsValid() {
		return nil, ErrInvalidVehicleType
	}

	locations, err := s.locationStore.FindNearby(ctx, lat, lng, s.radiusM, vehicleType.Expand())
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, nil
	}

	ids := make([]string, len(locations))
	for i, loc := range locations {
		ids[i] = loc.DriverID
	}
	drivers, err := s.driverRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	available := make(map[string]bool, len(drivers))
	for _, d := range drivers {
		available[d.ID] = d.IsAvailable && d.IsLocationOn
	}

	out := make([]NearbyDriver, 0, len(locations))
	for _, loc := range locations {
		if !available[loc.DriverID] {
			continue
		}
		out = append(out, NearbyDriver{
			DriverID:    loc.DriverID,
			VehicleType: loc.VehicleType,
			Lat:         loc.Lat,
			Lng:         loc.Lng,
			DistanceM:   loc.DistanceM,
		})
	}
	return out, nil
}

// UpdateLocation stores the passenger's last known position.
func (s *PassengerService) UpdateLocation(ctx context.Context, passengerID string, lat, lng float64) error {
	if passengerID == "" {
		return ErrInvalidPassengerID
	}
	if !isValidLatitude(lat) || !isValidLongitude(lng) {
		return ErrInvalidLocation
	}
	return s.passengerRepo.UpdateLocation(ctx, passengerID, domain.Point{Lat: lat, Lng: lng})
}
