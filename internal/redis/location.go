package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"hail/internal/domain"
)

// DriverLocation represents a driver's indexed position.
type DriverLocation struct {
	DriverID    string
	VehicleType domain.VehicleType
	Lat         float64
	Lng         float64
	DistanceM   float64
}

// LocationStore maintains the geospatial driver index in Redis. Locations
// are partitioned into one GEO key per concrete vehicle type so a query for
// an expanded wildcard is a union over a handful of keys.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

func locationKey(t domain.VehicleType) string {
	return fmt.Sprintf("drivers:locations:%s", t)
}

// UpdateLocation stores a driver's location using GEOADD under their vehicle
// type's key.
func (s *LocationStore) UpdateLocation(ctx context.Context, driverID string, vehicleType domain.VehicleType, lat, lng float64) error {
	return s.client.GeoAdd(ctx, locationKey(vehicleType), &redis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// FindNearby returns drivers within radiusM meters of the point, for every
// requested vehicle type. Results are distance-sorted per type; callers do
// their own tie-breaking across types.
func (s *LocationStore) FindNearby(ctx context.Context, lat, lng, radiusM float64, types []domain.VehicleType) ([]DriverLocation, error) {
	var locations []DriverLocation
	for _, t := range types {
		results, err := s.client.GeoRadius(ctx, locationKey(t), lng, lat, &redis.GeoRadiusQuery{
			Radius:    radiusM,
			Unit:      "m",
			WithCoord: true,
			WithDist:  true,
			Sort:      "ASC",
		}).Result()
		if err != nil {
			return nil, err
		}

		for _, r := range results {
			locations = append(locations, DriverLocation{
				DriverID:    r.Name,
				VehicleType: t,
				Lat:         r.Latitude,
				Lng:         r.Longitude,
				DistanceM:   r.Dist,
			})
		}
	}

	return locations, nil
}

// RemoveLocation removes a driver from the geo index. Every type key is
// cleared since the driver's registered type may have changed.
func (s *LocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	for _, t := range domain.ConcreteVehicleTypes {
		if err := s.client.ZRem(ctx, locationKey(t), driverID).Err(); err != nil {
			return err
		}
	}
	return nil
}
