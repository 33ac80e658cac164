package service

import (
	"context"
	"errors"
	"time"

	"hail/internal/domain"
	"hail/internal/redis"
	"hail/internal/repository"
)

// WildcardFallback controls what happens when a wildcard request is accepted
// by a driver whose concrete vehicle type has no fare entry.
type WildcardFallback string

const (
	// WildcardFallbackReject refuses the acceptance.
	WildcardFallbackReject WildcardFallback = "reject"

	// WildcardFallbackAny falls back to the first priced entry in the matrix.
	WildcardFallbackAny WildcardFallback = "any"
)

// FareService computes fare quotes and resolves final prices.
type FareService struct {
	priceRepo     repository.PriceRepository
	discountRepo  repository.DiscountRepository
	discountCache redis.DiscountCacheInterface
	fallback      WildcardFallback
}

// NewFareService creates a new FareService.
func NewFareService(
	priceRepo repository.PriceRepository,
	discountRepo repository.DiscountRepository,
	discountCache redis.DiscountCacheInterface,
	fallback WildcardFallback,
) *FareService {
	if fallback == "" {
		fallback = WildcardFallbackReject
	}
	return &FareService{
		priceRepo:     priceRepo,
		discountRepo:  discountRepo,
		discountCache: discountCache,
		fallback:      fallback,
	}
}

// Quote computes the fare matrix for a ride of the given distance. The
// requested type may be the wildcard, in which case every concrete car type
// is quoted. Types with no configured rate get no entry; an entirely empty
// quote is an error.
func (s *FareService) Quote(ctx context.Context, distanceKm float64, requestedType domain.VehicleType) (domain.FareMatrix, float64, error) {
	var matrix domain.FareMatrix

	if distanceKm <= 0 {
		return matrix, 0, ErrInvalidDistance
	}
	if !requestedType.IsValid() {
		return matrix, 0, ErrInvalidVehicleType
	}

	types := requestedType.Expand()
	prices, err := s.priceRepo.List(ctx, types)
	if err != nil {
		return matrix, 0, err
	}
	if len(prices) == 0 {
		return matrix, 0, ErrNoPriceConfigured
	}

	pct := s.activeDiscountPct(ctx, time.Now())

	for _, p := range prices {
		base := p.PerKm * distanceKm
		discounted := base * (1 - pct/100)
		matrix.Set(p.VehicleType, domain.Fare{
			Base:         base,
			Discounted:   discounted,
			PerPassenger: discounted,
		})
	}

	return matrix, pct, nil
}

// SplitPerPassenger recomputes the per-passenger price of every entry for n
// occupants. Pool joins call this so earlier passengers see their share drop.
func SplitPerPassenger(matrix *domain.FareMatrix, n int) {
	if n < 1 {
		n = 1
	}
	for _, t := range matrix.Types() {
		f, _ := matrix.Get(t)
		f.PerPassenger = f.Discounted / float64(n)
		matrix.Set(t, f)
	}
}

// ResolveFinal picks the per-passenger price a driver's acceptance commits
// to. For wildcard requests the driver's own vehicle type is used; if that
// type has no entry the configured fallback applies.
func (s *FareService) ResolveFinal(ride *domain.RideRequest, driverType domain.VehicleType) (float64, domain.VehicleType, error) {
	lookup := ride.VehicleType
	if lookup == domain.VehicleCarAny {
		lookup = driverType
	}

	if f, ok := ride.Fares.Get(lookup); ok {
		return f.PerPassenger, lookup, nil
	}

	if ride.VehicleType == domain.VehicleCarAny && s.fallback == WildcardFallbackAny {
		for _, t := range ride.Fares.Types() {
			f, _ := ride.Fares.Get(t)
			return f.PerPassenger, t, nil
		}
	}

	return 0, "", ErrNoFareForVehicle
}

// activeDiscountPct returns the applicable discount percentage, zero when no
// discount is active. Reads go through the cache; a cache miss falls back to
// Postgres and repopulates it. Cache errors degrade to the database.
func (s *FareService) activeDiscountPct(ctx context.Context, now time.Time) float64 {
	if s.discountCache != nil {
		d, hit, err := s.discountCache.GetActiveDiscount(ctx)
		if err == nil && hit {
			if d != nil && d.ActiveAt(now) {
				return d.Percentage
			}
			return 0
		}
	}

	d, err := s.discountRepo.GetActive(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return 0
		}
		d = nil
	}

	if s.discountCache != nil {
		_ = s.discountCache.SetActiveDiscount(ctx, d)
	}

	if d != nil && d.ActiveAt(now) {
		return d.Percentage
	}
	return 0
}
