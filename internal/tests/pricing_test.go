package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"hail/internal/domain"
	"hail/internal/repository"
	"hail/internal/service"
)

type pricingFixture struct {
	priceRepo     *MockPriceRepository
	discountRepo  *MockDiscountRepository
	passengerRepo *MockPassengerRepository
	cache         *MockDiscountCache
	emitter       *MockEmitter
	svc           *service.PricingService
}

func newPricingFixture() *pricingFixture {
	f := &pricingFixture{
		priceRepo:     NewMockPriceRepository(),
		discountRepo:  NewMockDiscountRepository(),
		passengerRepo: NewMockPassengerRepository(),
		cache:         NewMockDiscountCache(),
		emitter:       NewMockEmitter(),
	}
	f.svc = service.NewPricingService(f.priceRepo, f.discountRepo, f.passengerRepo,
		f.cache, f.emitter, zap.NewNop())
	return f
}

func TestPricing_SetAndGetPrice(t *testing.T) {
	t.Parallel()

	f := newPricingFixture()
	if err := f.svc.SetPrice(context.Background(), domain.VehicleBike, 12.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	price, err := f.svc.GetPrice(context.Background(), domain.VehicleBike)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.PerKm != 12.5 {
		t.Errorf("expected rate 12.5, got %v", price.PerKm)
	}

	// Replacing is an upsert, not a duplicate.
	if err := f.svc.SetPrice(context.Background(), domain.VehicleBike, 15); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	price, _ = f.svc.GetPrice(context.Background(), domain.VehicleBike)
	if price.PerKm != 15 {
		t.Errorf("expected the replaced rate 15, got %v", price.PerKm)
	}
}

func TestPricing_RejectsWildcardAndBadRates(t *testing.T) {
	t.Parallel()

	f := newPricingFixture()
	if err := f.svc.SetPrice(context.Background(), domain.VehicleCarAny, 10); !errors.Is(err, service.ErrInvalidVehicleType) {
		t.Fatalf("expected ErrInvalidVehicleType, got %v", err)
	}
	if err := f.svc.SetPrice(context.Background(), domain.VehicleBike, 0); !errors.Is(err, service.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestPricing_SetDiscountInvalidatesCacheAndAnnounces(t *testing.T) {
	t.Parallel()

	f := newPricingFixture()
	f.passengerRepo.AddPassenger(&domain.Passenger{ID: "p-1"})
	f.passengerRepo.AddPassenger(&domain.Passenger{ID: "p-2"})

	now := time.Now()
	d, err := f.svc.SetDiscount(context.Background(), "FESTIVE20", 20, now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Code != "FESTIVE20" || !d.IsActive {
		t.Errorf("unexpected discount: %+v", d)
	}
	if f.cache.InvalidateCallCount == 0 {
		t.Error("expected the cached discount invalidated")
	}
	for _, id := range []string{"p-1", "p-2"} {
		events := f.emitter.EventsFor(id)
		if len(events) != 1 || events[0].Event != service.EventDiscountNew {
			t.Errorf("expected a discount announcement for %s, got %v", id, events)
		}
	}
}

func TestPricing_SetDiscountValidation(t *testing.T) {
	t.Parallel()

	f := newPricingFixture()
	now := time.Now()
	cases := []struct {
		name string
		code string
		pct  float64
		from time.Time
		to   time.Time
	}{
		{"empty code", "", 20, now, now.Add(time.Hour)},
		{"zero percentage", "X", 0, now, now.Add(time.Hour)},
		{"full percentage", "X", 100, now, now.Add(time.Hour)},
		{"inverted window", "X", 20, now.Add(time.Hour), now},
	}
	for _, tc := range cases {
		if _, err := f.svc.SetDiscount(context.Background(), tc.code, tc.pct, tc.from, tc.to); !errors.Is(err, service.ErrInvalidDiscount) {
			t.Errorf("%s: expected ErrInvalidDiscount, got %v", tc.name, err)
		}
	}
}

func TestPricing_NewDiscountReplacesOld(t *testing.T) {
	t.Parallel()

	f := newPricingFixture()
	now := time.Now()
	if _, err := f.svc.SetDiscount(context.Background(), "OLD10", 10, now, now.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.SetDiscount(context.Background(), "NEW25", 25, now, now.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	active, err := f.svc.GetActiveDiscount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active.Code != "NEW25" {
		t.Errorf("expected the newest discount active, got %s", active.Code)
	}
}

func TestPricing_GetActiveDiscountServedFromCache(t *testing.T) {
	t.Parallel()

	f := newPricingFixture()
	now := time.Now()
	if _, err := f.svc.SetDiscount(context.Background(), "CACHED", 15, now, now.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// First read populates the cache, the second must not hit the store.
	if _, err := f.svc.GetActiveDiscount(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reads := f.discountRepo.GetActiveCallCount
	if _, err := f.svc.GetActiveDiscount(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.discountRepo.GetActiveCallCount != reads {
		t.Error("expected the second read served from the cache")
	}
}

func TestPricing_NoActiveDiscount(t *testing.T) {
	t.Parallel()

	f := newPricingFixture()
	if _, err := f.svc.GetActiveDiscount(context.Background()); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
