package tests

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"hail/internal/domain"
	"hail/internal/repository"
	"hail/internal/service"
)

type poolingFixture struct {
	rideRepo  *MockRideRepository
	lockStore *MockLockStore
	emitter   *MockEmitter
	svc       *service.PoolingService
}

func newPoolingFixture() *poolingFixture {
	f := &poolingFixture{
		rideRepo:  NewMockRideRepository(),
		lockStore: NewMockLockStore(),
		emitter:   NewMockEmitter(),
	}
	txRunner := NewMockTxRunner(repository.Stores{Rides: f.rideRepo})
	f.svc = service.NewPoolingService(f.rideRepo, txRunner, f.lockStore, f.emitter, 1000, zap.NewNop())
	return f
}

func shareableRide(id string, pickup, drop domain.Point) *domain.RideRequest {
	ride := &domain.RideRequest{
		ID:                id,
		Passengers:        []domain.RidePassenger{{ID: "p-1", Name: "Asha"}},
		VehicleType:       domain.VehicleCarSedan,
		PickupLocation:    pickup,
		DropLocation:      drop,
		DistanceKm:        5,
		Status:            domain.RideStatusPendingPool,
		Shareable:         true,
		CurrentPassengers: 1,
		MaxPassengers:     domain.VehicleCarSedan.PoolCapacity(),
		ExpiresAt:         time.Now().Add(2 * time.Minute),
	}
	ride.Fares.Set(domain.VehicleCarSedan, domain.Fare{Base: 200, Discounted: 180, PerPassenger: 180})
	return ride
}

var (
	poolPickup = domain.Point{Lat: 12.9700, Lng: 77.5900}
	poolDrop   = domain.Point{Lat: 13.0100, Lng: 77.6300}
)

func TestPooling_JoinNearbyRide(t *testing.T) {
	t.Parallel()

	f := newPoolingFixture()
	f.rideRepo.AddRide(shareableRide("ride-1", poolPickup, poolDrop))

	// A few hundred meters off both endpoints, well inside the threshold.
	joiner := domain.RidePassenger{ID: "p-2", Name: "Ravi"}
	ride, err := f.svc.TryJoin(context.Background(), joiner, domain.VehicleCarSedan,
		domain.Point{Lat: 12.9720, Lng: 77.5920},
		domain.Point{Lat: 13.0120, Lng: 77.6320})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride == nil {
		t.Fatal("expected to join the existing ride")
	}
	if ride.CurrentPassengers != 2 || !ride.HasPassenger("p-2") {
		t.Fatalf("expected both passengers aboard, got %d", ride.CurrentPassengers)
	}

	fare, _ := ride.Fares.Get(domain.VehicleCarSedan)
	if fare.PerPassenger != 90 {
		t.Errorf("expected per passenger price 90 after split, got %v", fare.PerPassenger)
	}
	if fare.Discounted != 180 {
		t.Errorf("splitting must not touch the total, got %v", fare.Discounted)
	}

	stored := f.rideRepo.GetRide("ride-1")
	if stored.CurrentPassengers != 2 {
		t.Error("pool membership was not persisted")
	}
	if events := f.emitter.EventsFor("p-1"); len(events) != 1 || events[0].Event != service.EventPoolJoined {
		t.Errorf("expected the incumbent passenger to hear the join, got %v", events)
	}
	if len(f.emitter.EventsFor("p-2")) != 0 {
		t.Error("the joiner should not be told about their own join")
	}
}

func TestPooling_DistantRouteNotJoined(t *testing.T) {
	t.Parallel()

	f := newPoolingFixture()
	f.rideRepo.AddRide(shareableRide("ride-1", poolPickup, poolDrop))

	// Pickup matches but the drop is kilometers away.
	ride, err := f.svc.TryJoin(context.Background(), domain.RidePassenger{ID: "p-2"},
		domain.VehicleCarSedan,
		domain.Point{Lat: 12.9702, Lng: 77.5902},
		domain.Point{Lat: 13.1000, Lng: 77.7000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride != nil {
		t.Fatal("expected no join for a diverging route")
	}
}

func TestPooling_FullRideSkipped(t *testing.T) {
	t.Parallel()

	f := newPoolingFixture()
	full := shareableRide("ride-full", poolPickup, poolDrop)
	full.Passengers = []domain.RidePassenger{{ID: "p-1"}, {ID: "p-2"}, {ID: "p-3"}, {ID: "p-4"}}
	full.CurrentPassengers = 4
	f.rideRepo.AddRide(full)

	ride, err := f.svc.TryJoin(context.Background(), domain.RidePassenger{ID: "p-5"},
		domain.VehicleCarSedan, poolPickup, poolDrop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride != nil {
		t.Fatal("a ride at capacity must not accept another passenger")
	}
}

func TestPooling_FullRideSkippedInFavorOfOpenOne(t *testing.T) {
	t.Parallel()

	f := newPoolingFixture()
	full := shareableRide("ride-full", poolPickup, poolDrop)
	full.Passengers = []domain.RidePassenger{{ID: "p-1"}, {ID: "p-2"}, {ID: "p-3"}, {ID: "p-4"}}
	full.CurrentPassengers = 4
	f.rideRepo.AddRide(full)
	f.rideRepo.AddRide(shareableRide("ride-open", poolPickup, poolDrop))

	ride, err := f.svc.TryJoin(context.Background(), domain.RidePassenger{ID: "p-5"},
		domain.VehicleCarSedan, poolPickup, poolDrop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride == nil || ride.ID != "ride-open" {
		t.Fatalf("expected the open ride, got %+v", ride)
	}
}

func TestPooling_AcceptedRideResplitsCommittedPrice(t *testing.T) {
	t.Parallel()

	f := newPoolingFixture()
	accepted := shareableRide("ride-1", poolPickup, poolDrop)
	accepted.Status = domain.RideStatusAccepted
	accepted.DriverID = "d-1"
	accepted.FinalVehicleType = domain.VehicleCarSedan
	accepted.FinalPrice = 180
	f.rideRepo.AddRide(accepted)

	ride, err := f.svc.TryJoin(context.Background(), domain.RidePassenger{ID: "p-2", Name: "Ravi"},
		domain.VehicleCarSedan, poolPickup, poolDrop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride == nil {
		t.Fatal("expected to join the accepted ride")
	}
	if ride.FinalPrice != 90 {
		t.Errorf("expected the committed price re-split to 90, got %v", ride.FinalPrice)
	}
	if ride.DriverID != "d-1" {
		t.Error("joining must not reassign the driver")
	}
	if events := f.emitter.EventsFor("d-1"); len(events) != 1 {
		t.Error("expected the driver to hear the join")
	}
}

func TestPooling_LockedRideSkipped(t *testing.T) {
	t.Parallel()

	f := newPoolingFixture()
	f.rideRepo.AddRide(shareableRide("ride-1", poolPickup, poolDrop))
	if ok, _ := f.lockStore.AcquireRideLock(context.Background(), "ride-1", time.Minute); !ok {
		t.Fatal("test setup: could not pre-lock the ride")
	}

	ride, err := f.svc.TryJoin(context.Background(), domain.RidePassenger{ID: "p-2"},
		domain.VehicleCarSedan, poolPickup, poolDrop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride != nil {
		t.Fatal("a ride locked by a concurrent join must be skipped")
	}
}

func TestPooling_DuplicatePassengerRejected(t *testing.T) {
	t.Parallel()

	f := newPoolingFixture()
	f.rideRepo.AddRide(shareableRide("ride-1", poolPickup, poolDrop))

	ride, err := f.svc.TryJoin(context.Background(), domain.RidePassenger{ID: "p-1"},
		domain.VehicleCarSedan, poolPickup, poolDrop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride != nil {
		t.Fatal("a passenger already aboard must not join twice")
	}
}
