package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"hail/internal/domain"
	"hail/internal/repository"
	"hail/internal/service"
)

type dispatchFixture struct {
	rideRepo      *MockRideRepository
	driverRepo    *MockDriverRepository
	locationStore *MockLocationStore
	emitter       *MockEmitter
	notifier      *MockNotifier
	svc           *service.DispatchService
}

func newDispatchFixture() *dispatchFixture {
	f := &dispatchFixture{
		rideRepo:      NewMockRideRepository(),
		driverRepo:    NewMockDriverRepository(),
		locationStore: NewMockLocationStore(),
		emitter:       NewMockEmitter(),
		notifier:      NewMockNotifier(),
	}
	txRunner := NewMockTxRunner(repository.Stores{Rides: f.rideRepo, Drivers: f.driverRepo})
	fareService := service.NewFareService(NewMockPriceRepository(), NewMockDiscountRepository(), nil, service.WildcardFallbackReject)
	f.svc = service.NewDispatchService(f.rideRepo, f.driverRepo, txRunner, f.locationStore,
		fareService, f.emitter, f.notifier, 2000, zap.NewNop())
	return f
}

func (f *dispatchFixture) addDriver(id string, vt domain.VehicleType, lat, lng float64) {
	f.driverRepo.AddDriver(&domain.Driver{
		ID:           id,
		Username:     "driver-" + id,
		VehicleType:  vt,
		IsAvailable:  true,
		IsLocationOn: true,
	})
	_ = f.locationStore.UpdateLocation(context.Background(), id, vt, lat, lng)
}

func pendingRide(id string, vt domain.VehicleType) *domain.RideRequest {
	ride := &domain.RideRequest{
		ID:                id,
		Passengers:        []domain.RidePassenger{{ID: "passenger-1", Name: "Asha"}},
		VehicleType:       vt,
		PickupLocation:    domain.Point{Lat: 12.97, Lng: 77.59},
		DropLocation:      domain.Point{Lat: 12.99, Lng: 77.61},
		DistanceKm:        3,
		Status:            domain.RideStatusPending,
		PaymentMethod:     domain.PaymentMethodWallet,
		CurrentPassengers: 1,
		MaxPassengers:     1,
		ExpiresAt:         time.Now().Add(2 * time.Minute),
	}
	for _, t := range vt.Expand() {
		ride.Fares.Set(t, domain.Fare{Base: 100, Discounted: 100, PerPassenger: 100})
	}
	return ride
}

func TestDispatch_BroadcastReachesEligibleDrivers(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	ride := pendingRide("ride-1", domain.VehicleBike)
	f.rideRepo.AddRide(ride)

	f.addDriver("near", domain.VehicleBike, 12.971, 77.591)
	f.addDriver("wrong-type", domain.VehicleAuto, 12.971, 77.591)
	f.addDriver("far", domain.VehicleBike, 13.2, 77.9)

	// Unavailable driver at the pickup point.
	f.driverRepo.AddDriver(&domain.Driver{
		ID: "offline", VehicleType: domain.VehicleBike, IsAvailable: false, IsLocationOn: true,
	})
	_ = f.locationStore.UpdateLocation(context.Background(), "offline", domain.VehicleBike, 12.97, 77.59)

	notified, err := f.svc.Broadcast(context.Background(), ride)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notified) != 1 || notified[0] != "near" {
		t.Fatalf("expected only the near bike driver, got %v", notified)
	}
	if len(f.emitter.EventsFor("near")) != 1 {
		t.Error("expected one offer emitted to the near driver")
	}
	stored := f.rideRepo.GetRide("ride-1")
	if len(stored.NotifiedDrivers) != 1 {
		t.Errorf("expected notified drivers recorded, got %v", stored.NotifiedDrivers)
	}
}

func TestDispatch_BroadcastGenderPreference(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	ride := pendingRide("ride-1", domain.VehicleBike)
	ride.PreferredGender = domain.GenderFemale
	f.rideRepo.AddRide(ride)

	f.driverRepo.AddDriver(&domain.Driver{
		ID: "d-f", VehicleType: domain.VehicleBike, Gender: domain.GenderFemale,
		IsAvailable: true, IsLocationOn: true,
	})
	f.driverRepo.AddDriver(&domain.Driver{
		ID: "d-m", VehicleType: domain.VehicleBike, Gender: domain.GenderMale,
		IsAvailable: true, IsLocationOn: true,
	})
	_ = f.locationStore.UpdateLocation(context.Background(), "d-f", domain.VehicleBike, 12.971, 77.591)
	_ = f.locationStore.UpdateLocation(context.Background(), "d-m", domain.VehicleBike, 12.971, 77.591)

	notified, err := f.svc.Broadcast(context.Background(), ride)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notified) != 1 || notified[0] != "d-f" {
		t.Fatalf("expected only the matching driver, got %v", notified)
	}
}

func TestDispatch_BroadcastSkipsFailedEmit(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	ride := pendingRide("ride-1", domain.VehicleBike)
	f.rideRepo.AddRide(ride)

	f.addDriver("ok-1", domain.VehicleBike, 12.971, 77.591)
	f.addDriver("broken", domain.VehicleBike, 12.971, 77.592)
	f.addDriver("ok-2", domain.VehicleBike, 12.971, 77.593)
	f.emitter.FailRoom["broken"] = errors.New("connection reset")

	notified, err := f.svc.Broadcast(context.Background(), ride)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notified) != 2 {
		t.Fatalf("one bad connection must not starve the fan-out, got %v", notified)
	}
	for _, id := range notified {
		if id == "broken" {
			t.Error("failed driver should not be recorded as notified")
		}
	}
}

func TestDispatch_BroadcastNoDrivers(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	ride := pendingRide("ride-1", domain.VehicleBike)
	f.rideRepo.AddRide(ride)

	if _, err := f.svc.Broadcast(context.Background(), ride); !errors.Is(err, service.ErrNoDriverAvailable) {
		t.Fatalf("expected ErrNoDriverAvailable, got %v", err)
	}
}

func TestDispatch_AcceptAssignsDriver(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	ride := pendingRide("ride-1", domain.VehicleBike)
	ride.NotifiedDrivers = []string{"d1", "d2"}
	f.rideRepo.AddRide(ride)
	f.addDriver("d1", domain.VehicleBike, 12.971, 77.591)
	f.addDriver("d2", domain.VehicleBike, 12.971, 77.592)

	result, err := f.svc.Accept(context.Background(), "d1", "ride-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FinalPrice != 100 {
		t.Errorf("expected final price 100, got %v", result.FinalPrice)
	}

	stored := f.rideRepo.GetRide("ride-1")
	if stored.Status != domain.RideStatusAccepted || stored.DriverID != "d1" {
		t.Errorf("expected accepted by d1, got %s/%s", stored.Status, stored.DriverID)
	}
	winner := f.driverRepo.GetDriver("d1")
	if winner.CurrentRideID != "ride-1" || winner.IsAvailable {
		t.Error("winner must be bound to the ride and unavailable")
	}

	// Passenger hears the acceptance, the loser hears ride:taken.
	if len(f.emitter.EventsFor("passenger-1")) == 0 {
		t.Error("expected acceptance event for the passenger")
	}
	taken := f.emitter.EventsFor("d2")
	if len(taken) != 1 || taken[0].Event != service.EventRideTaken {
		t.Errorf("expected ride taken event for the loser, got %v", taken)
	}
}

func TestDispatch_ConcurrentAcceptSingleWinner(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	ride := pendingRide("ride-1", domain.VehicleBike)
	f.rideRepo.AddRide(ride)

	const racers = 8
	for i := 0; i < racers; i++ {
		f.addDriver(driverID(i), domain.VehicleBike, 12.971, 77.591)
	}

	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Accept(context.Background(), driverID(i), "ride-1")
		}(i)
	}
	wg.Wait()

	winners, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, service.ErrRideConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	if conflicts != racers-1 {
		t.Fatalf("expected %d conflicts, got %d", racers-1, conflicts)
	}

	stored := f.rideRepo.GetRide("ride-1")
	bound := 0
	for i := 0; i < racers; i++ {
		if d := f.driverRepo.GetDriver(driverID(i)); d.CurrentRideID == "ride-1" {
			bound++
			if d.ID != stored.DriverID {
				t.Error("bound driver differs from the assigned one")
			}
		}
	}
	if bound != 1 {
		t.Fatalf("expected exactly one bound driver, got %d", bound)
	}
}

func driverID(i int) string {
	return "racer-" + string(rune('a'+i))
}

// gatedRideRepo holds every ride read at a barrier until all racers arrive,
// widening the window between the driver eligibility check and the commit to
// the width of a real database round-trip.
type gatedRideRepo struct {
	*MockRideRepository
	barrier *sync.WaitGroup
}

func (g *gatedRideRepo) GetByID(ctx context.Context, id string) (*domain.RideRequest, error) {
	g.barrier.Done()
	g.barrier.Wait()
	return g.MockRideRepository.GetByID(ctx, id)
}

func TestDispatch_ConcurrentAcceptSameDriverTwoRides(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	var barrier sync.WaitGroup
	barrier.Add(2)
	gated := &gatedRideRepo{MockRideRepository: rideRepo, barrier: &barrier}
	txRunner := NewMockTxRunner(repository.Stores{Rides: gated, Drivers: driverRepo})
	fareService := service.NewFareService(NewMockPriceRepository(), NewMockDiscountRepository(), nil, service.WildcardFallbackReject)
	svc := service.NewDispatchService(gated, driverRepo, txRunner, NewMockLocationStore(),
		fareService, NewMockEmitter(), NewMockNotifier(), 2000, zap.NewNop())

	rideRepo.AddRide(pendingRide("ride-a", domain.VehicleBike))
	rideRepo.AddRide(pendingRide("ride-b", domain.VehicleBike))
	driverRepo.AddDriver(&domain.Driver{
		ID: "d1", VehicleType: domain.VehicleBike, IsAvailable: true, IsLocationOn: true,
	})

	rideIDs := []string{"ride-a", "ride-b"}
	errs := make([]error, len(rideIDs))
	var wg sync.WaitGroup
	for i, rideID := range rideIDs {
		wg.Add(1)
		go func(i int, rideID string) {
			defer wg.Done()
			_, errs[i] = svc.Accept(context.Background(), "d1", rideID)
		}(i, rideID)
	}
	wg.Wait()

	winners := 0
	var wonRide string
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
			wonRide = rideIDs[i]
		case errors.Is(err, service.ErrDriverBusy):
		default:
			t.Fatalf("ride %s: unexpected error: %v", rideIDs[i], err)
		}
	}
	if winners != 1 {
		t.Fatalf("one driver must win at most one ride, got %d", winners)
	}

	if d := driverRepo.GetDriver("d1"); d.CurrentRideID != wonRide {
		t.Errorf("expected the driver bound to %s, got %q", wonRide, d.CurrentRideID)
	}
	for _, rideID := range rideIDs {
		stored := rideRepo.GetRide(rideID)
		if rideID == wonRide {
			if stored.Status != domain.RideStatusAccepted || stored.DriverID != "d1" {
				t.Errorf("expected %s accepted by d1, got %s/%q", rideID, stored.Status, stored.DriverID)
			}
			continue
		}
		if stored.Status != domain.RideStatusPending || stored.DriverID != "" {
			t.Errorf("the losing ride must stay pending and unassigned, got %s/%q", stored.Status, stored.DriverID)
		}
	}
}

func TestDispatch_AcceptBusyDriver(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	ride := pendingRide("ride-1", domain.VehicleBike)
	f.rideRepo.AddRide(ride)
	f.driverRepo.AddDriver(&domain.Driver{
		ID: "busy", VehicleType: domain.VehicleBike,
		IsAvailable: false, CurrentRideID: "other-ride",
	})

	if _, err := f.svc.Accept(context.Background(), "busy", "ride-1"); !errors.Is(err, service.ErrDriverBusy) {
		t.Fatalf("expected ErrDriverBusy, got %v", err)
	}
	if stored := f.rideRepo.GetRide("ride-1"); stored.Status != domain.RideStatusPending {
		t.Error("ride must stay pending after a refused acceptance")
	}
}

func TestDispatch_AcceptCancelledRideConflicts(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	ride := pendingRide("ride-1", domain.VehicleBike)
	ride.Status = domain.RideStatusCancelled
	f.rideRepo.AddRide(ride)
	f.addDriver("d1", domain.VehicleBike, 12.971, 77.591)

	if _, err := f.svc.Accept(context.Background(), "d1", "ride-1"); !errors.Is(err, service.ErrRideConflict) {
		t.Fatalf("expected ErrRideConflict, got %v", err)
	}
	if d := f.driverRepo.GetDriver("d1"); d.CurrentRideID != "" {
		t.Error("driver must not be bound after a lost acceptance")
	}
}
