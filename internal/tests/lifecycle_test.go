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

// lifecycleFixture wires the full ride orchestration stack over in-memory
// stores, close to how cmd/server assembles it.
type lifecycleFixture struct {
	rideRepo      *MockRideRepository
	driverRepo    *MockDriverRepository
	passengerRepo *MockPassengerRepository
	txnRepo       *MockTransactionRepository
	priceRepo     *MockPriceRepository
	locationStore *MockLocationStore
	emitter       *MockEmitter
	notifier      *MockNotifier
	svc           *service.RideService
}

func newLifecycleFixture() *lifecycleFixture {
	f := &lifecycleFixture{
		rideRepo:      NewMockRideRepository(),
		driverRepo:    NewMockDriverRepository(),
		passengerRepo: NewMockPassengerRepository(),
		txnRepo:       NewMockTransactionRepository(),
		priceRepo:     NewMockPriceRepository(),
		locationStore: NewMockLocationStore(),
		emitter:       NewMockEmitter(),
		notifier:      NewMockNotifier(),
	}
	f.priceRepo.SetRate(domain.VehicleBike, 10)
	f.priceRepo.SetRate(domain.VehicleCarSedan, 20)

	txRunner := NewMockTxRunner(repository.Stores{
		Rides:        f.rideRepo,
		Drivers:      f.driverRepo,
		Passengers:   f.passengerRepo,
		Transactions: f.txnRepo,
	})
	logger := zap.NewNop()
	fareService := service.NewFareService(f.priceRepo, NewMockDiscountRepository(), nil, service.WildcardFallbackReject)
	dispatch := service.NewDispatchService(f.rideRepo, f.driverRepo, txRunner, f.locationStore,
		fareService, f.emitter, f.notifier, 2000, logger)
	pooling := service.NewPoolingService(f.rideRepo, txRunner, NewMockLockStore(), f.emitter, 1000, logger)
	wallet := service.NewWalletService(txRunner, f.driverRepo, f.passengerRepo,
		f.txnRepo, f.locationStore, f.notifier, logger)
	f.svc = service.NewRideService(f.rideRepo, f.driverRepo, f.passengerRepo,
		fareService, dispatch, pooling, wallet, f.emitter, 2*time.Minute, logger)
	return f
}

// acceptedRide seeds a ride already assigned to driver d-1 with passenger
// p-1 aboard, bypassing the dispatch race.
func (f *lifecycleFixture) acceptedRide(status domain.RideStatus) *domain.RideRequest {
	ride := &domain.RideRequest{
		ID:                "ride-1",
		Passengers:        []domain.RidePassenger{{ID: "p-1", Name: "Asha"}},
		VehicleType:       domain.VehicleCarSedan,
		Status:            status,
		DriverID:          "d-1",
		FinalPrice:        120,
		FinalVehicleType:  domain.VehicleCarSedan,
		PaymentMethod:     domain.PaymentMethodWallet,
		PaymentStatus:     domain.PaymentStatusPending,
		CurrentPassengers: 1,
		MaxPassengers:     1,
	}
	f.rideRepo.AddRide(ride)
	f.passengerRepo.AddPassenger(&domain.Passenger{ID: "p-1", Username: "Asha", WalletBalance: 1000})
	f.driverRepo.AddDriver(&domain.Driver{
		ID: "d-1", VehicleType: domain.VehicleCarSedan,
		CurrentRideID: "ride-1", WalletBalance: 500,
	})
	return ride
}

func TestLifecycle_RequestCreatesAndBroadcasts(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.passengerRepo.AddPassenger(&domain.Passenger{ID: "p-1", Username: "Asha"})
	f.driverRepo.AddDriver(&domain.Driver{
		ID: "d-1", VehicleType: domain.VehicleBike,
		IsAvailable: true, IsLocationOn: true,
	})
	_ = f.locationStore.UpdateLocation(context.Background(), "d-1", domain.VehicleBike, 12.97, 77.59)

	before := time.Now()
	result, err := f.svc.Request(context.Background(), service.RequestRideInput{
		PassengerID:   "p-1",
		VehicleType:   domain.VehicleBike,
		Pickup:        domain.Point{Lat: 12.97, Lng: 77.59},
		Drop:          domain.Point{Lat: 12.99, Lng: 77.61},
		PaymentMethod: domain.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Joined {
		t.Error("a non-shareable request must never join a pool")
	}

	ride := result.Ride
	if ride.Status != domain.RideStatusPending || ride.MaxPassengers != 1 {
		t.Errorf("unexpected ride shape: %s max=%d", ride.Status, ride.MaxPassengers)
	}
	if ride.ExpiresAt.Before(before.Add(time.Minute)) {
		t.Error("pending deadline was not stamped")
	}
	if fare, ok := ride.Fares.Get(domain.VehicleBike); !ok || fare.Base <= 0 {
		t.Error("expected a quoted bike fare on the ride")
	}
	if offers := f.emitter.EventsFor("d-1"); len(offers) != 1 || offers[0].Event != service.EventRideOffer {
		t.Errorf("expected one offer for the nearby driver, got %v", offers)
	}
}

func TestLifecycle_RequestSurvivesEmptyBroadcast(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.passengerRepo.AddPassenger(&domain.Passenger{ID: "p-1"})

	result, err := f.svc.Request(context.Background(), service.RequestRideInput{
		PassengerID:   "p-1",
		VehicleType:   domain.VehicleBike,
		Pickup:        domain.Point{Lat: 12.97, Lng: 77.59},
		Drop:          domain.Point{Lat: 12.99, Lng: 77.61},
		PaymentMethod: domain.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("no drivers around must not fail the request, got %v", err)
	}
	if stored := f.rideRepo.GetRide(result.Ride.ID); stored == nil || stored.Status != domain.RideStatusPending {
		t.Error("ride must stay pending for the sweeper")
	}
}

func TestLifecycle_RequestShareableWildcardRejected(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.passengerRepo.AddPassenger(&domain.Passenger{ID: "p-1"})

	_, err := f.svc.Request(context.Background(), service.RequestRideInput{
		PassengerID:   "p-1",
		VehicleType:   domain.VehicleCarAny,
		Pickup:        domain.Point{Lat: 12.97, Lng: 77.59},
		Drop:          domain.Point{Lat: 12.99, Lng: 77.61},
		PaymentMethod: domain.PaymentMethodWallet,
		Shareable:     true,
	})
	if !errors.Is(err, service.ErrInvalidVehicleType) {
		t.Fatalf("expected ErrInvalidVehicleType, got %v", err)
	}
}

func TestLifecycle_RequestShareableJoinsPool(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.passengerRepo.AddPassenger(&domain.Passenger{ID: "p-2", Username: "Ravi"})
	open := &domain.RideRequest{
		ID:                "ride-open",
		Passengers:        []domain.RidePassenger{{ID: "p-1", Name: "Asha"}},
		VehicleType:       domain.VehicleCarSedan,
		PickupLocation:    domain.Point{Lat: 12.97, Lng: 77.59},
		DropLocation:      domain.Point{Lat: 12.99, Lng: 77.61},
		Status:            domain.RideStatusPendingPool,
		Shareable:         true,
		CurrentPassengers: 1,
		MaxPassengers:     4,
	}
	open.Fares.Set(domain.VehicleCarSedan, domain.Fare{Base: 100, Discounted: 100, PerPassenger: 100})
	f.rideRepo.AddRide(open)

	result, err := f.svc.Request(context.Background(), service.RequestRideInput{
		PassengerID:   "p-2",
		VehicleType:   domain.VehicleCarSedan,
		Pickup:        domain.Point{Lat: 12.971, Lng: 77.591},
		Drop:          domain.Point{Lat: 12.991, Lng: 77.611},
		PaymentMethod: domain.PaymentMethodWallet,
		Shareable:     true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Joined || result.Ride.ID != "ride-open" {
		t.Fatalf("expected to join ride-open, got joined=%v ride=%s", result.Joined, result.Ride.ID)
	}
}

func TestLifecycle_RequestShareableOpensPool(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.passengerRepo.AddPassenger(&domain.Passenger{ID: "p-1", Username: "Asha"})

	result, err := f.svc.Request(context.Background(), service.RequestRideInput{
		PassengerID:   "p-1",
		VehicleType:   domain.VehicleCarSedan,
		Pickup:        domain.Point{Lat: 12.97, Lng: 77.59},
		Drop:          domain.Point{Lat: 12.99, Lng: 77.61},
		PaymentMethod: domain.PaymentMethodWallet,
		Shareable:     true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Joined {
		t.Fatal("with no open pool the request must create a fresh ride")
	}
	if result.Ride.Status != domain.RideStatusPendingPool {
		t.Errorf("expected a pooled ride to wait in PENDING_POOL, got %s", result.Ride.Status)
	}
	if result.Ride.MaxPassengers != domain.VehicleCarSedan.PoolCapacity() {
		t.Errorf("expected seats up to capacity, got %d", result.Ride.MaxPassengers)
	}

	// The open pool is discoverable by the next shareable request.
	f.passengerRepo.AddPassenger(&domain.Passenger{ID: "p-2", Username: "Ravi"})
	second, err := f.svc.Request(context.Background(), service.RequestRideInput{
		PassengerID:   "p-2",
		VehicleType:   domain.VehicleCarSedan,
		Pickup:        domain.Point{Lat: 12.971, Lng: 77.591},
		Drop:          domain.Point{Lat: 12.991, Lng: 77.611},
		PaymentMethod: domain.PaymentMethodWallet,
		Shareable:     true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Joined || second.Ride.ID != result.Ride.ID {
		t.Fatalf("expected the second passenger folded into the open pool, got joined=%v", second.Joined)
	}
}

func TestLifecycle_RequestInvalidCoordinates(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.passengerRepo.AddPassenger(&domain.Passenger{ID: "p-1"})

	_, err := f.svc.Request(context.Background(), service.RequestRideInput{
		PassengerID:   "p-1",
		VehicleType:   domain.VehicleBike,
		Pickup:        domain.Point{Lat: 123.0, Lng: 77.59},
		Drop:          domain.Point{Lat: 12.99, Lng: 77.61},
		PaymentMethod: domain.PaymentMethodWallet,
	})
	if !errors.Is(err, service.ErrInvalidLocation) {
		t.Fatalf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestLifecycle_StartByAssignedDriver(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.acceptedRide(domain.RideStatusAccepted)

	ride, err := f.svc.Start(context.Background(), "ride-1", "d-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusInProgress {
		t.Errorf("expected in progress, got %s", ride.Status)
	}
	if events := f.emitter.EventsFor("p-1"); len(events) != 1 || events[0].Event != service.EventRideStarted {
		t.Errorf("expected a start event for the passenger, got %v", events)
	}
}

func TestLifecycle_StartByStrangerRejected(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.acceptedRide(domain.RideStatusAccepted)

	if _, err := f.svc.Start(context.Background(), "ride-1", "d-other"); !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLifecycle_StartPendingRideRejected(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	ride := f.acceptedRide(domain.RideStatusPending)
	_ = ride

	if _, err := f.svc.Start(context.Background(), "ride-1", "d-1"); !errors.Is(err, service.ErrInvalidRideState) {
		t.Fatalf("expected ErrInvalidRideState, got %v", err)
	}
}

func TestLifecycle_CompleteSettlesAndReleasesDriver(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.acceptedRide(domain.RideStatusInProgress)

	ride, err := f.svc.Complete(context.Background(), "ride-1", "d-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusCompleted || ride.CompletedAt.IsZero() {
		t.Errorf("expected a completed ride, got %s", ride.Status)
	}
	if ride.PaymentStatus != domain.PaymentStatusCompleted {
		t.Error("expected settlement to complete payment")
	}
	if got := f.passengerRepo.GetPassenger("p-1").WalletBalance; got != 880 {
		t.Errorf("expected passenger debited 120, got balance %v", got)
	}
	if d := f.driverRepo.GetDriver("d-1"); d.CurrentRideID != "" || !d.IsAvailable {
		t.Error("driver must be released after completion")
	}
	if events := f.emitter.EventsFor("p-1"); len(events) != 1 || events[0].Event != service.EventRideComplete {
		t.Errorf("expected a completion event, got %v", events)
	}
}

func TestLifecycle_CompleteWithFailedSettlementStaysRetryable(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.acceptedRide(domain.RideStatusInProgress)
	broke := f.passengerRepo.GetPassenger("p-1")
	broke.WalletBalance = 5
	f.passengerRepo.AddPassenger(broke)

	ride, err := f.svc.Complete(context.Background(), "ride-1", "d-1")
	if !errors.Is(err, service.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if ride.Status != domain.RideStatusCompleted {
		t.Error("the trip itself is over regardless of payment")
	}
	if ride.PaymentStatus != domain.PaymentStatusPending {
		t.Error("payment must stay pending for a retry")
	}
	if d := f.driverRepo.GetDriver("d-1"); d.CurrentRideID != "" {
		t.Error("driver must be released even when settlement fails")
	}

	// Once the passenger tops up, completing again retries only the
	// settlement instead of tripping over the status transition.
	topped := f.passengerRepo.GetPassenger("p-1")
	topped.WalletBalance = 500
	f.passengerRepo.AddPassenger(topped)

	retried, err := f.svc.Complete(context.Background(), "ride-1", "d-1")
	if err != nil {
		t.Fatalf("settlement retry failed: %v", err)
	}
	if retried.PaymentStatus != domain.PaymentStatusCompleted {
		t.Error("expected the retried settlement to complete payment")
	}
	if got := f.passengerRepo.GetPassenger("p-1").WalletBalance; got != 380 {
		t.Errorf("expected the passenger debited exactly once, got balance %v", got)
	}
	if len(f.txnRepo.Entries()) != 2 {
		t.Errorf("expected one debit and one credit ledger entry, got %d", len(f.txnRepo.Entries()))
	}
}

func TestLifecycle_CompleteTwiceConflicts(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.acceptedRide(domain.RideStatusInProgress)

	if _, err := f.svc.Complete(context.Background(), "ride-1", "d-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Complete(context.Background(), "ride-1", "d-1"); !errors.Is(err, service.ErrInvalidRideState) {
		t.Fatalf("expected ErrInvalidRideState on the second completion, got %v", err)
	}
}

func TestLifecycle_CancelByPassenger(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.acceptedRide(domain.RideStatusAccepted)

	ride, err := f.svc.Cancel(context.Background(), "ride-1", "p-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusCancelled {
		t.Errorf("expected cancelled, got %s", ride.Status)
	}
	if d := f.driverRepo.GetDriver("d-1"); d.CurrentRideID != "" {
		t.Error("driver must be released on cancellation")
	}
	if events := f.emitter.EventsFor("d-1"); len(events) != 1 || events[0].Event != service.EventRideCancel {
		t.Errorf("expected the driver to hear the cancellation, got %v", events)
	}
	if len(f.emitter.EventsFor("p-1")) != 0 {
		t.Error("the canceller should not be notified of their own action")
	}
}

func TestLifecycle_CancelByStrangerRejected(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.acceptedRide(domain.RideStatusAccepted)

	if _, err := f.svc.Cancel(context.Background(), "ride-1", "nobody"); !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLifecycle_CancelCompletedRideRejected(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.acceptedRide(domain.RideStatusCompleted)

	if _, err := f.svc.Cancel(context.Background(), "ride-1", "p-1"); !errors.Is(err, service.ErrInvalidRideState) {
		t.Fatalf("terminal rides must not regress, got %v", err)
	}
}

func TestLifecycle_FeedbackUpdatesDriverRating(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.acceptedRide(domain.RideStatusCompleted)

	if err := f.svc.LeaveFeedback(context.Background(), "ride-1", "p-1", 4, "smooth ride"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored := f.rideRepo.GetRide("ride-1")
	if stored.Feedback == nil || stored.Feedback.Rating != 4 {
		t.Fatalf("expected the feedback persisted, got %+v", stored.Feedback)
	}
	if d := f.driverRepo.GetDriver("d-1"); d.AverageRating != 4 {
		t.Errorf("expected driver average 4, got %v", d.AverageRating)
	}
}

func TestLifecycle_FeedbackOnlyOnce(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.acceptedRide(domain.RideStatusCompleted)

	if err := f.svc.LeaveFeedback(context.Background(), "ride-1", "p-1", 4, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.svc.LeaveFeedback(context.Background(), "ride-1", "p-1", 5, ""); !errors.Is(err, service.ErrFeedbackExists) {
		t.Fatalf("expected ErrFeedbackExists, got %v", err)
	}
}

func TestLifecycle_FeedbackRequiresCompletion(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.acceptedRide(domain.RideStatusInProgress)

	if err := f.svc.LeaveFeedback(context.Background(), "ride-1", "p-1", 4, ""); !errors.Is(err, service.ErrInvalidRideState) {
		t.Fatalf("expected ErrInvalidRideState, got %v", err)
	}
}

func TestLifecycle_DriverFeedbackSkipsRating(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.acceptedRide(domain.RideStatusCompleted)

	if err := f.svc.LeaveFeedback(context.Background(), "ride-1", "d-1", 5, "polite passenger"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := f.driverRepo.GetDriver("d-1"); d.AverageRating != 0 {
		t.Error("a driver rating a passenger must not move the driver's own average")
	}
}

func TestLifecycle_InvalidRating(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture()
	f.acceptedRide(domain.RideStatusCompleted)

	for _, rating := range []int{0, 6, -1} {
		if err := f.svc.LeaveFeedback(context.Background(), "ride-1", "p-1", rating, ""); !errors.Is(err, service.ErrInvalidRating) {
			t.Fatalf("rating %d: expected ErrInvalidRating, got %v", rating, err)
		}
	}
}
