package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"hail/internal/domain"
	"hail/internal/redis"
	"hail/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	DebitCallCount        int32
	CreditCallCount       int32
	ForceOfflineCallCount int32

	// Error injection
	CreateError error
	CreditError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{drivers: make(map[string]*domain.Driver)}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

// GetDriver returns a driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *driver
	return &cp, nil
}

func (m *MockDriverRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Driver, 0, len(ids))
	for _, id := range ids {
		if d, ok := m.drivers[id]; ok {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockDriverRepository) UpdateAvailability(ctx context.Context, id string, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.IsAvailable = available
	return nil
}

func (m *MockDriverRepository) UpdateLocation(ctx context.Context, id string, loc domain.Point, locationOn bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.Location = loc
	d.IsLocationOn = locationOn
	return nil
}

func (m *MockDriverRepository) UpdateContact(ctx context.Context, id, upiID, mobileNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	if upiID != "" {
		d.UPIID = upiID
	}
	if mobileNumber != "" {
		d.MobileNumber = mobileNumber
	}
	return nil
}

func (m *MockDriverRepository) BindCurrentRide(ctx context.Context, id, rideID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if d.CurrentRideID != "" || !d.IsAvailable {
		return false, nil
	}
	d.CurrentRideID = rideID
	d.IsAvailable = false
	return true, nil
}

func (m *MockDriverRepository) ReleaseCurrentRide(ctx context.Context, id, rideID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if d.CurrentRideID != rideID {
		return false, nil
	}
	d.CurrentRideID = ""
	d.IsAvailable = true
	return true, nil
}

func (m *MockDriverRepository) ForceOffline(ctx context.Context, id string) error {
	atomic.AddInt32(&m.ForceOfflineCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.IsAvailable = false
	d.IsLocationOn = false
	return nil
}

func (m *MockDriverRepository) Debit(ctx context.Context, id string, amount float64) (bool, error) {
	atomic.AddInt32(&m.DebitCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if d.WalletBalance < amount {
		return false, nil
	}
	d.WalletBalance -= amount
	return true, nil
}

func (m *MockDriverRepository) DebitAboveFloor(ctx context.Context, id string, amount, floor float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if d.WalletBalance < amount+floor {
		return false, nil
	}
	d.WalletBalance -= amount
	return true, nil
}

func (m *MockDriverRepository) Credit(ctx context.Context, id string, amount float64) error {
	atomic.AddInt32(&m.CreditCallCount, 1)
	if m.CreditError != nil {
		return m.CreditError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.WalletBalance += amount
	return nil
}

func (m *MockDriverRepository) snapshot() func() {
	m.mu.Lock()
	saved := make(map[string]*domain.Driver, len(m.drivers))
	for id, d := range m.drivers {
		cp := *d
		saved[id] = &cp
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.drivers = saved
		m.mu.Unlock()
	}
}

func (m *MockDriverRepository) RecordRating(ctx context.Context, id string, rating int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	total := float64(d.TotalRides)
	d.AverageRating = (d.AverageRating*total + float64(rating)) / (total + 1)
	d.TotalRides++
	return nil
}

// ──────────────────────────────────────────────
// MOCK PASSENGER REPOSITORY
// ──────────────────────────────────────────────

// MockPassengerRepository is a mock implementation of PassengerRepository.
type MockPassengerRepository struct {
	mu         sync.RWMutex
	passengers map[string]*domain.Passenger

	DebitCallCount int32
}

// NewMockPassengerRepository creates a new mock passenger repository.
func NewMockPassengerRepository() *MockPassengerRepository {
	return &MockPassengerRepository{passengers: make(map[string]*domain.Passenger)}
}

// AddPassenger adds a passenger to the mock repository.
func (m *MockPassengerRepository) AddPassenger(p *domain.Passenger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passengers[p.ID] = p
}

// GetPassenger returns a passenger for test assertions.
func (m *MockPassengerRepository) GetPassenger(id string) *domain.Passenger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.passengers[id]
}

func (m *MockPassengerRepository) Create(ctx context.Context, p *domain.Passenger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passengers[p.ID] = p
	return nil
}

func (m *MockPassengerRepository) GetByID(ctx context.Context, id string) (*domain.Passenger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.passengers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPassengerRepository) GetAll(ctx context.Context) ([]*domain.Passenger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Passenger, 0, len(m.passengers))
	for _, p := range m.passengers {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockPassengerRepository) UpdateLocation(ctx context.Context, id string, loc domain.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passengers[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Location = loc
	return nil
}

func (m *MockPassengerRepository) Debit(ctx context.Context, id string, amount float64) (bool, error) {
	atomic.AddInt32(&m.DebitCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passengers[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if p.WalletBalance < amount {
		return false, nil
	}
	p.WalletBalance -= amount
	return true, nil
}

func (m *MockPassengerRepository) Credit(ctx context.Context, id string, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passengers[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.WalletBalance += amount
	return nil
}

func (m *MockPassengerRepository) snapshot() func() {
	m.mu.Lock()
	saved := make(map[string]*domain.Passenger, len(m.passengers))
	for id, p := range m.passengers {
		cp := *p
		saved[id] = &cp
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.passengers = saved
		m.mu.Unlock()
	}
}

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository. Conditional
// updates hold the map lock across check and write, matching the atomicity
// of the SQL they stand in for.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.RideRequest

	AssignDriverCallCount int32
	UpdateStatusCallCount int32
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{rides: make(map[string]*domain.RideRequest)}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.RideRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
}

// GetRide returns a snapshot of a ride for test assertions.
func (m *MockRideRepository) GetRide(id string) *domain.RideRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil
	}
	cp := *r
	cp.Passengers = append([]domain.RidePassenger(nil), r.Passengers...)
	cp.NotifiedDrivers = append([]string(nil), r.NotifiedDrivers...)
	return &cp
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.RideRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ride
	m.rides[ride.ID] = &cp
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.RideRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ride
	cp.Passengers = append([]domain.RidePassenger(nil), ride.Passengers...)
	return &cp, nil
}

func (m *MockRideRepository) ListByUser(ctx context.Context, userID string, userType domain.UserType, limit int) ([]*domain.RideRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.RideRequest
	for _, r := range m.rides {
		match := false
		if userType == domain.UserTypeDriver {
			match = r.DriverID == userID
		} else {
			match = r.HasPassenger(userID)
		}
		if match {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockRideRepository) AssignDriver(ctx context.Context, rideID string, driver *domain.Driver, driverNumber string, finalPrice float64, finalType domain.VehicleType) (bool, error) {
	atomic.AddInt32(&m.AssignDriverCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusPending && ride.Status != domain.RideStatusPendingPool {
		return false, nil
	}
	ride.Status = domain.RideStatusAccepted
	ride.DriverID = driver.ID
	ride.DriverName = driver.Username
	ride.DriverImageURL = driver.ProfileURL
	ride.DriverNumber = driverNumber
	ride.FinalPrice = finalPrice
	ride.FinalVehicleType = finalType
	return true, nil
}

func (m *MockRideRepository) UpdateStatus(ctx context.Context, rideID string, from []domain.RideStatus, to domain.RideStatus) (bool, error) {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return false, repository.ErrNotFound
	}
	for _, f := range from {
		if ride.Status == f {
			ride.Status = to
			if to == domain.RideStatusCompleted {
				ride.CompletedAt = time.Now()
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRideRepository) UpdatePool(ctx context.Context, ride *domain.RideRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rides[ride.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Passengers = append([]domain.RidePassenger(nil), ride.Passengers...)
	stored.CurrentPassengers = ride.CurrentPassengers
	stored.Fares = ride.Fares
	stored.FinalPrice = ride.FinalPrice
	return nil
}

func (m *MockRideRepository) SetNotifiedDrivers(ctx context.Context, rideID string, driverIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	ride.NotifiedDrivers = append([]string(nil), driverIDs...)
	return nil
}

func (m *MockRideRepository) SetFeedback(ctx context.Context, rideID string, fb domain.Feedback) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if ride.Feedback != nil {
		return false, nil
	}
	ride.Feedback = &fb
	return true, nil
}

func (m *MockRideRepository) SetPaymentCompleted(ctx context.Context, rideID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	ride.PaymentStatus = domain.PaymentStatusCompleted
	return nil
}

func (m *MockRideRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.RideRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.RideRequest
	for _, r := range m.rides {
		if (r.Status == domain.RideStatusPending || r.Status == domain.RideStatusPendingPool) && !r.ExpiresAt.After(now) {
			cp := *r
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockRideRepository) FindPoolCandidates(ctx context.Context, vehicleType domain.VehicleType, limit int) ([]*domain.RideRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.RideRequest
	for _, r := range m.rides {
		if !r.Shareable || r.VehicleType != vehicleType {
			continue
		}
		if r.Status != domain.RideStatusPendingPool && r.Status != domain.RideStatusAccepted {
			continue
		}
		if r.CurrentPassengers >= r.MaxPassengers {
			continue
		}
		cp := *r
		cp.Passengers = append([]domain.RidePassenger(nil), r.Passengers...)
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockRideRepository) snapshot() func() {
	m.mu.Lock()
	saved := make(map[string]*domain.RideRequest, len(m.rides))
	for id, r := range m.rides {
		cp := *r
		cp.Passengers = append([]domain.RidePassenger(nil), r.Passengers...)
		cp.NotifiedDrivers = append([]string(nil), r.NotifiedDrivers...)
		saved[id] = &cp
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.rides = saved
		m.mu.Unlock()
	}
}

// ──────────────────────────────────────────────
// MOCK PRICING REPOSITORIES
// ──────────────────────────────────────────────

// MockPriceRepository is a mock implementation of PriceRepository.
type MockPriceRepository struct {
	mu     sync.RWMutex
	prices map[domain.VehicleType]float64
}

// NewMockPriceRepository creates a new mock price repository.
func NewMockPriceRepository() *MockPriceRepository {
	return &MockPriceRepository{prices: make(map[domain.VehicleType]float64)}
}

// SetRate sets a per-km rate directly.
func (m *MockPriceRepository) SetRate(t domain.VehicleType, perKm float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[t] = perKm
}

func (m *MockPriceRepository) Upsert(ctx context.Context, price domain.Price) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[price.VehicleType] = price.PerKm
	return nil
}

func (m *MockPriceRepository) Get(ctx context.Context, vehicleType domain.VehicleType) (domain.Price, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	perKm, ok := m.prices[vehicleType]
	if !ok {
		return domain.Price{}, repository.ErrNotFound
	}
	return domain.Price{VehicleType: vehicleType, PerKm: perKm}, nil
}

func (m *MockPriceRepository) List(ctx context.Context, vehicleTypes []domain.VehicleType) ([]domain.Price, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Price
	for _, t := range vehicleTypes {
		if perKm, ok := m.prices[t]; ok {
			out = append(out, domain.Price{VehicleType: t, PerKm: perKm})
		}
	}
	return out, nil
}

// MockDiscountRepository is a mock implementation of DiscountRepository.
type MockDiscountRepository struct {
	mu     sync.RWMutex
	active *domain.Discount

	GetActiveCallCount int32
}

// NewMockDiscountRepository creates a new mock discount repository.
func NewMockDiscountRepository() *MockDiscountRepository {
	return &MockDiscountRepository{}
}

func (m *MockDiscountRepository) Activate(ctx context.Context, discount *domain.Discount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *discount
	m.active = &cp
	return nil
}

func (m *MockDiscountRepository) GetActive(ctx context.Context) (*domain.Discount, error) {
	atomic.AddInt32(&m.GetActiveCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return nil, repository.ErrNotFound
	}
	cp := *m.active
	return &cp, nil
}

// ──────────────────────────────────────────────
// MOCK LEDGER REPOSITORIES
// ──────────────────────────────────────────────

// MockTransactionRepository is a mock implementation of
// TransactionRepository.
type MockTransactionRepository struct {
	mu      sync.RWMutex
	entries []*domain.Transaction
}

// NewMockTransactionRepository creates a new mock transaction repository.
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{}
}

// Entries returns all recorded entries for test assertions.
func (m *MockTransactionRepository) Entries() []*domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.Transaction(nil), m.entries...)
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tx
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MockTransactionRepository) snapshot() func() {
	m.mu.Lock()
	saved := make([]*domain.Transaction, len(m.entries))
	for i, e := range m.entries {
		cp := *e
		saved[i] = &cp
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.entries = saved
		m.mu.Unlock()
	}
}

func (m *MockTransactionRepository) ListByUser(ctx context.Context, userID string, userType domain.UserType, limit int) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Transaction
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.UserID == userID && e.UserType == userType {
			cp := *e
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// MockWithdrawalRepository is a mock implementation of WithdrawalRepository.
type MockWithdrawalRepository struct {
	mu       sync.RWMutex
	requests map[string]*domain.WithdrawalRequest
}

// NewMockWithdrawalRepository creates a new mock withdrawal repository.
func NewMockWithdrawalRepository() *MockWithdrawalRepository {
	return &MockWithdrawalRepository{requests: make(map[string]*domain.WithdrawalRequest)}
}

// GetRequest returns a request for test assertions.
func (m *MockWithdrawalRepository) GetRequest(id string) *domain.WithdrawalRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[id]
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, req *domain.WithdrawalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *MockWithdrawalRepository) Resolve(ctx context.Context, id string, to domain.WithdrawalStatus, processedAt time.Time, transactionID, remarks string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.requests[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if w.Status != domain.WithdrawalPending {
		return false, nil
	}
	w.Status = to
	w.ProcessedDate = processedAt
	w.TransactionID = transactionID
	w.Remarks = remarks
	return true, nil
}

func (m *MockWithdrawalRepository) snapshot() func() {
	m.mu.Lock()
	saved := make(map[string]*domain.WithdrawalRequest, len(m.requests))
	for id, w := range m.requests {
		cp := *w
		saved[id] = &cp
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.requests = saved
		m.mu.Unlock()
	}
}

func (m *MockWithdrawalRepository) List(ctx context.Context, driverID string, status domain.WithdrawalStatus) ([]*domain.WithdrawalRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.WithdrawalRequest
	for _, w := range m.requests {
		if driverID != "" && w.DriverID != driverID {
			continue
		}
		if status != "" && w.Status != status {
			continue
		}
		cp := *w
		out = append(out, &cp)
	}
	return out, nil
}

// ──────────────────────────────────────────────
// MOCK TX RUNNER
// ──────────────────────────────────────────────

// txStore is implemented by the mock repositories so MockTxRunner can roll a
// failed unit of work back.
type txStore interface {
	snapshot() func()
}

// MockTxRunner runs units of work over the in-memory stores, one at a time.
// When fn fails, every store's state is restored to what it was on entry,
// mirroring a rolled-back SQL transaction.
type MockTxRunner struct {
	mu     sync.Mutex
	Stores repository.Stores
}

// NewMockTxRunner creates a TxRunner over the given mock stores.
func NewMockTxRunner(stores repository.Stores) *MockTxRunner {
	return &MockTxRunner{Stores: stores}
}

func (m *MockTxRunner) WithinTx(ctx context.Context, fn func(repository.Stores) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var restores []func()
	for _, st := range []any{
		m.Stores.Rides, m.Stores.Drivers, m.Stores.Passengers,
		m.Stores.Transactions, m.Stores.Withdrawals,
	} {
		if s, ok := st.(txStore); ok {
			restores = append(restores, s.snapshot())
		}
	}

	if err := fn(m.Stores); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockLocationStore is an in-memory stand-in for the Redis geo index.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]redis.DriverLocation

	RemoveCallCount int32
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{locations: make(map[string]redis.DriverLocation)}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, vehicleType domain.VehicleType, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = redis.DriverLocation{
		DriverID:    driverID,
		VehicleType: vehicleType,
		Lat:         lat,
		Lng:         lng,
	}
	return nil
}

func (m *MockLocationStore) FindNearby(ctx context.Context, lat, lng, radiusM float64, types []domain.VehicleType) ([]redis.DriverLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[domain.VehicleType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	var out []redis.DriverLocation
	for _, loc := range m.locations {
		if !wanted[loc.VehicleType] {
			continue
		}
		d := domain.HaversineMeters(
			domain.Point{Lat: lat, Lng: lng},
			domain.Point{Lat: loc.Lat, Lng: loc.Lng},
		)
		if d > radiusM {
			continue
		}
		loc.DistanceM = d
		out = append(out, loc)
	}
	return out, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.RemoveCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	return nil
}

// Contains reports whether a driver is in the index.
func (m *MockLocationStore) Contains(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locations[driverID]
	return ok
}

// MockLockStore is an in-memory stand-in for the Redis lock store.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

func (m *MockLockStore) AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[rideID] {
		return false, nil
	}
	m.locks[rideID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseRideLock(ctx context.Context, rideID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, rideID)
	return nil
}

// MockDiscountCache is an in-memory stand-in for the discount cache.
type MockDiscountCache struct {
	mu     sync.RWMutex
	cached *domain.Discount
	has    bool

	InvalidateCallCount int32
}

// NewMockDiscountCache creates a new mock discount cache.
func NewMockDiscountCache() *MockDiscountCache {
	return &MockDiscountCache{}
}

func (m *MockDiscountCache) GetActiveDiscount(ctx context.Context) (*domain.Discount, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.has {
		return nil, false, nil
	}
	if m.cached == nil {
		return nil, true, nil
	}
	cp := *m.cached
	return &cp, true, nil
}

func (m *MockDiscountCache) SetActiveDiscount(ctx context.Context, d *domain.Discount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d == nil {
		m.cached = nil
	} else {
		cp := *d
		m.cached = &cp
	}
	m.has = true
	return nil
}

func (m *MockDiscountCache) InvalidateActiveDiscount(ctx context.Context) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = nil
	m.has = false
	return nil
}

// ──────────────────────────────────────────────
// MOCK EVENT DELIVERY
// ──────────────────────────────────────────────

// EmittedEvent is one recorded room emission.
type EmittedEvent struct {
	Room    string
	Event   string
	Payload any
}

// MockEmitter records room emissions and can fail specific rooms.
type MockEmitter struct {
	mu       sync.Mutex
	events   []EmittedEvent
	FailRoom map[string]error
}

// NewMockEmitter creates a new mock emitter.
func NewMockEmitter() *MockEmitter {
	return &MockEmitter{FailRoom: make(map[string]error)}
}

func (m *MockEmitter) EmitToRoom(ctx context.Context, room, event string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailRoom[room]; ok {
		return err
	}
	m.events = append(m.events, EmittedEvent{Room: room, Event: event, Payload: payload})
	return nil
}

// Events returns all recorded emissions.
func (m *MockEmitter) Events() []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmittedEvent(nil), m.events...)
}

// EventsFor returns the emissions sent to one room.
func (m *MockEmitter) EventsFor(room string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.events {
		if e.Room == room {
			out = append(out, e)
		}
	}
	return out
}

// MockNotifier records push notifications.
type MockNotifier struct {
	mu     sync.Mutex
	pushes []string
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Push(ctx context.Context, userID, title, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushes = append(m.pushes, userID+": "+title)
	return nil
}

// PushCount returns how many pushes were sent.
func (m *MockNotifier) PushCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pushes)
}
