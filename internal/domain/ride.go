package domain

import "time"

// RideStatus represents the current lifecycle state of a ride request.
type RideStatus string

const (
	RideStatusPending     RideStatus = "PENDING"
	RideStatusPendingPool RideStatus = "PENDING_POOL"
	RideStatusAccepted    RideStatus = "ACCEPTED"
	RideStatusInProgress  RideStatus = "IN_PROGRESS"
	RideStatusCompleted   RideStatus = "COMPLETED"
	RideStatusFailed      RideStatus = "FAILED"
	RideStatusCancelled   RideStatus = "CANCELLED"
)

// allowedTransitions encodes the ride state machine. Terminal states have no
// outgoing edges.
var allowedTransitions = map[RideStatus][]RideStatus{
	RideStatusPending:     {RideStatusAccepted, RideStatusFailed, RideStatusCancelled},
	RideStatusPendingPool: {RideStatusAccepted, RideStatusFailed, RideStatusCancelled},
	RideStatusAccepted:    {RideStatusInProgress, RideStatusCompleted, RideStatusCancelled},
	RideStatusInProgress:  {RideStatusCompleted, RideStatusCancelled},
}

// CanTransition reports whether the state machine permits moving from one
// status to another.
func CanTransition(from, to RideStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions.
func (s RideStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// PaymentStatus tracks whether a ride has been settled.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
)

// Fare holds the computed prices for one concrete vehicle type.
type Fare struct {
	Base         float64
	Discounted   float64
	PerPassenger float64
}

// FareMatrix maps each concrete vehicle type to its computed fare. It is a
// fixed-size array indexed by the closed enum rather than a dynamically keyed
// map, so absent entries are explicit.
type FareMatrix struct {
	entries [NumConcreteVehicleTypes]Fare
	present [NumConcreteVehicleTypes]bool
}

// Set stores the fare for a concrete vehicle type. Non-concrete types are
// ignored.
func (m *FareMatrix) Set(t VehicleType, f Fare) {
	if i := t.index(); i >= 0 {
		m.entries[i] = f
		m.present[i] = true
	}
}

// Get returns the fare for a concrete vehicle type and whether one was set.
func (m *FareMatrix) Get(t VehicleType) (Fare, bool) {
	i := t.index()
	if i < 0 || !m.present[i] {
		return Fare{}, false
	}
	return m.entries[i], true
}

// Types returns the vehicle types that have a fare entry, in enum order.
func (m *FareMatrix) Types() []VehicleType {
	var types []VehicleType
	for i, ct := range ConcreteVehicleTypes {
		if m.present[i] {
			types = append(types, ct)
		}
	}
	return types
}

// Empty reports whether no fare entries are set.
func (m *FareMatrix) Empty() bool {
	for _, p := range m.present {
		if p {
			return false
		}
	}
	return true
}

// Feedback is a one-time rating left on a completed ride.
type Feedback struct {
	Rating  int
	Comment string
}

// RidePassenger is one occupant of a ride. Pooled rides carry several.
type RidePassenger struct {
	ID       string
	Name     string
	ImageURL string
	Mobile   string
}

// RideRequest represents a ride, possibly pooled across multiple passengers.
type RideRequest struct {
	ID                string
	Passengers        []RidePassenger
	VehicleType       VehicleType // Requested type, possibly the wildcard.
	PickupLocation    Point
	DropLocation      Point
	PreferredGender   Gender
	DistanceKm        float64
	Fares             FareMatrix
	DiscountPct       float64
	Status            RideStatus
	PaymentStatus     PaymentStatus
	PaymentMethod     PaymentMethod
	DriverID          string
	DriverName        string
	DriverImageURL    string
	DriverNumber      string
	FinalPrice        float64 // Per passenger. Fixed at acceptance, pool joins re-split it.
	FinalVehicleType  VehicleType
	Shareable         bool
	CurrentPassengers int
	MaxPassengers     int
	NotifiedDrivers   []string
	Feedback          *Feedback
	CreatedAt         time.Time
	ExpiresAt         time.Time
	CompletedAt       time.Time
}

// HasPassenger reports whether the given user rides on this request.
func (r *RideRequest) HasPassenger(userID string) bool {
	for _, p := range r.Passengers {
		if p.ID == userID {
			return true
		}
	}
	return false
}
