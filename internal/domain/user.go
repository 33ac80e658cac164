package domain

// Gender is used for driver gender preference filtering on ride requests.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderAny    Gender = "ANY"
)

// Driver represents a driver in the system. Wallet balance is mutated only
// through the wallet ledger.
type Driver struct {
	ID            string
	Username      string
	ProfileURL    string
	Gender        Gender
	VehicleType   VehicleType // Always concrete, never the wildcard.
	WalletBalance float64
	IsAvailable   bool
	IsLocationOn  bool
	UPIID         string
	MobileNumber  string
	Location      Point
	CurrentRideID string
	AverageRating float64
	TotalRides    int
}

// Passenger represents a rider in the system.
type Passenger struct {
	ID            string
	Username      string
	ProfileURL    string
	Gender        Gender
	WalletBalance float64
	MobileNumber  string
	Location      Point
}
