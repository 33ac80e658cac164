package domain

import "time"

// PaymentMethod represents how a ride is paid for.
type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "WALLET"
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodUPI    PaymentMethod = "UPI"
)

// UserType distinguishes the two wallet-holding account kinds.
type UserType string

const (
	UserTypeDriver    UserType = "DRIVER"
	UserTypePassenger UserType = "PASSENGER"
)

// TransactionKind is the ledger entry direction.
type TransactionKind string

const (
	TransactionCredit TransactionKind = "CREDIT"
	TransactionDebit  TransactionKind = "DEBIT"
)

// Transaction is an immutable wallet ledger entry. Amounts are signed:
// negative for debits, positive for credits.
type Transaction struct {
	ID            string
	UserID        string
	UserType      UserType
	Amount        float64
	Kind          TransactionKind
	PaymentMethod PaymentMethod
	RideID        string
	Description   string
	Timestamp     time.Time
}

// Price is the per-kilometer rate for one concrete vehicle type.
type Price struct {
	VehicleType VehicleType
	PerKm       float64
}

// Discount is a percentage promotion. At most one discount is active
// system-wide at any moment.
type Discount struct {
	ID         string
	Code       string
	Percentage float64
	ValidFrom  time.Time
	ValidTo    time.Time
	IsActive   bool
}

// ActiveAt reports whether the discount applies at the given instant.
func (d *Discount) ActiveAt(now time.Time) bool {
	return d.IsActive && !now.Before(d.ValidFrom) && !now.After(d.ValidTo)
}

// WithdrawalStatus represents the processing state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "PENDING"
	WithdrawalCompleted WithdrawalStatus = "COMPLETED"
	WithdrawalRejected  WithdrawalStatus = "REJECTED"
	WithdrawalFailed    WithdrawalStatus = "FAILED"
)

// WithdrawalRequest is a driver's request to move wallet funds to a UPI
// destination.
type WithdrawalRequest struct {
	ID            string
	DriverID      string
	Amount        float64
	UPIID         string
	MobileNumber  string
	Status        WithdrawalStatus
	RequestDate   time.Time
	ProcessedDate time.Time
	TransactionID string
	Remarks       string
}
