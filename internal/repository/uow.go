package repository

import "context"

// Stores bundles the repositories bound to a single atomic unit of work.
type Stores struct {
	Rides        RideRepository
	Drivers      DriverRepository
	Passengers   PassengerRepository
	Transactions TransactionRepository
	Withdrawals  WithdrawalRepository
}

// TxRunner executes fn with every store bound to one transaction. If fn
// returns an error the whole unit rolls back.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(Stores) error) error
}
