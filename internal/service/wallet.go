package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hail/internal/domain"
	"hail/internal/redis"
	"hail/internal/repository"
)

const (
	// PlatformFeeRate is the platform's cut of every fare.
	PlatformFeeRate = 0.07

	// MinDriverBalance is the wallet floor below which a driver is forced
	// offline until they top up.
	MinDriverBalance = 200.0
)

// WalletService is the only writer of wallet balances. Every balance change
// appends a ledger entry, and multi-leg settlements commit in one
// transaction.
type WalletService struct {
	txRunner      repository.TxRunner
	driverRepo    repository.DriverRepository
	passengerRepo repository.PassengerRepository
	txnRepo       repository.TransactionRepository
	locationStore redis.LocationStoreInterface
	notifier      Notifier
	logger        *zap.Logger
}

// NewWalletService creates a new WalletService.
func NewWalletService(
	txRunner repository.TxRunner,
	driverRepo repository.DriverRepository,
	passengerRepo repository.PassengerRepository,
	txnRepo repository.TransactionRepository,
	locationStore redis.LocationStoreInterface,
	notifier Notifier,
	logger *zap.Logger,
) *WalletService {
	return &WalletService{
		txRunner:      txRunner,
		driverRepo:    driverRepo,
		passengerRepo: passengerRepo,
		txnRepo:       txnRepo,
		locationStore: locationStore,
		notifier:      notifier,
		logger:        logger,
	}
}

// AddFunds credits a user's wallet and records the ledger entry.
func (s *WalletService) AddFunds(ctx context.Context, userID string, userType domain.UserType, amount float64, method domain.PaymentMethod) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var entry *domain.Transaction
	err := s.txRunner.WithinTx(ctx, func(st repository.Stores) error {
		if err := s.credit(ctx, st, userID, userType, amount); err != nil {
			return err
		}
		var err error
		entry, err = s.record(ctx, st, userID, userType, amount, domain.TransactionCredit, method, "", "wallet top-up")
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		_ = s.notifier.Push(ctx, userID, "Wallet credited", fmt.Sprintf("%.2f added to your wallet", amount))
	}
	return entry, nil
}

// Balance returns the current wallet balance for a user.
func (s *WalletService) Balance(ctx context.Context, userID string, userType domain.UserType) (float64, error) {
	switch userType {
	case domain.UserTypeDriver:
		d, err := s.driverRepo.GetByID(ctx, userID)
		if err != nil {
			return 0, err
		}
		return d.WalletBalance, nil
	default:
		p, err := s.passengerRepo.GetByID(ctx, userID)
		if err != nil {
			return 0, err
		}
		return p.WalletBalance, nil
	}
}

// Transactions returns a user's ledger history, newest first.
func (s *WalletService) Transactions(ctx context.Context, userID string, userType domain.UserType, limit int) ([]*domain.Transaction, error) {
	return s.txnRepo.ListByUser(ctx, userID, userType, limit)
}

// Settle runs the money movement for a completed ride inside one
// transaction. Wallet rides debit every passenger their per-passenger price
// and credit the driver the fare net of the platform fee. Cash rides collect
// only the platform fee from the driver's wallet. Any failed debit aborts
// the whole settlement.
//
// After commit, a driver whose balance fell below the operating minimum is
// forced offline and dropped from the geo index.
func (s *WalletService) Settle(ctx context.Context, ride *domain.RideRequest) error {
	if ride.DriverID == "" {
		return ErrInvalidDriverID
	}
	if ride.FinalPrice <= 0 {
		return ErrInvalidAmount
	}

	err := s.txRunner.WithinTx(ctx, func(st repository.Stores) error {
		switch ride.PaymentMethod {
		case domain.PaymentMethodWallet:
			if err := s.settleWallet(ctx, st, ride); err != nil {
				return err
			}
		default:
			if err := s.settleCash(ctx, st, ride); err != nil {
				return err
			}
		}
		return st.Rides.SetPaymentCompleted(ctx, ride.ID)
	})
	if err != nil {
		return err
	}
	ride.PaymentStatus = domain.PaymentStatusCompleted

	s.enforceMinimumBalance(ctx, ride.DriverID)
	return nil
}

// settleWallet moves finalPrice from each passenger to the driver, net of
// the platform fee. passengerΔ + driverΔ always equals minus the fee.
func (s *WalletService) settleWallet(ctx context.Context, st repository.Stores, ride *domain.RideRequest) error {
	perPassenger := ride.FinalPrice
	for _, p := range ride.Passengers {
		ok, err := st.Passengers.Debit(ctx, p.ID, perPassenger)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientFunds
		}
		if _, err := s.record(ctx, st, p.ID, domain.UserTypePassenger, -perPassenger, domain.TransactionDebit, ride.PaymentMethod, ride.ID, "ride fare"); err != nil {
			return err
		}
	}

	gross := perPassenger * float64(len(ride.Passengers))
	net := gross * (1 - PlatformFeeRate)
	if err := st.Drivers.Credit(ctx, ride.DriverID, net); err != nil {
		return err
	}
	_, err := s.record(ctx, st, ride.DriverID, domain.UserTypeDriver, net, domain.TransactionCredit, ride.PaymentMethod, ride.ID, "ride earnings")
	return err
}

// settleCash collects the platform fee on the driver-collected gross fare.
func (s *WalletService) settleCash(ctx context.Context, st repository.Stores, ride *domain.RideRequest) error {
	gross := ride.FinalPrice * float64(len(ride.Passengers))
	fee := gross * PlatformFeeRate

	ok, err := st.Drivers.Debit(ctx, ride.DriverID, fee)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientFunds
	}
	_, err = s.record(ctx, st, ride.DriverID, domain.UserTypeDriver, -fee, domain.TransactionDebit, ride.PaymentMethod, ride.ID, "platform fee")
	return err
}

func (s *WalletService) credit(ctx context.Context, st repository.Stores, userID string, userType domain.UserType, amount float64) error {
	if userType == domain.UserTypeDriver {
		return st.Drivers.Credit(ctx, userID, amount)
	}
	return st.Passengers.Credit(ctx, userID, amount)
}

func (s *WalletService) record(ctx context.Context, st repository.Stores, userID string, userType domain.UserType, amount float64, kind domain.TransactionKind, method domain.PaymentMethod, rideID, desc string) (*domain.Transaction, error) {
	entry := &domain.Transaction{
		ID:            uuid.New().String(),
		UserID:        userID,
		UserType:      userType,
		Amount:        amount,
		Kind:          kind,
		PaymentMethod: method,
		RideID:        rideID,
		Description:   desc,
		Timestamp:     time.Now(),
	}
	if err := st.Transactions.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// enforceMinimumBalance forces a driver offline when their balance drops
// under the operating floor, so they top up before taking more rides.
func (s *WalletService) enforceMinimumBalance(ctx context.Context, driverID string) {
	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		s.logger.Warn("balance check failed", zap.String("driver_id", driverID), zap.Error(err))
		return
	}
	if driver.WalletBalance >= MinDriverBalance {
		return
	}

	if err := s.driverRepo.ForceOffline(ctx, driverID); err != nil {
		s.logger.Error("force offline failed", zap.String("driver_id", driverID), zap.Error(err))
	}
	if err := s.locationStore.RemoveLocation(ctx, driverID); err != nil {
		s.logger.Warn("geo index removal failed", zap.String("driver_id", driverID), zap.Error(err))
	}
	if s.notifier != nil {
		_ = s.notifier.Push(ctx, driverID, "Low wallet balance",
			fmt.Sprintf("Balance below %.0f. Add funds to go online again.", MinDriverBalance))
	}

	s.logger.Info("driver forced offline on low balance",
		zap.String("driver_id", driverID),
		zap.Float64("balance", driver.WalletBalance))
}
