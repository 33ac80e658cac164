package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hail/internal/domain"
	"hail/internal/repository"
)

const minBalanceRemark = "insufficient balance to maintain minimum account requirement"

// WithdrawalService handles driver payout requests.
type WithdrawalService struct {
	txRunner       repository.TxRunner
	driverRepo     repository.DriverRepository
	withdrawalRepo repository.WithdrawalRepository
	notifier       Notifier
	logger         *zap.Logger
}

// NewWithdrawalService creates a new WithdrawalService.
func NewWithdrawalService(
	txRunner repository.TxRunner,
	driverRepo repository.DriverRepository,
	withdrawalRepo repository.WithdrawalRepository,
	notifier Notifier,
	logger *zap.Logger,
) *WithdrawalService {
	return &WithdrawalService{
		txRunner:       txRunner,
		driverRepo:     driverRepo,
		withdrawalRepo: withdrawalRepo,
		notifier:       notifier,
		logger:         logger,
	}
}

// CreateRequest contains the parameters for a new withdrawal request.
type CreateRequest struct {
	DriverID     string
	Amount       float64
	UPIID        string
	MobileNumber string
}

// Create files a pending withdrawal request. The driver must hold at least
// the minimum balance and the amount must be covered by the wallet. Funds
// are not moved until the request is processed.
func (s *WithdrawalService) Create(ctx context.Context, req CreateRequest) (*domain.WithdrawalRequest, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	driver, err := s.driverRepo.GetByID(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if driver.WalletBalance < MinDriverBalance {
		return nil, ErrBelowMinimumBalance
	}
	if req.Amount > driver.WalletBalance {
		return nil, ErrInsufficientFunds
	}

	w := &domain.WithdrawalRequest{
		ID:           uuid.New().String(),
		DriverID:     req.DriverID,
		Amount:       req.Amount,
		UPIID:        req.UPIID,
		MobileNumber: req.MobileNumber,
		Status:       domain.WithdrawalPending,
		RequestDate:  time.Now(),
	}
	if err := s.withdrawalRepo.Create(ctx, w); err != nil {
		return nil, err
	}

	if req.UPIID != "" || req.MobileNumber != "" {
		if err := s.driverRepo.UpdateContact(ctx, req.DriverID, req.UPIID, req.MobileNumber); err != nil {
			s.logger.Warn("payout contact update failed",
				zap.String("driver_id", req.DriverID),
				zap.Error(err))
		}
	}

	return w, nil
}

// Process resolves a pending request. Rejection records the remark without
// touching the wallet. Approval debits the wallet and appends the ledger
// entry in one transaction; an approval that would leave the driver below
// the minimum balance is converted into a rejection, atomically and without
// any balance change.
func (s *WithdrawalService) Process(ctx context.Context, requestID string, approve bool, remarks string) (*domain.WithdrawalRequest, error) {
	w, err := s.withdrawalRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if w.Status != domain.WithdrawalPending {
		return nil, ErrWithdrawalProcessed
	}

	now := time.Now()

	if !approve {
		done, err := s.withdrawalRepo.Resolve(ctx, requestID, domain.WithdrawalRejected, now, "", remarks)
		if err != nil {
			return nil, err
		}
		if !done {
			return nil, ErrWithdrawalProcessed
		}
		w.Status = domain.WithdrawalRejected
		w.ProcessedDate = now
		w.Remarks = remarks
		s.notify(ctx, w)
		return w, nil
	}

	txnID := uuid.New().String()
	rejected := false

	err = s.txRunner.WithinTx(ctx, func(st repository.Stores) error {
		ok, err := st.Drivers.DebitAboveFloor(ctx, w.DriverID, w.Amount, MinDriverBalance)
		if err != nil {
			return err
		}
		if !ok {
			// Paying out would break the balance floor. Reject inside the
			// same unit so the request cannot be processed twice.
			rejected = true
			done, err := st.Withdrawals.Resolve(ctx, requestID, domain.WithdrawalRejected, now, "", minBalanceRemark)
			if err != nil {
				return err
			}
			if !done {
				return ErrWithdrawalProcessed
			}
			return nil
		}

		txn := &domain.Transaction{
			ID:            txnID,
			UserID:        w.DriverID,
			UserType:      domain.UserTypeDriver,
			Amount:        -w.Amount,
			Kind:          domain.TransactionDebit,
			PaymentMethod: domain.PaymentMethodUPI,
			Description:   "wallet withdrawal",
			Timestamp:     now,
		}
		if err := st.Transactions.Create(ctx, txn); err != nil {
			return err
		}

		done, err := st.Withdrawals.Resolve(ctx, requestID, domain.WithdrawalCompleted, now, txnID, remarks)
		if err != nil {
			return err
		}
		if !done {
			return ErrWithdrawalProcessed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.ProcessedDate = now
	if rejected {
		w.Status = domain.WithdrawalRejected
		w.Remarks = minBalanceRemark
	} else {
		w.Status = domain.WithdrawalCompleted
		w.TransactionID = txnID
		w.Remarks = remarks
	}
	s.notify(ctx, w)
	return w, nil
}

// List returns withdrawal requests, optionally filtered by driver and status.
func (s *WithdrawalService) List(ctx context.Context, driverID string, status domain.WithdrawalStatus) ([]*domain.WithdrawalRequest, error) {
	return s.withdrawalRepo.List(ctx, driverID, status)
}

func (s *WithdrawalService) notify(ctx context.Context, w *domain.WithdrawalRequest) {
	if s.notifier == nil {
		return
	}
	switch w.Status {
	case domain.WithdrawalCompleted:
		_ = s.notifier.Push(ctx, w.DriverID, "Withdrawal completed",
			fmt.Sprintf("%.2f sent to %s", w.Amount, w.UPIID))
	case domain.WithdrawalRejected:
		_ = s.notifier.Push(ctx, w.DriverID, "Withdrawal rejected", w.Remarks)
	}
}
