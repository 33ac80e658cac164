package tests

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"hail/internal/domain"
	"hail/internal/repository"
	"hail/internal/service"
)

type withdrawalFixture struct {
	driverRepo     *MockDriverRepository
	withdrawalRepo *MockWithdrawalRepository
	txnRepo        *MockTransactionRepository
	notifier       *MockNotifier
	svc            *service.WithdrawalService
}

func newWithdrawalFixture() *withdrawalFixture {
	f := &withdrawalFixture{
		driverRepo:     NewMockDriverRepository(),
		withdrawalRepo: NewMockWithdrawalRepository(),
		txnRepo:        NewMockTransactionRepository(),
		notifier:       NewMockNotifier(),
	}
	txRunner := NewMockTxRunner(repository.Stores{
		Drivers:      f.driverRepo,
		Withdrawals:  f.withdrawalRepo,
		Transactions: f.txnRepo,
	})
	f.svc = service.NewWithdrawalService(txRunner, f.driverRepo, f.withdrawalRepo, f.notifier, zap.NewNop())
	return f
}

func (f *withdrawalFixture) addDriver(id string, balance float64) {
	f.driverRepo.AddDriver(&domain.Driver{ID: id, WalletBalance: balance})
}

func TestWithdrawal_Create(t *testing.T) {
	t.Parallel()

	f := newWithdrawalFixture()
	f.addDriver("d-1", 1000)

	w, err := f.svc.Create(context.Background(), service.CreateRequest{
		DriverID: "d-1", Amount: 300, UPIID: "driver@upi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Status != domain.WithdrawalPending {
		t.Errorf("expected a pending request, got %s", w.Status)
	}
	// Filing the request must not move money.
	if got := f.driverRepo.GetDriver("d-1").WalletBalance; got != 1000 {
		t.Errorf("expected untouched balance, got %v", got)
	}
	if got := f.driverRepo.GetDriver("d-1").UPIID; got != "driver@upi" {
		t.Errorf("expected payout contact stored, got %q", got)
	}
}

func TestWithdrawal_CreateBelowMinimumBalance(t *testing.T) {
	t.Parallel()

	f := newWithdrawalFixture()
	f.addDriver("d-1", 150)

	if _, err := f.svc.Create(context.Background(), service.CreateRequest{
		DriverID: "d-1", Amount: 50,
	}); !errors.Is(err, service.ErrBelowMinimumBalance) {
		t.Fatalf("expected ErrBelowMinimumBalance, got %v", err)
	}
}

func TestWithdrawal_CreateOverBalance(t *testing.T) {
	t.Parallel()

	f := newWithdrawalFixture()
	f.addDriver("d-1", 500)

	if _, err := f.svc.Create(context.Background(), service.CreateRequest{
		DriverID: "d-1", Amount: 600,
	}); !errors.Is(err, service.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestWithdrawal_ApproveDebitsWallet(t *testing.T) {
	t.Parallel()

	f := newWithdrawalFixture()
	f.addDriver("d-1", 1000)
	w, err := f.svc.Create(context.Background(), service.CreateRequest{DriverID: "d-1", Amount: 300})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	processed, err := f.svc.Process(context.Background(), w.ID, true, "paid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed.Status != domain.WithdrawalCompleted {
		t.Errorf("expected completed, got %s", processed.Status)
	}
	if processed.TransactionID == "" {
		t.Error("expected the payout linked to a ledger entry")
	}
	if got := f.driverRepo.GetDriver("d-1").WalletBalance; got != 700 {
		t.Errorf("expected balance 700 after payout, got %v", got)
	}
	entries := f.txnRepo.Entries()
	if len(entries) != 1 || entries[0].Amount != -300 {
		t.Errorf("expected one debit ledger entry of -300, got %+v", entries)
	}
	if f.notifier.PushCount() == 0 {
		t.Error("expected the driver notified of the payout")
	}
}

func TestWithdrawal_ApproveKeepsBalanceFloor(t *testing.T) {
	t.Parallel()

	f := newWithdrawalFixture()
	// Paying out 300 would leave 150, below the floor. The request was
	// filed when the balance still covered it.
	f.addDriver("d-1", 1000)
	w, err := f.svc.Create(context.Background(), service.CreateRequest{DriverID: "d-1", Amount: 300})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.driverRepo.GetDriver("d-1").WalletBalance = 450

	processed, err := f.svc.Process(context.Background(), w.ID, true, "paid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed.Status != domain.WithdrawalRejected {
		t.Fatalf("expected the approval converted to a rejection, got %s", processed.Status)
	}
	if got := f.driverRepo.GetDriver("d-1").WalletBalance; got != 450 {
		t.Errorf("a rejected payout must not move money, got %v", got)
	}
	if len(f.txnRepo.Entries()) != 0 {
		t.Error("a rejected payout must not write a ledger entry")
	}
	if processed.Remarks == "" {
		t.Error("expected the rejection remark recorded")
	}
}

func TestWithdrawal_Reject(t *testing.T) {
	t.Parallel()

	f := newWithdrawalFixture()
	f.addDriver("d-1", 1000)
	w, err := f.svc.Create(context.Background(), service.CreateRequest{DriverID: "d-1", Amount: 300})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	processed, err := f.svc.Process(context.Background(), w.ID, false, "suspicious activity")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed.Status != domain.WithdrawalRejected || processed.Remarks != "suspicious activity" {
		t.Errorf("unexpected resolution: %+v", processed)
	}
	if got := f.driverRepo.GetDriver("d-1").WalletBalance; got != 1000 {
		t.Errorf("rejection must not move money, got %v", got)
	}
}

func TestWithdrawal_ProcessTwice(t *testing.T) {
	t.Parallel()

	f := newWithdrawalFixture()
	f.addDriver("d-1", 1000)
	w, err := f.svc.Create(context.Background(), service.CreateRequest{DriverID: "d-1", Amount: 300})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.svc.Process(context.Background(), w.ID, true, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Process(context.Background(), w.ID, false, ""); !errors.Is(err, service.ErrWithdrawalProcessed) {
		t.Fatalf("expected ErrWithdrawalProcessed, got %v", err)
	}
	if got := f.driverRepo.GetDriver("d-1").WalletBalance; got != 700 {
		t.Errorf("double processing must not move money twice, got %v", got)
	}
}

func TestWithdrawal_ListByStatus(t *testing.T) {
	t.Parallel()

	f := newWithdrawalFixture()
	f.addDriver("d-1", 1000)
	w1, _ := f.svc.Create(context.Background(), service.CreateRequest{DriverID: "d-1", Amount: 100})
	if _, err := f.svc.Create(context.Background(), service.CreateRequest{DriverID: "d-1", Amount: 200}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Process(context.Background(), w1.ID, false, "no"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending, err := f.svc.List(context.Background(), "d-1", domain.WithdrawalPending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 1 || pending[0].Amount != 200 {
		t.Fatalf("expected one pending request of 200, got %+v", pending)
	}
}
