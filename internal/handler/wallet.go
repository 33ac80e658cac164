package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hail/internal/domain"
	"hail/internal/service"
)

// WalletHandler handles HTTP requests for wallets and withdrawals.
type WalletHandler struct {
	walletService     *service.WalletService
	withdrawalService *service.WithdrawalService
	rideService       *service.RideService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(
	walletService *service.WalletService,
	withdrawalService *service.WithdrawalService,
	rideService *service.RideService,
) *WalletHandler {
	return &WalletHandler{
		walletService:     walletService,
		withdrawalService: withdrawalService,
		rideService:       rideService,
	}
}

func userTypeFromQuery(c *gin.Context) domain.UserType {
	if c.DefaultQuery("user_type", "PASSENGER") == string(domain.UserTypeDriver) {
		return domain.UserTypeDriver
	}
	return domain.UserTypePassenger
}

// AddFundsRequest is the HTTP request body for a wallet top-up.
type AddFundsRequest struct {
	UserID        string  `json:"user_id"`
	UserType      string  `json:"user_type"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method,omitempty"`
}

// AddFunds handles POST /v1/wallet/funds
func (h *WalletHandler) AddFunds(c *gin.Context) {
	var req AddFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	method := domain.PaymentMethod(req.PaymentMethod)
	if method == "" {
		method = domain.PaymentMethodUPI
	}

	entry, err := h.walletService.AddFunds(c.Request.Context(), req.UserID, domain.UserType(req.UserType), req.Amount, method)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{
		"transaction_id": entry.ID,
		"amount":         entry.Amount,
	})
}

// Balance handles GET /v1/wallet/:userId/balance
func (h *WalletHandler) Balance(c *gin.Context) {
	balance, err := h.walletService.Balance(c.Request.Context(), c.Param("userId"), userTypeFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"balance": balance})
}

// TransactionResponse is the HTTP representation of a ledger entry.
type TransactionResponse struct {
	ID            string  `json:"id"`
	Amount        float64 `json:"amount"`
	Kind          string  `json:"kind"`
	PaymentMethod string  `json:"payment_method"`
	RideID        string  `json:"ride_id,omitempty"`
	Description   string  `json:"description,omitempty"`
	Timestamp     string  `json:"timestamp"`
}

// Transactions handles GET /v1/wallet/:userId/transactions
func (h *WalletHandler) Transactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.walletService.Transactions(c.Request.Context(), c.Param("userId"), userTypeFromQuery(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]TransactionResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, TransactionResponse{
			ID:            e.ID,
			Amount:        e.Amount,
			Kind:          string(e.Kind),
			PaymentMethod: string(e.PaymentMethod),
			RideID:        e.RideID,
			Description:   e.Description,
			Timestamp:     e.Timestamp.Format(time.RFC3339),
		})
	}
	respondJSON(c, http.StatusOK, gin.H{"transactions": out})
}

// RideHistory handles GET /v1/wallet/:userId/rides
func (h *WalletHandler) RideHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	rides, err := h.rideService.History(c.Request.Context(), c.Param("userId"), userTypeFromQuery(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		out = append(out, toRideResponse(r))
	}
	respondJSON(c, http.StatusOK, gin.H{"rides": out})
}

// CreateWithdrawalRequest is the HTTP request body for a withdrawal.
type CreateWithdrawalRequest struct {
	DriverID     string  `json:"driver_id"`
	Amount       float64 `json:"amount"`
	UPIID        string  `json:"upi_id,omitempty"`
	MobileNumber string  `json:"mobile_number,omitempty"`
}

// WithdrawalResponse is the HTTP representation of a withdrawal request.
type WithdrawalResponse struct {
	ID            string  `json:"id"`
	DriverID      string  `json:"driver_id"`
	Amount        float64 `json:"amount"`
	UPIID         string  `json:"upi_id,omitempty"`
	Status        string  `json:"status"`
	RequestDate   string  `json:"request_date"`
	ProcessedDate string  `json:"processed_date,omitempty"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Remarks       string  `json:"remarks,omitempty"`
}

func toWithdrawalResponse(w *domain.WithdrawalRequest) WithdrawalResponse {
	resp := WithdrawalResponse{
		ID:            w.ID,
		DriverID:      w.DriverID,
		Amount:        w.Amount,
		UPIID:         w.UPIID,
		Status:        string(w.Status),
		RequestDate:   w.RequestDate.Format(time.RFC3339),
		TransactionID: w.TransactionID,
		Remarks:       w.Remarks,
	}
	if !w.ProcessedDate.IsZero() {
		resp.ProcessedDate = w.ProcessedDate.Format(time.RFC3339)
	}
	return resp
}

// CreateWithdrawal handles POST /v1/withdrawals
func (h *WalletHandler) CreateWithdrawal(c *gin.Context) {
	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	w, err := h.withdrawalService.Create(c.Request.Context(), service.CreateRequest{
		DriverID:     req.DriverID,
		Amount:       req.Amount,
		UPIID:        req.UPIID,
		MobileNumber: req.MobileNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toWithdrawalResponse(w))
}

// ProcessWithdrawalRequest is the HTTP request body for resolving a
// withdrawal.
type ProcessWithdrawalRequest struct {
	Approve bool   `json:"approve"`
	Remarks string `json:"remarks,omitempty"`
}

// ProcessWithdrawal handles POST /v1/withdrawals/:id/process
func (h *WalletHandler) ProcessWithdrawal(c *gin.Context) {
	var req ProcessWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	w, err := h.withdrawalService.Process(c.Request.Context(), c.Param("id"), req.Approve, req.Remarks)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toWithdrawalResponse(w))
}

// ListWithdrawals handles GET /v1/withdrawals
func (h *WalletHandler) ListWithdrawals(c *gin.Context) {
	list, err := h.withdrawalService.List(c.Request.Context(),
		c.Query("driver_id"),
		domain.WithdrawalStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]WithdrawalResponse, 0, len(list))
	for _, w := range list {
		out = append(out, toWithdrawalResponse(w))
	}
	respondJSON(c, http.StatusOK, gin.H{"withdrawals": out})
}
