package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hail/internal/domain"
	"hail/internal/service"
)

// PassengerHandler handles HTTP requests for passengers.
type PassengerHandler struct {
	passengerService *service.PassengerService
}

// NewPassengerHandler creates a new PassengerHandler.
func NewPassengerHandler(passengerService *service.PassengerService) *PassengerHandler {
	return &PassengerHandler{passengerService: passengerService}
}

// RegisterPassengerRequest is the HTTP request body for registering a
// passenger.
type RegisterPassengerRequest struct {
	Username     string `json:"username"`
	ProfileURL   string `json:"profile_url,omitempty"`
	Gender       string `json:"gender,omitempty"`
	MobileNumber string `json:"mobile_number,omitempty"`
}

// PassengerResponse is the HTTP representation of a passenger.
type PassengerResponse struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Gender        string  `json:"gender,omitempty"`
	WalletBalance float64 `json:"wallet_balance"`
	MobileNumber  string  `json:"mobile_number,omitempty"`
}

// Register handles POST /v1/passengers
func (h *PassengerHandler) Register(c *gin.Context) {
	var req RegisterPassengerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	p, err := h.passengerService.Register(c.Request.Context(), service.RegisterPassengerInput{
		Username:     req.Username,
		ProfileURL:   req.ProfileURL,
		Gender:       domain.Gender(req.Gender),
		MobileNumber: req.MobileNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, PassengerResponse{
		ID:            p.ID,
		Username:      p.Username,
		Gender:        string(p.Gender),
		WalletBalance: p.WalletBalance,
		MobileNumber:  p.MobileNumber,
	})
}

// GetPassenger handles GET /v1/passengers/:id
func (h *PassengerHandler) GetPassenger(c *gin.Context) {
	p, err := h.passengerService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, PassengerResponse{
		ID:            p.ID,
		Username:      p.Username,
		Gender:        string(p.Gender),
		WalletBalance: p.WalletBalance,
		MobileNumber:  p.MobileNumber,
	})
}

// UpdateLocation handles PUT /v1/passengers/:id/location
func (h *PassengerHandler) UpdateLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.passengerService.UpdateLocation(c.Request.Context(), c.Param("id"), req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"status": "location updated"})
}

// NearbyDrivers handles GET /v1/passengers/nearby-drivers
func (h *PassengerHandler) NearbyDrivers(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid lat"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid lng"})
		return
	}
	vehicleType := domain.VehicleType(c.DefaultQuery("vehicle_type", string(domain.VehicleCarAny)))

	drivers, err := h.passengerService.NearbyDrivers(c.Request.Context(), lat, lng, vehicleType)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"drivers": drivers, "count": len(drivers)})
}
