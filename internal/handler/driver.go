package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hail/internal/domain"
	"hail/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// RegisterDriverRequest is the HTTP request body for registering a driver.
type RegisterDriverRequest struct {
	Username     string `json:"username"`
	ProfileURL   string `json:"profile_url,omitempty"`
	Gender       string `json:"gender,omitempty"`
	VehicleType  string `json:"vehicle_type"`
	MobileNumber string `json:"mobile_number,omitempty"`
}

// DriverResponse is the HTTP representation of a driver.
type DriverResponse struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Gender        string  `json:"gender,omitempty"`
	VehicleType   string  `json:"vehicle_type"`
	WalletBalance float64 `json:"wallet_balance"`
	IsAvailable   bool    `json:"is_available"`
	IsLocationOn  bool    `json:"is_location_on"`
	CurrentRideID string  `json:"current_ride_id,omitempty"`
	AverageRating float64 `json:"average_rating"`
	TotalRides    int     `json:"total_rides"`
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:            d.ID,
		Username:      d.Username,
		Gender:        string(d.Gender),
		VehicleType:   string(d.VehicleType),
		WalletBalance: d.WalletBalance,
		IsAvailable:   d.IsAvailable,
		IsLocationOn:  d.IsLocationOn,
		CurrentRideID: d.CurrentRideID,
		AverageRating: d.AverageRating,
		TotalRides:    d.TotalRides,
	}
}

// Register handles POST /v1/drivers
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.driverService.Register(c.Request.Context(), service.RegisterDriverInput{
		Username:     req.Username,
		ProfileURL:   req.ProfileURL,
		Gender:       domain.Gender(req.Gender),
		VehicleType:  domain.VehicleType(req.VehicleType),
		MobileNumber: req.MobileNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toDriverResponse(driver))
}

// GetDriver handles GET /v1/drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driver, err := h.driverService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// AvailabilityRequest is the HTTP request body for setting availability.
type AvailabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// SetAvailability handles PUT /v1/drivers/:id/availability
func (h *DriverHandler) SetAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.driverService.SetAvailability(c.Request.Context(), c.Param("id"), *req.Available); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"available": *req.Available})
}

// LocationRequest is the HTTP request body for a location report.
type LocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ReportLocation handles PUT /v1/drivers/:id/location
func (h *DriverHandler) ReportLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.driverService.ReportLocation(c.Request.Context(), c.Param("id"), req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"status": "location updated"})
}

// CurrentRide handles GET /v1/drivers/:id/ride
func (h *DriverHandler) CurrentRide(c *gin.Context) {
	ride, err := h.driverService.CurrentRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}
