package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hail/internal/domain"
	"hail/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService     *service.RideService
	dispatchService *service.DispatchService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService, dispatchService *service.DispatchService) *RideHandler {
	return &RideHandler{
		rideService:     rideService,
		dispatchService: dispatchService,
	}
}

// CreateRideRequest is the HTTP request body for creating a ride.
type CreateRideRequest struct {
	PassengerID     string  `json:"passenger_id"`
	VehicleType     string  `json:"vehicle_type"`
	PickupLat       float64 `json:"pickup_lat"`
	PickupLng       float64 `json:"pickup_lng"`
	PickupAddress   string  `json:"pickup_address,omitempty"`
	DropLat         float64 `json:"drop_lat"`
	DropLng         float64 `json:"drop_lng"`
	DropAddress     string  `json:"drop_address,omitempty"`
	PreferredGender string  `json:"preferred_gender,omitempty"`
	PaymentMethod   string  `json:"payment_method,omitempty"`
	Shareable       bool    `json:"shareable,omitempty"`
}

// FareEntry is one priced vehicle type in a ride response.
type FareEntry struct {
	VehicleType  string  `json:"vehicle_type"`
	Base         float64 `json:"base"`
	Discounted   float64 `json:"discounted"`
	PerPassenger float64 `json:"per_passenger"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID                string      `json:"id"`
	Status            string      `json:"status"`
	VehicleType       string      `json:"vehicle_type"`
	PickupLat         float64     `json:"pickup_lat"`
	PickupLng         float64     `json:"pickup_lng"`
	DropLat           float64     `json:"drop_lat"`
	DropLng           float64     `json:"drop_lng"`
	DistanceKm        float64     `json:"distance_km"`
	Fares             []FareEntry `json:"fares,omitempty"`
	DiscountPct       float64     `json:"discount_pct,omitempty"`
	PaymentMethod     string      `json:"payment_method"`
	PaymentStatus     string      `json:"payment_status"`
	DriverID          string      `json:"driver_id,omitempty"`
	DriverName        string      `json:"driver_name,omitempty"`
	FinalPrice        float64     `json:"final_price,omitempty"`
	FinalVehicleType  string      `json:"final_vehicle_type,omitempty"`
	Shareable         bool        `json:"shareable"`
	CurrentPassengers int         `json:"current_passengers"`
	MaxPassengers     int         `json:"max_passengers"`
	Joined            bool        `json:"joined,omitempty"`
	ExpiresAt         string      `json:"expires_at,omitempty"`
	CompletedAt       string      `json:"completed_at,omitempty"`
}

func toRideResponse(ride *domain.RideRequest) RideResponse {
	resp := RideResponse{
		ID:                ride.ID,
		Status:            string(ride.Status),
		VehicleType:       string(ride.VehicleType),
		PickupLat:         ride.PickupLocation.Lat,
		PickupLng:         ride.PickupLocation.Lng,
		DropLat:           ride.DropLocation.Lat,
		DropLng:           ride.DropLocation.Lng,
		DistanceKm:        ride.DistanceKm,
		DiscountPct:       ride.DiscountPct,
		PaymentMethod:     string(ride.PaymentMethod),
		PaymentStatus:     string(ride.PaymentStatus),
		DriverID:          ride.DriverID,
		DriverName:        ride.DriverName,
		FinalPrice:        ride.FinalPrice,
		FinalVehicleType:  string(ride.FinalVehicleType),
		Shareable:         ride.Shareable,
		CurrentPassengers: ride.CurrentPassengers,
		MaxPassengers:     ride.MaxPassengers,
	}
	for _, t := range ride.Fares.Types() {
		f, _ := ride.Fares.Get(t)
		resp.Fares = append(resp.Fares, FareEntry{
			VehicleType:  string(t),
			Base:         f.Base,
			Discounted:   f.Discounted,
			PerPassenger: f.PerPassenger,
		})
	}
	if !ride.ExpiresAt.IsZero() {
		resp.ExpiresAt = ride.ExpiresAt.Format(time.RFC3339)
	}
	if !ride.CompletedAt.IsZero() {
		resp.CompletedAt = ride.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	method := domain.PaymentMethod(req.PaymentMethod)
	if method == "" {
		method = domain.PaymentMethodWallet
	}

	result, err := h.rideService.Request(c.Request.Context(), service.RequestRideInput{
		PassengerID:     req.PassengerID,
		VehicleType:     domain.VehicleType(req.VehicleType),
		Pickup:          domain.Point{Lat: req.PickupLat, Lng: req.PickupLng, Address: req.PickupAddress},
		Drop:            domain.Point{Lat: req.DropLat, Lng: req.DropLng, Address: req.DropAddress},
		PreferredGender: domain.Gender(req.PreferredGender),
		PaymentMethod:   method,
		Shareable:       req.Shareable,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := toRideResponse(result.Ride)
	resp.Joined = result.Joined
	respondJSON(c, http.StatusCreated, resp)
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// AcceptRideRequest is the HTTP request body for accepting a ride.
type AcceptRideRequest struct {
	DriverID string `json:"driver_id"`
}

// AcceptRide handles POST /v1/rides/:id/accept
func (h *RideHandler) AcceptRide(c *gin.Context) {
	var req AcceptRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.dispatchService.Accept(c.Request.Context(), req.DriverID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(result.Ride))
}

// DriverActionRequest identifies the driver performing a lifecycle action.
type DriverActionRequest struct {
	DriverID string `json:"driver_id"`
}

// StartRide handles POST /v1/rides/:id/start
func (h *RideHandler) StartRide(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.Start(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.Complete(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	UserID string `json:"user_id"`
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.Cancel(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// FeedbackRequest is the HTTP request body for ride feedback.
type FeedbackRequest struct {
	UserID  string `json:"user_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// LeaveFeedback handles POST /v1/rides/:id/feedback
func (h *RideHandler) LeaveFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.rideService.LeaveFeedback(c.Request.Context(), c.Param("id"), req.UserID, req.Rating, req.Comment); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"status": "feedback recorded"})
}
