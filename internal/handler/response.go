package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hail/internal/repository"
	"hail/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidPassengerID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidDistance),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidDiscount),
		errors.Is(err, service.ErrInvalidVehicleType),
		errors.Is(err, service.ErrNoPriceConfigured),
		errors.Is(err, service.ErrNoFareForVehicle):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrRideConflict),
		errors.Is(err, service.ErrInvalidRideState),
		errors.Is(err, service.ErrRideFull),
		errors.Is(err, service.ErrDriverBusy),
		errors.Is(err, service.ErrDriverUnavailable),
		errors.Is(err, service.ErrFeedbackExists),
		errors.Is(err, service.ErrWithdrawalProcessed):
		return http.StatusConflict

	// Business rule errors - payment required / forbidden
	case errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrBelowMinimumBalance):
		return http.StatusPaymentRequired

	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden

	case errors.Is(err, service.ErrNoDriverAvailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
