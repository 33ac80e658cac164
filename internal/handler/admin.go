package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hail/internal/domain"
	"hail/internal/service"
)

// AdminHandler handles pricing and discount administration.
type AdminHandler struct {
	pricingService *service.PricingService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(pricingService *service.PricingService) *AdminHandler {
	return &AdminHandler{pricingService: pricingService}
}

// SetPriceRequest is the HTTP request body for setting a per-km rate.
type SetPriceRequest struct {
	VehicleType string  `json:"vehicle_type"`
	PerKm       float64 `json:"per_km"`
}

// SetPrice handles PUT /v1/admin/prices
func (h *AdminHandler) SetPrice(c *gin.Context) {
	var req SetPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.pricingService.SetPrice(c.Request.Context(), domain.VehicleType(req.VehicleType), req.PerKm); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"vehicle_type": req.VehicleType, "per_km": req.PerKm})
}

// GetPrices handles GET /v1/admin/prices
func (h *AdminHandler) GetPrices(c *gin.Context) {
	prices, err := h.pricingService.GetPrices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(prices))
	for _, p := range prices {
		out = append(out, gin.H{"vehicle_type": string(p.VehicleType), "per_km": p.PerKm})
	}
	respondJSON(c, http.StatusOK, gin.H{"prices": out})
}

// SetDiscountRequest is the HTTP request body for activating a discount.
type SetDiscountRequest struct {
	Code       string    `json:"code"`
	Percentage float64   `json:"percentage"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidTo    time.Time `json:"valid_to"`
}

// DiscountResponse is the HTTP representation of a discount.
type DiscountResponse struct {
	ID         string  `json:"id"`
	Code       string  `json:"code"`
	Percentage float64 `json:"percentage"`
	ValidFrom  string  `json:"valid_from"`
	ValidTo    string  `json:"valid_to"`
}

// SetDiscount handles POST /v1/admin/discounts
func (h *AdminHandler) SetDiscount(c *gin.Context) {
	var req SetDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	d, err := h.pricingService.SetDiscount(c.Request.Context(), req.Code, req.Percentage, req.ValidFrom, req.ValidTo)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, DiscountResponse{
		ID:         d.ID,
		Code:       d.Code,
		Percentage: d.Percentage,
		ValidFrom:  d.ValidFrom.Format(time.RFC3339),
		ValidTo:    d.ValidTo.Format(time.RFC3339),
	})
}

// GetActiveDiscount handles GET /v1/admin/discounts/active
func (h *AdminHandler) GetActiveDiscount(c *gin.Context) {
	d, err := h.pricingService.GetActiveDiscount(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, DiscountResponse{
		ID:         d.ID,
		Code:       d.Code,
		Percentage: d.Percentage,
		ValidFrom:  d.ValidFrom.Format(time.RFC3339),
		ValidTo:    d.ValidTo.Format(time.RFC3339),
	})
}
