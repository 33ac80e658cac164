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

// PricingService manages per-km rates and the single active discount.
type PricingService struct {
	priceRepo     repository.PriceRepository
	discountRepo  repository.DiscountRepository
	passengerRepo repository.PassengerRepository
	discountCache redis.DiscountCacheInterface
	emitter       RoomEmitter
	logger        *zap.Logger
}

// NewPricingService creates a new PricingService.
func NewPricingService(
	priceRepo repository.PriceRepository,
	discountRepo repository.DiscountRepository,
	passengerRepo repository.PassengerRepository,
	discountCache redis.DiscountCacheInterface,
	emitter RoomEmitter,
	logger *zap.Logger,
) *PricingService {
	return &PricingService{
		priceRepo:     priceRepo,
		discountRepo:  discountRepo,
		passengerRepo: passengerRepo,
		discountCache: discountCache,
		emitter:       emitter,
		logger:        logger,
	}
}

// SetPrice creates or replaces the per-km rate for a concrete vehicle type.
func (s *PricingService) SetPrice(ctx context.Context, vehicleType domain.VehicleType, perKm float64) error {
	if !vehicleType.IsConcrete() {
		return ErrInvalidVehicleType
	}
	if perKm <= 0 {
		return ErrInvalidAmount
	}
	return s.priceRepo.Upsert(ctx, domain.Price{VehicleType: vehicleType, PerKm: perKm})
}

// GetPrice returns the per-km rate for one concrete vehicle type.
func (s *PricingService) GetPrice(ctx context.Context, vehicleType domain.VehicleType) (domain.Price, error) {
	if !vehicleType.IsConcrete() {
		return domain.Price{}, ErrInvalidVehicleType
	}
	return s.priceRepo.Get(ctx, vehicleType)
}

// GetPrices returns the rates configured for all concrete vehicle types.
func (s *PricingService) GetPrices(ctx context.Context) ([]domain.Price, error) {
	return s.priceRepo.List(ctx, domain.ConcreteVehicleTypes[:])
}

// SetDiscount activates a new discount, replacing any previous one, and
// announces it to all passengers best-effort.
func (s *PricingService) SetDiscount(ctx context.Context, code string, percentage float64, validFrom, validTo time.Time) (*domain.Discount, error) {
	if code == "" || percentage <= 0 || percentage >= 100 || !validTo.After(validFrom) {
		return nil, ErrInvalidDiscount
	}

	d := &domain.Discount{
		ID:         uuid.New().String(),
		Code:       code,
		Percentage: percentage,
		ValidFrom:  validFrom,
		ValidTo:    validTo,
		IsActive:   true,
	}
	if err := s.discountRepo.Activate(ctx, d); err != nil {
		return nil, err
	}

	if s.discountCache != nil {
		if err := s.discountCache.InvalidateActiveDiscount(ctx); err != nil {
			s.logger.Warn("discount cache invalidation failed", zap.Error(err))
		}
	}

	s.announce(ctx, d)
	return d, nil
}

// GetActiveDiscount returns the currently active discount, or ErrNotFound.
func (s *PricingService) GetActiveDiscount(ctx context.Context) (*domain.Discount, error) {
	if s.discountCache != nil {
		d, hit, err := s.discountCache.GetActiveDiscount(ctx)
		if err == nil && hit {
			if d == nil {
				return nil, repository.ErrNotFound
			}
			return d, nil
		}
	}

	d, err := s.discountRepo.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if s.discountCache != nil {
		_ = s.discountCache.SetActiveDiscount(ctx, d)
	}
	return d, nil
}

func (s *PricingService) announce(ctx context.Context, d *domain.Discount) {
	passengers, err := s.passengerRepo.GetAll(ctx)
	if err != nil {
		s.logger.Warn("discount announcement skipped", zap.Error(err))
		return
	}

	payload := map[string]any{
		"code":       d.Code,
		"percentage": d.Percentage,
		"validTo":    d.ValidTo,
		"message":    fmt.Sprintf("Use %s for %.0f%% off your next ride", d.Code, d.Percentage),
	}
	for _, p := range passengers {
		if err := s.emitter.EmitToRoom(ctx, p.ID, EventDiscountNew, payload); err != nil {
			s.logger.Debug("discount emit failed",
				zap.String("passenger_id", p.ID),
				zap.Error(err))
		}
	}
}
