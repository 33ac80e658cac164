package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hail/internal/domain"
	"hail/internal/repository"
)

const (
	defaultSweepInterval = 5 * time.Second
	sweepBatchLimit      = 100
)

// ExpiryService fails pending rides past their deadline. Deadlines are
// persisted on the ride row, so rides stranded by a crash are swept on the
// next start instead of leaking.
type ExpiryService struct {
	rideRepo repository.RideRepository
	emitter  RoomEmitter
	interval time.Duration
	logger   *zap.Logger
}

// NewExpiryService creates a new ExpiryService. interval <= 0 uses the
// default sweep interval.
func NewExpiryService(rideRepo repository.RideRepository, emitter RoomEmitter, interval time.Duration, logger *zap.Logger) *ExpiryService {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &ExpiryService{
		rideRepo: rideRepo,
		emitter:  emitter,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on a ticker until ctx is cancelled. An immediate sweep runs
// first.
func (s *ExpiryService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep fails every pending ride whose deadline has passed. Each ride moves
// through the same conditional update acceptances use, so a concurrent
// acceptance wins cleanly and the expiry is dropped.
func (s *ExpiryService) Sweep(ctx context.Context) {
	expired, err := s.rideRepo.FindExpired(ctx, time.Now(), sweepBatchLimit)
	if err != nil {
		s.logger.Error("expiry scan failed", zap.Error(err))
		return
	}

	for _, ride := range expired {
		ok, err := s.rideRepo.UpdateStatus(ctx, ride.ID,
			[]domain.RideStatus{domain.RideStatusPending, domain.RideStatusPendingPool},
			domain.RideStatusFailed)
		if err != nil {
			s.logger.Error("expiry update failed", zap.String("ride_id", ride.ID), zap.Error(err))
			continue
		}
		if !ok {
			// Accepted or cancelled since the scan.
			continue
		}

		s.logger.Info("ride expired", zap.String("ride_id", ride.ID))

		payload := map[string]any{"rideId": ride.ID, "reason": "no driver accepted in time"}
		for _, p := range ride.Passengers {
			if err := s.emitter.EmitToRoom(ctx, p.ID, EventRideFailed, payload); err != nil {
				s.logger.Warn("expiry emit failed",
					zap.String("ride_id", ride.ID),
					zap.String("passenger_id", p.ID),
					zap.Error(err))
			}
		}
	}
}
