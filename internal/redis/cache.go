package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"hail/internal/domain"
)

// DiscountCacheTTL bounds staleness of the active-discount cache. Every
// ride quote reads the discount, so the cache keeps that off Postgres.
const DiscountCacheTTL = 30 * time.Second

const activeDiscountKey = "cache:discount:active"

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// cachedDiscount is the cache representation of the active discount. A
// present key with Missing=true caches the "no active discount" answer.
type cachedDiscount struct {
	Missing    bool      `json:"missing"`
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Percentage float64   `json:"percentage"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidTo    time.Time `json:"valid_to"`
}

// GetActiveDiscount returns the cached active discount. The second return
// reports a cache hit; on a hit the discount may still be nil, meaning
// "no active discount" is cached.
func (s *CacheStore) GetActiveDiscount(ctx context.Context) (*domain.Discount, bool, error) {
	data, err := s.client.Get(ctx, activeDiscountKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}

	var cached cachedDiscount
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false, err
	}

	if cached.Missing {
		return nil, true, nil
	}
	return &domain.Discount{
		ID:         cached.ID,
		Code:       cached.Code,
		Percentage: cached.Percentage,
		ValidFrom:  cached.ValidFrom,
		ValidTo:    cached.ValidTo,
		IsActive:   true,
	}, true, nil
}

// SetActiveDiscount caches the active discount. Pass nil to cache the
// absence of one.
func (s *CacheStore) SetActiveDiscount(ctx context.Context, d *domain.Discount) error {
	cached := cachedDiscount{Missing: d == nil}
	if d != nil {
		cached.ID = d.ID
		cached.Code = d.Code
		cached.Percentage = d.Percentage
		cached.ValidFrom = d.ValidFrom
		cached.ValidTo = d.ValidTo
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, activeDiscountKey, data, DiscountCacheTTL).Err()
}

// InvalidateActiveDiscount drops the cached discount. Called when a new
// discount is activated.
func (s *CacheStore) InvalidateActiveDiscount(ctx context.Context) error {
	return s.client.Del(ctx, activeDiscountKey).Err()
}
