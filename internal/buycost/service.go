package buycost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a cached cost is served without consulting the
// database. Costs change rarely, so an hour of staleness is acceptable.
const DefaultTTL = time.Hour

// Service is a read-through cache over the last observed buy costs. Reads hit
// Redis first and fall back to PostgreSQL; writes go to PostgreSQL and then
// refresh the cache entry.
type Service struct {
	repo     Repository
	cache    *redis.Client
	tenantID string
	ttl      time.Duration
}

// NewService constructs the service. A nil cache client degrades to direct
// database reads.
func NewService(repo Repository, cache *redis.Client, tenantID string) *Service {
	return &Service{repo: repo, cache: cache, tenantID: tenantID, ttl: DefaultTTL}
}

// Record stores a newly observed cost and refreshes the cache entry.
func (s *Service) Record(ctx context.Context, materialName, unit string, unitCost float64, observedAt time.Time) error {
	cost := BuyCost{
		TenantID:     s.tenantID,
		MaterialName: materialName,
		Unit:         unit,
		UnitCost:     unitCost,
		ObservedAt:   observedAt,
	}
	if err := s.repo.Upsert(ctx, cost); err != nil {
		return fmt.Errorf("upsert buy cost: %w", err)
	}
	s.cacheSet(ctx, cost)
	return nil
}

// Lookup returns the last observed cost for a material, or ErrNotFound when
// none has been recorded.
func (s *Service) Lookup(ctx context.Context, materialName, unit string) (*BuyCost, error) {
	if s.cache != nil {
		payload, err := s.cache.Get(ctx, s.key(materialName, unit)).Bytes()
		if err == nil {
			var cost BuyCost
			if err := json.Unmarshal(payload, &cost); err == nil {
				return &cost, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("buycost cache get: %w", err)
		}
	}

	cost, err := s.repo.Get(ctx, materialName, unit)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, *cost)
	return cost, nil
}

// WarmCache loads every persisted cost into Redis. Run from the background
// worker after a deploy or cache flush.
func (s *Service) WarmCache(ctx context.Context) (int, error) {
	costs, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list buy costs: %w", err)
	}
	for _, cost := range costs {
		s.cacheSet(ctx, cost)
	}
	return len(costs), nil
}

func (s *Service) cacheSet(ctx context.Context, cost BuyCost) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(cost)
	if err != nil {
		return
	}
	// Cache writes are best effort; the database row is the source of truth.
	s.cache.Set(ctx, s.key(cost.MaterialName, cost.Unit), payload, s.ttl)
}

func (s *Service) key(materialName, unit string) string {
	return fmt.Sprintf("buycost:%s:%s:%s", s.tenantID,
		strings.ToLower(strings.TrimSpace(materialName)),
		strings.ToLower(strings.TrimSpace(unit)))
}
