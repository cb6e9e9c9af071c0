package buycost

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	costs map[string]BuyCost
	gets  int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{costs: make(map[string]BuyCost)}
}

func (r *memoryRepo) Upsert(ctx context.Context, cost BuyCost) error {
	r.costs[cost.MaterialName+"|"+cost.Unit] = cost
	return nil
}

func (r *memoryRepo) List(ctx context.Context) ([]BuyCost, error) {
	var out []BuyCost
	for _, cost := range r.costs {
		out = append(out, cost)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, materialName, unit string) (*BuyCost, error) {
	r.gets++
	cost, ok := r.costs[materialName+"|"+unit]
	if !ok {
		return nil, ErrNotFound
	}
	return &cost, nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := newMemoryRepo()
	return NewService(repo, client, "tenant-main"), repo
}

func TestRecordThenLookupServesFromCache(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()
	observed := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, service.Record(ctx, "Plasterboard 12.5mm", "sheet", 8.4, observed))

	cost, err := service.Lookup(ctx, "Plasterboard 12.5mm", "sheet")
	require.NoError(t, err)
	require.InDelta(t, 8.4, cost.UnitCost, 1e-9)
	require.Equal(t, 0, repo.gets)
}

func TestLookupFallsBackToDatabase(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()

	repo.costs["Cement|bag"] = BuyCost{TenantID: "tenant-main", MaterialName: "Cement", Unit: "bag", UnitCost: 6.2}

	cost, err := service.Lookup(ctx, "Cement", "bag")
	require.NoError(t, err)
	require.InDelta(t, 6.2, cost.UnitCost, 1e-9)
	require.Equal(t, 1, repo.gets)

	// Second lookup is served from the backfilled cache entry.
	_, err = service.Lookup(ctx, "Cement", "bag")
	require.NoError(t, err)
	require.Equal(t, 1, repo.gets)
}

func TestLookupUnknownMaterial(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Lookup(context.Background(), "Unobtainium", "kg")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestWarmCachePopulatesRedis(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()

	repo.costs["Cement|bag"] = BuyCost{TenantID: "tenant-main", MaterialName: "Cement", Unit: "bag", UnitCost: 6.2}
	repo.costs["Sand|tonne"] = BuyCost{TenantID: "tenant-main", MaterialName: "Sand", Unit: "tonne", UnitCost: 38}

	warmed, err := service.WarmCache(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, warmed)

	_, err = service.Lookup(ctx, "Sand", "tonne")
	require.NoError(t, err)
	require.Equal(t, 0, repo.gets)
}

func TestRecordOverwritesPreviousCost(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, service.Record(ctx, "Cement", "bag", 6.2, time.Now()))
	require.NoError(t, service.Record(ctx, "Cement", "bag", 6.9, time.Now()))

	cost, err := service.Lookup(ctx, "Cement", "bag")
	require.NoError(t, err)
	require.InDelta(t, 6.9, cost.UnitCost, 1e-9)
}
