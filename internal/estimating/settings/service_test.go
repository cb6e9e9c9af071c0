package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
)

type memoryRepo struct {
	stored map[string]pricing.Settings
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{stored: make(map[string]pricing.Settings)}
}

func (r *memoryRepo) Get(ctx context.Context, tenantID string) (pricing.Settings, error) {
	if settings, ok := r.stored[tenantID]; ok {
		return settings, nil
	}
	return Defaults(), nil
}

func (r *memoryRepo) Upsert(ctx context.Context, tenantID string, settings pricing.Settings) error {
	r.stored[tenantID] = settings
	return nil
}

func TestGetFallsBackToDefaults(t *testing.T) {
	service := NewService(newMemoryRepo(), "tenant-main")

	settings, err := service.Get(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 20, settings.VATRate, 1e-9)
	require.Equal(t, pricing.RoundingNone, settings.RoundingMode)
	require.Equal(t, pricing.ModeCostPlus, settings.PricingMode)
}

func TestUpdateStoresSettings(t *testing.T) {
	service := NewService(newMemoryRepo(), "tenant-main")

	updated, err := service.Update(context.Background(), pricing.Settings{
		VATRate:         20,
		LabourBurdenPct: 12,
		OverheadPct:     8,
		MarginPct:       18,
		RoundingMode:    pricing.RoundingNearest5,
		PricingMode:     pricing.ModeCostPlus,
		CategoryWastage: map[string]float64{"timber": 10},
	})
	require.NoError(t, err)
	require.InDelta(t, 18, updated.MarginPct, 1e-9)

	reloaded, err := service.Get(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 10, reloaded.CategoryWastage["timber"], 1e-9)
}

func TestUpdateRejectsNegativePercentages(t *testing.T) {
	service := NewService(newMemoryRepo(), "tenant-main")

	cases := []pricing.Settings{
		{VATRate: -1, RoundingMode: pricing.RoundingNone, PricingMode: pricing.ModeCostPlus},
		{MarginPct: -5, RoundingMode: pricing.RoundingNone, PricingMode: pricing.ModeCostPlus},
		{RoundingMode: pricing.RoundingNone, PricingMode: pricing.ModeCostPlus,
			CategoryWastage: map[string]float64{"timber": -2}},
	}
	for _, payload := range cases {
		_, err := service.Update(context.Background(), payload)
		require.ErrorIs(t, err, ErrValidation)
	}
}

func TestUpdateRejectsUnknownEnums(t *testing.T) {
	service := NewService(newMemoryRepo(), "tenant-main")

	_, err := service.Update(context.Background(), pricing.Settings{
		RoundingMode: "nearest_100", PricingMode: pricing.ModeCostPlus,
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = service.Update(context.Background(), pricing.Settings{
		RoundingMode: pricing.RoundingNone, PricingMode: "cost_minus",
	})
	require.ErrorIs(t, err, ErrValidation)
}
