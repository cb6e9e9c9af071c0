package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
)

// ErrValidation indicates an invalid settings payload.
var ErrValidation = errors.New("settings: validation failed")

// Service manages the tenant pricing configuration.
type Service struct {
	repo     Repository
	tenantID string
}

// NewService constructs the settings service.
func NewService(repo Repository, tenantID string) *Service {
	return &Service{repo: repo, tenantID: tenantID}
}

// Get returns the tenant's effective pricing settings.
func (s *Service) Get(ctx context.Context) (pricing.Settings, error) {
	return s.repo.Get(ctx, s.tenantID)
}

// Update validates and stores new settings.
func (s *Service) Update(ctx context.Context, settings pricing.Settings) (pricing.Settings, error) {
	if err := validate(settings); err != nil {
		return pricing.Settings{}, err
	}
	if err := s.repo.Upsert(ctx, s.tenantID, settings); err != nil {
		return pricing.Settings{}, fmt.Errorf("store settings: %w", err)
	}
	return s.repo.Get(ctx, s.tenantID)
}

func validate(settings pricing.Settings) error {
	for name, pct := range map[string]float64{
		"vat_rate":          settings.VATRate,
		"labour_burden_pct": settings.LabourBurdenPct,
		"overhead_pct":      settings.OverheadPct,
		"margin_pct":        settings.MarginPct,
	} {
		if pct < 0 {
			return fmt.Errorf("%w: %s must be non-negative", ErrValidation, name)
		}
	}
	for category, pct := range settings.CategoryWastage {
		if pct < 0 {
			return fmt.Errorf("%w: wastage for %q must be non-negative", ErrValidation, category)
		}
	}
	switch settings.RoundingMode {
	case pricing.RoundingNone, pricing.RoundingNearest1, pricing.RoundingNearest5, pricing.RoundingNearest10:
	default:
		return fmt.Errorf("%w: unknown rounding mode %q", ErrValidation, settings.RoundingMode)
	}
	switch settings.PricingMode {
	case pricing.ModeCostPlus, pricing.ModePriceOnly:
	default:
		return fmt.Errorf("%w: unknown pricing mode %q", ErrValidation, settings.PricingMode)
	}
	return nil
}
