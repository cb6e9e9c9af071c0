package settings

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
)

// Repository persists tenant pricing settings.
type Repository interface {
	Get(ctx context.Context, tenantID string) (pricing.Settings, error)
	Upsert(ctx context.Context, tenantID string, settings pricing.Settings) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Get returns the tenant's settings, or safe defaults when none are stored yet.
func (r *repository) Get(ctx context.Context, tenantID string) (pricing.Settings, error) {
	var settings pricing.Settings
	var wastageJSON []byte
	err := r.pool.QueryRow(ctx, `SELECT vat_rate, labour_burden_pct, overhead_pct, margin_pct, rounding_mode, pricing_mode, category_wastage
FROM pricing_settings WHERE tenant_id=$1`, tenantID).
		Scan(&settings.VATRate, &settings.LabourBurdenPct, &settings.OverheadPct, &settings.MarginPct,
			&settings.RoundingMode, &settings.PricingMode, &wastageJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Defaults(), nil
		}
		return pricing.Settings{}, err
	}
	if len(wastageJSON) > 0 {
		if err := json.Unmarshal(wastageJSON, &settings.CategoryWastage); err != nil {
			return pricing.Settings{}, err
		}
	}
	return settings, nil
}

func (r *repository) Upsert(ctx context.Context, tenantID string, settings pricing.Settings) error {
	wastageJSON, err := json.Marshal(settings.CategoryWastage)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO pricing_settings
(tenant_id, vat_rate, labour_burden_pct, overhead_pct, margin_pct, rounding_mode, pricing_mode, category_wastage, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
ON CONFLICT (tenant_id) DO UPDATE SET
vat_rate=EXCLUDED.vat_rate, labour_burden_pct=EXCLUDED.labour_burden_pct, overhead_pct=EXCLUDED.overhead_pct,
margin_pct=EXCLUDED.margin_pct, rounding_mode=EXCLUDED.rounding_mode, pricing_mode=EXCLUDED.pricing_mode,
category_wastage=EXCLUDED.category_wastage, updated_at=NOW()`,
		tenantID, settings.VATRate, settings.LabourBurdenPct, settings.OverheadPct, settings.MarginPct,
		settings.RoundingMode, settings.PricingMode, wastageJSON)
	return err
}

// Defaults are applied for tenants that have never saved settings.
func Defaults() pricing.Settings {
	return pricing.Settings{
		VATRate:      20,
		RoundingMode: pricing.RoundingNone,
		PricingMode:  pricing.ModeCostPlus,
	}
}
