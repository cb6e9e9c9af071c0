package buycost

import "time"

// BuyCost is the most recent observed cost for a material, keyed by material
// name and unit. Conversion records one entry per purchased material so
// future estimates can default to the last real price.
type BuyCost struct {
	TenantID     string    `json:"tenant_id"`
	MaterialName string    `json:"material_name"`
	Unit         string    `json:"unit"`
	UnitCost     float64   `json:"unit_cost"`
	ObservedAt   time.Time `json:"observed_at"`
}
