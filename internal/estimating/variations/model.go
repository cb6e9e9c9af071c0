package variations

import (
	"time"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/workflow"
)

// Variation is a proposed change order against an estimate. It carries its own
// line items and moves through its own status flow; approval folds its totals
// into the parent estimate.
type Variation struct {
	ID              int64           `json:"id"`
	TenantID        string          `json:"tenant_id"`
	EstimateID      int64           `json:"estimate_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Status          workflow.Status `json:"status"`
	Revision        int64           `json:"revision"`
	SubtotalExVAT   float64         `json:"subtotal_ex_vat"`
	VAT             float64         `json:"vat"`
	Total           float64         `json:"total"`
	StatusChangedAt *time.Time      `json:"status_changed_at,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	CreatedBy       int64           `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Lines []VariationLine `json:"lines,omitempty"`
}

// VariationLine is one priced line of a variation. Negative quantities are
// allowed so a variation can deduct scope from the original estimate.
type VariationLine struct {
	ID              int64            `json:"id"`
	VariationID     int64            `json:"variation_id"`
	ItemType        pricing.ItemType `json:"item_type"`
	Category        string           `json:"category,omitempty"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	Quantity        float64          `json:"quantity"`
	Unit            string           `json:"unit"`
	UnitCost        float64          `json:"unit_cost"`
	FixedPriceExVAT *float64         `json:"fixed_price_ex_vat,omitempty"`
	MarkupPctOver   *float64         `json:"markup_pct_override,omitempty"`
	WastagePctOver  *float64         `json:"wastage_pct_override,omitempty"`
	PriceExVAT      float64          `json:"price_ex_vat"`
	VAT             float64          `json:"vat"`
	LineTotal       float64          `json:"line_total"`
	LineOrder       int              `json:"line_order"`
}
