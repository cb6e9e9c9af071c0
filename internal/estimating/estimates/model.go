package estimates

import (
	"time"

	"github.com/google/uuid"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/workflow"
)

// Estimate is a priced proposal for a scope of construction work.
type Estimate struct {
	ID                      int64           `json:"id"`
	TenantID                string          `json:"tenant_id"`
	Title                   string          `json:"title"`
	CustomerName            string          `json:"customer_name"`
	Status                  workflow.Status `json:"workflow_status"`
	Revision                int64           `json:"revision"`
	LayoutID                *int64          `json:"layout_id,omitempty"`
	SubtotalExVAT           float64         `json:"subtotal_ex_vat"`
	VAT                     float64         `json:"vat"`
	Total                   float64         `json:"total"`
	ConvertedProjectID      *int64          `json:"converted_project_id,omitempty"`
	ConvertedQuoteVersionID *uuid.UUID      `json:"converted_from_quote_version_id,omitempty"`
	ConvertedAt             *time.Time      `json:"converted_at,omitempty"`
	StatusChangedAt         *time.Time      `json:"status_changed_at,omitempty"`
	Notes                   *string         `json:"notes,omitempty"`
	CreatedBy               int64           `json:"created_by"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
	Lines                   []EstimateLine  `json:"lines,omitempty"`
	Sections                []Section       `json:"sections,omitempty"`
}

// EstimateLine is one editable line item. The computed price fields are stored
// for listing convenience but are always re-derivable from the raw inputs plus
// the tenant pricing settings.
type EstimateLine struct {
	ID              int64            `json:"id"`
	EstimateID      int64            `json:"estimate_id"`
	SectionID       *int64           `json:"section_id,omitempty"`
	ItemType        pricing.ItemType `json:"item_type"`
	Category        string           `json:"category,omitempty"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	Tag             string           `json:"tag,omitempty"`
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

// Section groups lines for presentation and rule matching.
type Section struct {
	ID         int64  `json:"id"`
	EstimateID int64  `json:"estimate_id"`
	Title      string `json:"title"`
	SortOrder  int    `json:"sort_order"`
}

// QuoteVersion is an immutable priced snapshot of an estimate at a point in
// time. Snapshots are never recomputed from the live estimate.
type QuoteVersion struct {
	ID               uuid.UUID         `json:"id"`
	EstimateID       int64             `json:"estimate_id"`
	VersionNumber    int               `json:"version_number"`
	VATRate          float64           `json:"vat_rate"`
	SubtotalExVAT    float64           `json:"subtotal_ex_vat"`
	VAT              float64           `json:"vat"`
	Total            float64           `json:"total"`
	ItemsSnapshot    []SnapshotItem    `json:"items_snapshot"`
	SectionsSnapshot []SnapshotSection `json:"sections_snapshot"`
	CreatedBy        int64             `json:"created_by"`
	CreatedAt        time.Time         `json:"created_at"`
}

// SnapshotItem freezes one line at snapshot time, cost side and sell side.
type SnapshotItem struct {
	ID          int64            `json:"id"`
	SectionID   *int64           `json:"section_id,omitempty"`
	ItemType    pricing.ItemType `json:"item_type"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Tag         string           `json:"tag,omitempty"`
	Quantity    float64          `json:"quantity"`
	Unit        string           `json:"unit"`
	UnitCost    float64          `json:"unit_cost"`
	LineCost    float64          `json:"line_cost"`
	PriceExVAT  float64          `json:"price_ex_vat"`
	VAT         float64          `json:"vat"`
	TotalIncVAT float64          `json:"total_inc_vat"`
}

// SnapshotSection freezes a section for title matching during grouping.
type SnapshotSection struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}
