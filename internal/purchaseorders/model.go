package purchaseorders

import (
	"time"

	"github.com/google/uuid"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
)

// PurchaseOrder instructs a supplier to deliver materials or plant carved out
// of an accepted quote.
type PurchaseOrder struct {
	ID             int64     `json:"id"`
	TenantID       string    `json:"tenant_id"`
	ProjectID      int64     `json:"project_id"`
	QuoteVersionID uuid.UUID `json:"quote_version_id"`
	Party          string    `json:"party"`
	DocumentTitle  string    `json:"document_title"`
	RuleID         *int64    `json:"rule_id,omitempty"`
	Subtotal       float64   `json:"subtotal"`
	VAT            float64   `json:"vat"`
	Total          float64   `json:"total"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Lines []Line `json:"lines,omitempty"`
}

// Line is an immutable snapshot of one quote version item assigned to this
// purchase order, copied at conversion time.
type Line struct {
	ID              int64            `json:"id"`
	PurchaseOrderID int64            `json:"purchase_order_id"`
	SourceItemID    int64            `json:"source_item_id"`
	ItemType        pricing.ItemType `json:"item_type"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	Quantity        float64          `json:"quantity"`
	Unit            string           `json:"unit"`
	UnitCost        float64          `json:"unit_cost"`
	LineTotal       float64          `json:"line_total"`
}

// StatusIssued is the only status conversion ever writes.
const StatusIssued = "issued"
