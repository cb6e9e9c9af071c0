package variations

import (
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/workflow"
)

type CreateVariationRequest struct {
	EstimateID  int64               `json:"estimate_id" validate:"required,gt=0"`
	Title       string              `json:"title" validate:"required,max=200"`
	Description string              `json:"description,omitempty"`
	Lines       []CreateLineRequest `json:"lines" validate:"dive"`
}

type CreateLineRequest struct {
	ItemType        pricing.ItemType `json:"item_type" validate:"required,oneof=labour material plant subcontract"`
	Category        string           `json:"category,omitempty" validate:"max=100"`
	Title           string           `json:"title" validate:"required,max=200"`
	Description     string           `json:"description,omitempty"`
	Quantity        float64          `json:"quantity"`
	Unit            string           `json:"unit" validate:"max=20"`
	UnitCost        float64          `json:"unit_cost" validate:"gte=0"`
	FixedPriceExVAT *float64         `json:"fixed_price_ex_vat,omitempty"`
	MarkupPctOver   *float64         `json:"markup_pct_override,omitempty" validate:"omitempty,gte=0"`
	WastagePctOver  *float64         `json:"wastage_pct_override,omitempty" validate:"omitempty,gte=0"`
	LineOrder       int              `json:"line_order" validate:"gte=0"`
}

type UpdateVariationRequest struct {
	Title       *string             `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string             `json:"description,omitempty"`
	Lines       []CreateLineRequest `json:"lines,omitempty" validate:"omitempty,dive"`
}

type TransitionRequest struct {
	To   workflow.Status `json:"to" validate:"required"`
	Note string          `json:"note,omitempty" validate:"max=500"`
}
