package estimates

import (
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/workflow"
)

type CreateEstimateRequest struct {
	Title        string                 `json:"title" validate:"required,max=200"`
	CustomerName string                 `json:"customer_name" validate:"required,max=200"`
	LayoutID     *int64                 `json:"layout_id,omitempty"`
	Notes        *string                `json:"notes,omitempty"`
	Sections     []CreateSectionRequest `json:"sections,omitempty" validate:"dive"`
	Lines        []CreateLineRequest    `json:"lines,omitempty" validate:"dive"`
}

type CreateSectionRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
}

type CreateLineRequest struct {
	SectionIndex    *int             `json:"section_index,omitempty"`
	ItemType        pricing.ItemType `json:"item_type" validate:"required,oneof=labour material plant subcontract"`
	Category        string           `json:"category,omitempty" validate:"max=100"`
	Title           string           `json:"title" validate:"required,max=200"`
	Description     string           `json:"description,omitempty"`
	Tag             string           `json:"tag,omitempty" validate:"max=100"`
	Quantity        float64          `json:"quantity" validate:"gte=0"`
	Unit            string           `json:"unit" validate:"max=20"`
	UnitCost        float64          `json:"unit_cost" validate:"gte=0"`
	FixedPriceExVAT *float64         `json:"fixed_price_ex_vat,omitempty" validate:"omitempty,gte=0"`
	MarkupPctOver   *float64         `json:"markup_pct_override,omitempty" validate:"omitempty,gte=0"`
	WastagePctOver  *float64         `json:"wastage_pct_override,omitempty" validate:"omitempty,gte=0"`
	LineOrder       int              `json:"line_order" validate:"gte=0"`
}

type UpdateEstimateRequest struct {
	Title        *string              `json:"title,omitempty" validate:"omitempty,max=200"`
	CustomerName *string              `json:"customer_name,omitempty" validate:"omitempty,max=200"`
	LayoutID     *int64               `json:"layout_id,omitempty"`
	Notes        *string              `json:"notes,omitempty"`
	Lines        *[]CreateLineRequest `json:"lines,omitempty" validate:"omitempty,dive"`
}

type TransitionRequest struct {
	To   workflow.Status `json:"to" validate:"required"`
	Note string          `json:"note,omitempty" validate:"max=500"`
}

type ListEstimatesRequest struct {
	Status *workflow.Status `json:"status,omitempty"`
	Search string           `json:"search,omitempty"`
	Limit  int              `json:"limit" validate:"gte=0,lte=1000"`
	Offset int              `json:"offset" validate:"gte=0"`
}
