package pricing

// ItemType classifies an estimate line item.
type ItemType string

const (
	ItemTypeLabour      ItemType = "labour"
	ItemTypeMaterial    ItemType = "material"
	ItemTypePlant       ItemType = "plant"
	ItemTypeSubcontract ItemType = "subcontract"
)

// RoundingMode controls how the ex-VAT price is rounded.
type RoundingMode string

const (
	RoundingNone      RoundingMode = "none"
	RoundingNearest1  RoundingMode = "nearest_1"
	RoundingNearest5  RoundingMode = "nearest_5"
	RoundingNearest10 RoundingMode = "nearest_10"
)

// PricingMode selects how the ex-VAT price is derived from cost.
type PricingMode string

const (
	ModeCostPlus  PricingMode = "cost_plus"
	ModePriceOnly PricingMode = "price_only"
)

// Settings holds tenant-wide pricing configuration.
// All percentage fields are expressed as whole percentages (20 = 20%).
type Settings struct {
	VATRate         float64            `json:"vat_rate"`
	LabourBurdenPct float64            `json:"labour_burden_pct"`
	OverheadPct     float64            `json:"overhead_pct"`
	MarginPct       float64            `json:"margin_pct"`
	RoundingMode    RoundingMode       `json:"rounding_mode"`
	PricingMode     PricingMode        `json:"pricing_mode"`
	CategoryWastage map[string]float64 `json:"category_wastage"`
}

// LineInput carries the raw quantity/cost inputs for one line item.
// Pointer fields are optional overrides; nil means "use the settings default".
// Missing numerics price as zero so partially filled draft lines still compute.
type LineInput struct {
	ItemType        ItemType `json:"item_type"`
	Category        string   `json:"category,omitempty"`
	Quantity        float64  `json:"quantity"`
	UnitCost        float64  `json:"unit_cost"`
	FixedPriceExVAT *float64 `json:"fixed_price_ex_vat,omitempty"`
	MarkupPctOver   *float64 `json:"markup_pct_override,omitempty"`
	WastagePctOver  *float64 `json:"wastage_pct_override,omitempty"`
}

// LineBreakdown is the full computed cost/markup/VAT decomposition of one line.
// It is always re-derivable from LineInput plus Settings and is never the
// persisted source of truth.
type LineBreakdown struct {
	BaseCost         float64 `json:"base_cost"`
	WastageCost      float64 `json:"wastage_cost"`
	LabourBurdenCost float64 `json:"labour_burden_cost"`
	OverheadCost     float64 `json:"overhead_cost"`
	MarginCost       float64 `json:"margin_cost"`
	PriceExVAT       float64 `json:"price_ex_vat"`
	VAT              float64 `json:"vat"`
	TotalIncVAT      float64 `json:"total_inc_vat"`
}

// EstimateTotals aggregates line breakdowns across an estimate.
type EstimateTotals struct {
	Breakdowns    []LineBreakdown `json:"breakdowns"`
	SubtotalExVAT float64         `json:"subtotal_ex_vat"`
	VAT           float64         `json:"vat"`
	Total         float64         `json:"total"`
}
