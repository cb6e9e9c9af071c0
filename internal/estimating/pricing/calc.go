package pricing

import "math"

// PriceLine converts one line's quantity/cost inputs plus tenant settings into
// a full cost/markup/VAT breakdown. Pure and deterministic; no I/O.
func PriceLine(settings Settings, line LineInput) LineBreakdown {
	baseCost := line.Quantity * line.UnitCost

	wastagePct := effectiveWastagePct(settings, line)
	wastageCost := baseCost * (wastagePct / 100)
	costBeforeBurden := baseCost + wastageCost

	var burdenCost float64
	if line.ItemType == ItemTypeLabour {
		burdenCost = costBeforeBurden * (settings.LabourBurdenPct / 100)
	}
	costAfterBurden := costBeforeBurden + burdenCost

	overheadCost := costAfterBurden * (settings.OverheadPct / 100)
	costAfterOverhead := costAfterBurden + overheadCost

	marginPct := settings.MarginPct
	if line.MarkupPctOver != nil {
		marginPct = *line.MarkupPctOver
	}

	var priceExVAT, marginCost float64
	switch {
	case line.FixedPriceExVAT != nil:
		// A fixed price always wins, even under cost_plus. The cost side still
		// accrues wastage/burden/overhead for the audit breakdown, and the
		// displayed margin is clamped so an undercutting fixed price never
		// shows negative.
		priceExVAT = *line.FixedPriceExVAT
		marginCost = math.Max(0, priceExVAT-costAfterOverhead)
	case settings.PricingMode == ModePriceOnly:
		priceExVAT = costAfterOverhead
	default:
		marginCost = costAfterOverhead * (marginPct / 100)
		priceExVAT = costAfterOverhead + marginCost
	}

	priceExVAT = Round(priceExVAT, settings.RoundingMode)
	if line.FixedPriceExVAT != nil {
		marginCost = math.Max(0, priceExVAT-costAfterOverhead)
	}

	vat := priceExVAT * (settings.VATRate / 100)

	return LineBreakdown{
		BaseCost:         baseCost,
		WastageCost:      wastageCost,
		LabourBurdenCost: burdenCost,
		OverheadCost:     overheadCost,
		MarginCost:       marginCost,
		PriceExVAT:       priceExVAT,
		VAT:              vat,
		TotalIncVAT:      priceExVAT + vat,
	}
}

// Round rounds an ex-VAT price to the step implied by the mode using banker's
// rounding. Intermediate cost components are never rounded.
func Round(price float64, mode RoundingMode) float64 {
	step := 0.0
	switch mode {
	case RoundingNearest1:
		step = 1
	case RoundingNearest5:
		step = 5
	case RoundingNearest10:
		step = 10
	default:
		return price
	}
	return math.RoundToEven(price/step) * step
}

func effectiveWastagePct(settings Settings, line LineInput) float64 {
	if line.WastagePctOver != nil {
		return *line.WastagePctOver
	}
	if line.Category != "" {
		if pct, ok := settings.CategoryWastage[line.Category]; ok {
			return pct
		}
	}
	return 0
}
