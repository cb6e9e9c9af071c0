package pricing

// ComputeEstimateTotals maps PriceLine over every line and sums the ex-VAT
// prices and VAT amounts independently. VAT is never re-derived from the
// summed subtotal because individual lines may round differently.
// No side effects; safe to call repeatedly for live recalculation.
func ComputeEstimateTotals(settings Settings, lines []LineInput) EstimateTotals {
	totals := EstimateTotals{Breakdowns: make([]LineBreakdown, 0, len(lines))}
	for _, line := range lines {
		breakdown := PriceLine(settings, line)
		totals.Breakdowns = append(totals.Breakdowns, breakdown)
		totals.SubtotalExVAT += breakdown.PriceExVAT
		totals.VAT += breakdown.VAT
	}
	totals.Total = totals.SubtotalExVAT + totals.VAT
	return totals
}
