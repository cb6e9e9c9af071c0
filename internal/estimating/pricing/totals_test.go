package pricing

import (
	"math"
	"testing"
)

func TestComputeEstimateTotalsEmpty(t *testing.T) {
	totals := ComputeEstimateTotals(baseSettings(), nil)
	if totals.SubtotalExVAT != 0 || totals.VAT != 0 || totals.Total != 0 {
		t.Fatalf("empty estimate should total zero, got %+v", totals)
	}
	if len(totals.Breakdowns) != 0 {
		t.Fatalf("expected no breakdowns, got %d", len(totals.Breakdowns))
	}
}

func TestComputeEstimateTotalsSumsPerLine(t *testing.T) {
	settings := baseSettings()
	lines := []LineInput{
		{ItemType: ItemTypeLabour, Quantity: 10, UnitCost: 20},
		{ItemType: ItemTypeMaterial, Quantity: 4, UnitCost: 12.3},
		{ItemType: ItemTypePlant, Quantity: 1, UnitCost: 250},
	}
	totals := ComputeEstimateTotals(settings, lines)

	if len(totals.Breakdowns) != len(lines) {
		t.Fatalf("breakdowns = %d, want %d", len(totals.Breakdowns), len(lines))
	}
	var subtotal, vat float64
	for _, b := range totals.Breakdowns {
		subtotal += b.PriceExVAT
		vat += b.VAT
	}
	if math.Abs(totals.SubtotalExVAT-subtotal) > 1e-9 {
		t.Fatalf("subtotal = %v, want %v", totals.SubtotalExVAT, subtotal)
	}
	if math.Abs(totals.VAT-vat) > 1e-9 {
		t.Fatalf("vat = %v, want %v", totals.VAT, vat)
	}
	if math.Abs(totals.Total-(subtotal+vat)) > 1e-9 {
		t.Fatalf("total = %v, want %v", totals.Total, subtotal+vat)
	}
}

// Per-line rounding means summed VAT can differ from re-multiplying the summed
// subtotal; the aggregator must sum lines, never rederive.
func TestComputeEstimateTotalsVATNotRederived(t *testing.T) {
	settings := baseSettings()
	settings.RoundingMode = RoundingNearest5
	lines := []LineInput{
		{ItemType: ItemTypeMaterial, Quantity: 1, UnitCost: 101},
		{ItemType: ItemTypeMaterial, Quantity: 1, UnitCost: 103},
	}
	totals := ComputeEstimateTotals(settings, lines)
	var want float64
	for _, b := range totals.Breakdowns {
		want += b.VAT
	}
	if totals.VAT != want {
		t.Fatalf("vat = %v, want per-line sum %v", totals.VAT, want)
	}
}
