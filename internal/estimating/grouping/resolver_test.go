package grouping

import (
	"reflect"
	"testing"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
)

func materialType() *pricing.ItemType {
	t := pricing.ItemTypeMaterial
	return &t
}

func labourType() *pricing.ItemType {
	t := pricing.ItemTypeLabour
	return &t
}

func strptr(s string) *string { return &s }

func TestResolveFirstMatchWinsOverMoreSpecific(t *testing.T) {
	rules := []GroupRule{
		{ID: 1, Priority: 1, RuleType: RuleTypePurchaseOrder, MatchItemType: materialType(), TargetParty: "General Supplies"},
		{ID: 2, Priority: 2, RuleType: RuleTypePurchaseOrder, MatchItemType: materialType(), MatchTitleContains: strptr("paint"), TargetParty: "Paint Shop"},
	}
	items := []Item{{ID: 10, ItemType: pricing.ItemTypeMaterial, Title: "Paint, 5L"}}

	plan := Resolve(items, nil, rules)
	if len(plan.PurchaseOrders) != 1 {
		t.Fatalf("purchase orders = %d, want 1", len(plan.PurchaseOrders))
	}
	if plan.PurchaseOrders[0].Party != "General Supplies" {
		t.Fatalf("party = %q, want priority-1 bucket", plan.PurchaseOrders[0].Party)
	}
}

func TestResolveUnmatchedLabourFallsBack(t *testing.T) {
	items := []Item{
		{ID: 1, ItemType: pricing.ItemTypeLabour, Title: "First fix"},
		{ID: 2, ItemType: pricing.ItemTypeSubcontract, Title: "Scaffolding"},
		{ID: 3, ItemType: pricing.ItemTypeMaterial, Title: "Bricks"},
		{ID: 4, ItemType: pricing.ItemTypePlant, Title: "Digger hire"},
	}
	plan := Resolve(items, nil, nil)

	if len(plan.WorkOrders) != 1 || plan.WorkOrders[0].Party != FallbackLabourParty {
		t.Fatalf("expected single %q work order, got %+v", FallbackLabourParty, plan.WorkOrders)
	}
	if !reflect.DeepEqual(plan.WorkOrders[0].ItemIDs, []int64{1, 2}) {
		t.Fatalf("work order items = %v", plan.WorkOrders[0].ItemIDs)
	}
	if len(plan.PurchaseOrders) != 1 || plan.PurchaseOrders[0].Party != FallbackMaterialParty {
		t.Fatalf("expected single %q purchase order, got %+v", FallbackMaterialParty, plan.PurchaseOrders)
	}
	if !reflect.DeepEqual(plan.PurchaseOrders[0].ItemIDs, []int64{3, 4}) {
		t.Fatalf("purchase order items = %v", plan.PurchaseOrders[0].ItemIDs)
	}
}

func TestResolveSectionPredicate(t *testing.T) {
	sections := []Section{{ID: 1, Title: "Groundworks"}, {ID: 2, Title: "Roofing"}}
	section1, section2 := int64(1), int64(2)
	rules := []GroupRule{
		{ID: 1, Priority: 1, RuleType: RuleTypeWorkOrder, MatchSectionContains: strptr("ground"), TargetParty: "Groundworks Crew"},
	}
	items := []Item{
		{ID: 1, ItemType: pricing.ItemTypeLabour, Title: "Excavate", SectionID: &section1},
		{ID: 2, ItemType: pricing.ItemTypeLabour, Title: "Tiles", SectionID: &section2},
		{ID: 3, ItemType: pricing.ItemTypeLabour, Title: "No section"},
	}
	plan := Resolve(items, sections, rules)

	if len(plan.WorkOrders) != 2 {
		t.Fatalf("work orders = %d, want matched + fallback", len(plan.WorkOrders))
	}
	if plan.WorkOrders[0].Party != "Groundworks Crew" || len(plan.WorkOrders[0].ItemIDs) != 1 {
		t.Fatalf("unexpected matched bucket: %+v", plan.WorkOrders[0])
	}
	if plan.WorkOrders[1].Party != FallbackLabourParty || len(plan.WorkOrders[1].ItemIDs) != 2 {
		t.Fatalf("unexpected fallback bucket: %+v", plan.WorkOrders[1])
	}
}

func TestResolveTagPredicateCaseInsensitive(t *testing.T) {
	rules := []GroupRule{
		{ID: 1, Priority: 1, RuleType: RuleTypePurchaseOrder, MatchTagContains: strptr("HIRE"), TargetParty: "Plant Hire Co"},
	}
	items := []Item{{ID: 1, ItemType: pricing.ItemTypePlant, Title: "Digger", Tag: "plant-hire"}}
	plan := Resolve(items, nil, rules)
	if len(plan.PurchaseOrders) != 1 || plan.PurchaseOrders[0].Party != "Plant Hire Co" {
		t.Fatalf("tag match failed: %+v", plan.PurchaseOrders)
	}
}

func TestResolveDocumentTitleDefaults(t *testing.T) {
	rules := []GroupRule{
		{ID: 1, Priority: 1, RuleType: RuleTypeWorkOrder, MatchItemType: labourType(), TargetParty: "Sparks Ltd"},
		{ID: 2, Priority: 2, RuleType: RuleTypePurchaseOrder, MatchItemType: materialType(), TargetParty: "Builders Merchant", DocumentTitle: strptr("Materials Order Phase 1")},
	}
	items := []Item{
		{ID: 1, ItemType: pricing.ItemTypeLabour, Title: "Wiring"},
		{ID: 2, ItemType: pricing.ItemTypeMaterial, Title: "Cable"},
	}
	plan := Resolve(items, nil, rules)
	if len(plan.WorkOrders) != 1 || len(plan.PurchaseOrders) != 1 {
		t.Fatalf("group counts = %d work orders, %d purchase orders", len(plan.WorkOrders), len(plan.PurchaseOrders))
	}
	if plan.WorkOrders[0].DocumentTitle != "Sparks Ltd Work Order" {
		t.Fatalf("default title = %q", plan.WorkOrders[0].DocumentTitle)
	}
	if plan.PurchaseOrders[0].DocumentTitle != "Materials Order Phase 1" {
		t.Fatalf("explicit title = %q", plan.PurchaseOrders[0].DocumentTitle)
	}
}

func TestResolveDeterministic(t *testing.T) {
	rules := []GroupRule{
		{ID: 2, Priority: 2, RuleType: RuleTypeWorkOrder, TargetParty: "B Crew"},
		{ID: 1, Priority: 1, RuleType: RuleTypeWorkOrder, MatchTitleContains: strptr("fix"), TargetParty: "A Crew"},
	}
	items := []Item{
		{ID: 1, ItemType: pricing.ItemTypeLabour, Title: "First fix"},
		{ID: 2, ItemType: pricing.ItemTypeLabour, Title: "Snagging"},
		{ID: 3, ItemType: pricing.ItemTypeLabour, Title: "Second fix"},
	}
	first := Resolve(items, nil, rules)
	for i := 0; i < 10; i++ {
		if !reflect.DeepEqual(first, Resolve(items, nil, rules)) {
			t.Fatal("identical inputs must yield identical plans")
		}
	}
	if first.WorkOrders[0].Party != "A Crew" || !reflect.DeepEqual(first.WorkOrders[0].ItemIDs, []int64{1, 3}) {
		t.Fatalf("unexpected plan: %+v", first.WorkOrders)
	}
}
