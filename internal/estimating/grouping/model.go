package grouping

import (
	"time"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
)

// RuleType selects which document family a rule routes items into.
type RuleType string

const (
	RuleTypeWorkOrder     RuleType = "work_order"
	RuleTypePurchaseOrder RuleType = "purchase_order"
)

// Fallback bucket names for items no rule matches.
const (
	FallbackLabourParty   = "Unassigned Labour"
	FallbackMaterialParty = "Unassigned Materials"
)

// GroupRule is a persisted, tenant-scoped, priority-ordered match rule.
// A nil predicate means "don't care" for that field. Rules are read-only
// during resolution; mutation happens through the rule management service.
type GroupRule struct {
	ID                   int64             `json:"id"`
	TenantID             string            `json:"tenant_id"`
	RuleType             RuleType          `json:"rule_type"`
	Priority             int               `json:"priority"`
	MatchItemType        *pricing.ItemType `json:"match_item_type,omitempty"`
	MatchTitleContains   *string           `json:"match_title_contains,omitempty"`
	MatchSectionContains *string           `json:"match_section_contains,omitempty"`
	MatchTagContains     *string           `json:"match_tag_contains,omitempty"`
	TargetParty          string            `json:"target_party"`
	DocumentTitle        *string           `json:"document_title,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// Item is the resolver's view of one snapshot line item.
type Item struct {
	ID        int64
	ItemType  pricing.ItemType
	Title     string
	SectionID *int64
	Tag       string
}

// Section is the resolver's view of one snapshot section.
type Section struct {
	ID    int64
	Title string
}

// Group is one named bucket in a grouping plan.
type Group struct {
	Party         string
	DocumentTitle string
	RuleID        *int64
	ItemIDs       []int64
}

// Plan is the deterministic partition of a snapshot into WO/PO buckets.
type Plan struct {
	WorkOrders     []Group
	PurchaseOrders []Group
}
