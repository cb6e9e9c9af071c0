package grouping

import (
	"sort"
	"strings"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
)

// Resolve partitions snapshot items into named WO/PO buckets by evaluating
// rules in ascending priority order. First matching rule wins. Items no rule
// matches fall into the fixed fallback buckets by item type. Pure over its
// three inputs: identical inputs always yield an identical plan.
func Resolve(items []Item, sections []Section, rules []GroupRule) Plan {
	ordered := make([]GroupRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	sectionTitles := make(map[int64]string, len(sections))
	for _, section := range sections {
		sectionTitles[section.ID] = section.Title
	}

	type bucketKey struct {
		ruleType RuleType
		party    string
	}
	buckets := make(map[bucketKey]*Group)
	var workOrderKeys, purchaseOrderKeys []bucketKey

	assign := func(ruleType RuleType, party, title string, ruleID *int64, itemID int64) {
		key := bucketKey{ruleType: ruleType, party: party}
		bucket, ok := buckets[key]
		if !ok {
			bucket = &Group{Party: party, DocumentTitle: title, RuleID: ruleID}
			buckets[key] = bucket
			if ruleType == RuleTypeWorkOrder {
				workOrderKeys = append(workOrderKeys, key)
			} else {
				purchaseOrderKeys = append(purchaseOrderKeys, key)
			}
		}
		bucket.ItemIDs = append(bucket.ItemIDs, itemID)
	}

	for _, item := range items {
		rule, ok := firstMatch(ordered, item, sectionTitles)
		if ok {
			ruleID := rule.ID
			assign(rule.RuleType, rule.TargetParty, documentTitle(rule), &ruleID, item.ID)
			continue
		}
		switch item.ItemType {
		case pricing.ItemTypeLabour, pricing.ItemTypeSubcontract:
			assign(RuleTypeWorkOrder, FallbackLabourParty, FallbackLabourParty+" Work Order", nil, item.ID)
		default:
			assign(RuleTypePurchaseOrder, FallbackMaterialParty, FallbackMaterialParty+" Purchase Order", nil, item.ID)
		}
	}

	plan := Plan{}
	for _, key := range workOrderKeys {
		plan.WorkOrders = append(plan.WorkOrders, *buckets[key])
	}
	for _, key := range purchaseOrderKeys {
		plan.PurchaseOrders = append(plan.PurchaseOrders, *buckets[key])
	}
	return plan
}

// firstMatch scans rules in priority order and returns the first whose every
// declared predicate is satisfied.
func firstMatch(rules []GroupRule, item Item, sectionTitles map[int64]string) (GroupRule, bool) {
	for _, rule := range rules {
		if matches(rule, item, sectionTitles) {
			return rule, true
		}
	}
	return GroupRule{}, false
}

func matches(rule GroupRule, item Item, sectionTitles map[int64]string) bool {
	if rule.MatchItemType != nil && *rule.MatchItemType != item.ItemType {
		return false
	}
	if rule.MatchTitleContains != nil && !containsFold(item.Title, *rule.MatchTitleContains) {
		return false
	}
	if rule.MatchSectionContains != nil {
		if item.SectionID == nil {
			return false
		}
		if !containsFold(sectionTitles[*item.SectionID], *rule.MatchSectionContains) {
			return false
		}
	}
	if rule.MatchTagContains != nil && !containsFold(item.Tag, *rule.MatchTagContains) {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func documentTitle(rule GroupRule) string {
	if rule.DocumentTitle != nil && *rule.DocumentTitle != "" {
		return *rule.DocumentTitle
	}
	if rule.RuleType == RuleTypeWorkOrder {
		return rule.TargetParty + " Work Order"
	}
	return rule.TargetParty + " Purchase Order"
}
