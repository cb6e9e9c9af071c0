package grouping

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRuleRepo struct {
	rules  map[int64]GroupRule
	nextID int64
}

func newMemoryRuleRepo() *memoryRuleRepo {
	return &memoryRuleRepo{rules: make(map[int64]GroupRule)}
}

func (r *memoryRuleRepo) ListRules(ctx context.Context, tenantID string) ([]GroupRule, error) {
	var out []GroupRule
	for _, rule := range r.rules {
		if rule.TenantID == tenantID {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memoryRuleRepo) GetRule(ctx context.Context, tenantID string, id int64) (GroupRule, error) {
	rule, ok := r.rules[id]
	if !ok || rule.TenantID != tenantID {
		return GroupRule{}, ErrNotFound
	}
	return rule, nil
}

func (r *memoryRuleRepo) CreateRule(ctx context.Context, rule GroupRule) (int64, error) {
	r.nextID++
	rule.ID = r.nextID
	r.rules[rule.ID] = rule
	return rule.ID, nil
}

func (r *memoryRuleRepo) UpdateRule(ctx context.Context, rule GroupRule) error {
	existing, ok := r.rules[rule.ID]
	if !ok || existing.TenantID != rule.TenantID {
		return ErrNotFound
	}
	r.rules[rule.ID] = rule
	return nil
}

func (r *memoryRuleRepo) DeleteRule(ctx context.Context, tenantID string, id int64) error {
	rule, ok := r.rules[id]
	if !ok || rule.TenantID != tenantID {
		return ErrNotFound
	}
	delete(r.rules, id)
	return nil
}

func TestCreateRejectsUnknownRuleType(t *testing.T) {
	service := NewService(newMemoryRuleRepo(), "tenant-main")

	_, err := service.Create(context.Background(), GroupRule{RuleType: "invoice", TargetParty: "ACME"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateRejectsEmptyParty(t *testing.T) {
	service := NewService(newMemoryRuleRepo(), "tenant-main")

	_, err := service.Create(context.Background(), GroupRule{RuleType: RuleTypeWorkOrder, TargetParty: "  "})
	require.ErrorIs(t, err, ErrValidation)
}

func TestListReturnsEvaluationOrder(t *testing.T) {
	repo := newMemoryRuleRepo()
	service := NewService(repo, "tenant-main")
	ctx := context.Background()

	_, err := service.Create(ctx, GroupRule{RuleType: RuleTypeWorkOrder, Priority: 5, TargetParty: "Sparks Ltd"})
	require.NoError(t, err)
	_, err = service.Create(ctx, GroupRule{RuleType: RuleTypePurchaseOrder, Priority: 1, TargetParty: "Builders Merchant"})
	require.NoError(t, err)

	rules, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.Equal(t, "Builders Merchant", rules[0].TargetParty)
}

func TestCrossTenantRulesInvisible(t *testing.T) {
	repo := newMemoryRuleRepo()
	other := NewService(repo, "tenant-other")
	service := NewService(repo, "tenant-main")
	ctx := context.Background()

	created, err := other.Create(ctx, GroupRule{RuleType: RuleTypeWorkOrder, Priority: 1, TargetParty: "Sparks Ltd"})
	require.NoError(t, err)

	_, err = service.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)

	rules, err := service.List(ctx)
	require.NoError(t, err)
	require.Empty(t, rules)
}

func TestResolveForTenantUsesPersistedRules(t *testing.T) {
	repo := newMemoryRuleRepo()
	service := NewService(repo, "tenant-main")
	ctx := context.Background()

	_, err := service.Create(ctx, GroupRule{
		RuleType: RuleTypePurchaseOrder, Priority: 1,
		MatchTitleContains: strptr("paint"), TargetParty: "Decorators Supply",
	})
	require.NoError(t, err)

	plan, err := service.ResolveForTenant(ctx, []Item{
		{ID: 1, ItemType: "material", Title: "Paint, 5L"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, plan.PurchaseOrders, 1)
	require.Equal(t, "Decorators Supply", plan.PurchaseOrders[0].Party)
}
