package grouping

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrValidation indicates an invalid rule payload.
var ErrValidation = errors.New("grouping: validation failed")

// Service manages the persisted rule table. Resolution itself is the pure
// Resolve function; this service only covers rule CRUD.
type Service struct {
	repo     Repository
	tenantID string
}

// NewService constructs the rule management service.
func NewService(repo Repository, tenantID string) *Service {
	return &Service{repo: repo, tenantID: tenantID}
}

// List returns the tenant's rules in evaluation order.
func (s *Service) List(ctx context.Context) ([]GroupRule, error) {
	return s.repo.ListRules(ctx, s.tenantID)
}

// Get fetches a single rule.
func (s *Service) Get(ctx context.Context, id int64) (GroupRule, error) {
	return s.repo.GetRule(ctx, s.tenantID, id)
}

// Create validates and inserts a rule.
func (s *Service) Create(ctx context.Context, rule GroupRule) (GroupRule, error) {
	rule.TenantID = s.tenantID
	if err := s.validate(rule); err != nil {
		return GroupRule{}, err
	}
	id, err := s.repo.CreateRule(ctx, rule)
	if err != nil {
		return GroupRule{}, fmt.Errorf("create rule: %w", err)
	}
	return s.repo.GetRule(ctx, s.tenantID, id)
}

// Update validates and updates an existing rule.
func (s *Service) Update(ctx context.Context, rule GroupRule) (GroupRule, error) {
	rule.TenantID = s.tenantID
	if err := s.validate(rule); err != nil {
		return GroupRule{}, err
	}
	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return GroupRule{}, err
	}
	return s.repo.GetRule(ctx, s.tenantID, rule.ID)
}

// Delete removes a rule.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteRule(ctx, s.tenantID, id)
}

// ResolveForTenant loads the tenant's rules and resolves a plan.
func (s *Service) ResolveForTenant(ctx context.Context, items []Item, sections []Section) (Plan, error) {
	rules, err := s.repo.ListRules(ctx, s.tenantID)
	if err != nil {
		return Plan{}, fmt.Errorf("list rules: %w", err)
	}
	return Resolve(items, sections, rules), nil
}

func (s *Service) validate(rule GroupRule) error {
	if rule.RuleType != RuleTypeWorkOrder && rule.RuleType != RuleTypePurchaseOrder {
		return fmt.Errorf("%w: unknown rule type %q", ErrValidation, rule.RuleType)
	}
	if strings.TrimSpace(rule.TargetParty) == "" {
		return fmt.Errorf("%w: target party is required", ErrValidation)
	}
	if rule.Priority < 0 {
		return fmt.Errorf("%w: priority must be non-negative", ErrValidation)
	}
	return nil
}
