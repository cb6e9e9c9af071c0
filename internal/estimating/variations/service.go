package variations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/workflow"
	"github.com/sitebeam-erp/sitebeam-erp/internal/shared"
)

var (
	// ErrInvalidStatus indicates the variation or its estimate is not in a
	// status permitting the operation.
	ErrInvalidStatus = errors.New("variations: invalid status for operation")
)

// EstimatePort is the slice of the estimate repository a variation needs:
// checking the parent's workflow state and folding approved totals into it.
// Satisfied by estimates.Repository.
type EstimatePort interface {
	LoadWorkflowEntity(ctx context.Context, id int64) (workflow.Entity, error)
	ApplyVariationDelta(ctx context.Context, estimateID int64, subtotal, vat, total float64) error
}

// SettingsPort resolves the tenant pricing settings.
type SettingsPort interface {
	Get(ctx context.Context) (pricing.Settings, error)
}

// Service orchestrates variation CRUD, pricing and workflow transitions.
type Service struct {
	repo      Repository
	estimates EstimatePort
	settings  SettingsPort
	guard     *workflow.Guard
	tenantID  string
	now       func() time.Time
}

// NewService constructs the variation service with its own workflow guard.
func NewService(repo Repository, estimatePort EstimatePort, settingsPort SettingsPort, permissions workflow.PermissionPort, audit *shared.AuditLogger, tenantID string) *Service {
	var auditPort workflow.AuditPort
	if audit != nil {
		auditPort = audit
	}
	guard := workflow.NewGuard(entityPort{repo: repo}, permissions, nil, auditPort, tenantID, nil)
	return &Service{
		repo:      repo,
		estimates: estimatePort,
		settings:  settingsPort,
		guard:     guard,
		tenantID:  tenantID,
		now:       time.Now,
	}
}

type entityPort struct {
	repo Repository
}

func (p entityPort) LoadEntity(ctx context.Context, kind workflow.Kind, id int64) (workflow.Entity, error) {
	return p.repo.LoadWorkflowEntity(ctx, id)
}

func (p entityPort) UpdateStatus(ctx context.Context, kind workflow.Kind, id int64, to workflow.Status, expectedRevision int64, at time.Time) error {
	return p.repo.UpdateStatus(ctx, id, to, expectedRevision, at)
}

// Create prices the requested lines and persists a new draft variation. The
// parent estimate must already be out the door; change orders against an
// unsent estimate belong on the estimate itself.
func (s *Service) Create(ctx context.Context, req CreateVariationRequest, actor *shared.Actor) (*Variation, error) {
	parent, err := s.estimates.LoadWorkflowEntity(ctx, req.EstimateID)
	if err != nil {
		return nil, err
	}
	switch parent.Status {
	case workflow.EstimateSent, workflow.EstimateAccepted, workflow.EstimateWon:
	default:
		return nil, fmt.Errorf("%w: estimate is %s", ErrInvalidStatus, parent.Status)
	}

	tenantSettings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pricing settings: %w", err)
	}

	totals := pricing.ComputeEstimateTotals(tenantSettings, lineInputs(req.Lines))
	variation := Variation{
		TenantID:      s.tenantID,
		EstimateID:    req.EstimateID,
		Title:         req.Title,
		Description:   req.Description,
		Status:        workflow.VariationDraft,
		SubtotalExVAT: totals.SubtotalExVAT,
		VAT:           totals.VAT,
		Total:         totals.Total,
	}
	if actor != nil {
		variation.CreatedBy = actor.ID
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		var err error
		id, err = tx.Create(ctx, variation)
		if err != nil {
			return err
		}
		for i, lineReq := range req.Lines {
			line := buildLine(tenantSettings, lineReq, i)
			line.VariationID = id
			if _, err := tx.InsertLine(ctx, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Update replaces the header fields and, when lines are supplied, reprices
// them from scratch. Only draft variations are editable.
func (s *Service) Update(ctx context.Context, id int64, req UpdateVariationRequest) (*Variation, error) {
	variation, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if workflow.Normalize(variation.Status) != workflow.VariationDraft {
		return nil, fmt.Errorf("%w: variation is %s", ErrInvalidStatus, variation.Status)
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}

	var lines []VariationLine
	if req.Lines != nil {
		tenantSettings, err := s.settings.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("load pricing settings: %w", err)
		}
		totals := pricing.ComputeEstimateTotals(tenantSettings, lineInputs(req.Lines))
		updates["subtotal_ex_vat"] = totals.SubtotalExVAT
		updates["vat"] = totals.VAT
		updates["total"] = totals.Total
		for i, lineReq := range req.Lines {
			line := buildLine(tenantSettings, lineReq, i)
			line.VariationID = id
			lines = append(lines, line)
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.UpdateHeader(ctx, id, updates); err != nil {
			return err
		}
		if req.Lines == nil {
			return nil
		}
		if err := tx.DeleteLines(ctx, id); err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := tx.InsertLine(ctx, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Variation, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListForEstimate(ctx context.Context, estimateID int64) ([]Variation, error) {
	return s.repo.ListForEstimate(ctx, estimateID)
}

// Transition requests a status change through the guard. Approval additionally
// folds the variation totals into the parent estimate.
func (s *Service) Transition(ctx context.Context, id int64, req TransitionRequest, actor *shared.Actor) (workflow.Entity, error) {
	entity, err := s.guard.Transition(ctx, workflow.TransitionInput{
		Kind: workflow.KindVariation,
		ID:   id,
		To:   req.To,
		Note: req.Note,
	}, actor)
	if err != nil {
		return workflow.Entity{}, err
	}

	if req.To == workflow.VariationApproved {
		variation, err := s.repo.Get(ctx, id)
		if err != nil {
			return entity, err
		}
		if err := s.estimates.ApplyVariationDelta(ctx, variation.EstimateID,
			variation.SubtotalExVAT, variation.VAT, variation.Total); err != nil {
			return entity, fmt.Errorf("apply variation totals to estimate %d: %w", variation.EstimateID, err)
		}
		if err := s.repo.MarkApproved(ctx, id, s.now()); err != nil {
			return entity, err
		}
	}
	return entity, nil
}

func lineInputs(lines []CreateLineRequest) []pricing.LineInput {
	inputs := make([]pricing.LineInput, len(lines))
	for i, line := range lines {
		inputs[i] = pricing.LineInput{
			ItemType:        line.ItemType,
			Category:        line.Category,
			Quantity:        line.Quantity,
			UnitCost:        line.UnitCost,
			FixedPriceExVAT: line.FixedPriceExVAT,
			MarkupPctOver:   line.MarkupPctOver,
			WastagePctOver:  line.WastagePctOver,
		}
	}
	return inputs
}

func buildLine(settings pricing.Settings, req CreateLineRequest, order int) VariationLine {
	breakdown := pricing.PriceLine(settings, pricing.LineInput{
		ItemType:        req.ItemType,
		Category:        req.Category,
		Quantity:        req.Quantity,
		UnitCost:        req.UnitCost,
		FixedPriceExVAT: req.FixedPriceExVAT,
		MarkupPctOver:   req.MarkupPctOver,
		WastagePctOver:  req.WastagePctOver,
	})
	lineOrder := req.LineOrder
	if lineOrder == 0 {
		lineOrder = order
	}
	return VariationLine{
		ItemType:        req.ItemType,
		Category:        req.Category,
		Title:           req.Title,
		Description:     req.Description,
		Quantity:        req.Quantity,
		Unit:            req.Unit,
		UnitCost:        req.UnitCost,
		FixedPriceExVAT: req.FixedPriceExVAT,
		MarkupPctOver:   req.MarkupPctOver,
		WastagePctOver:  req.WastagePctOver,
		PriceExVAT:      breakdown.PriceExVAT,
		VAT:             breakdown.VAT,
		LineTotal:       breakdown.TotalIncVAT,
		LineOrder:       lineOrder,
	}
}
