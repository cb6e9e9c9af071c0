package estimates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/workflow"
	"github.com/sitebeam-erp/sitebeam-erp/internal/shared"
)

var (
	// ErrInvalidStatus indicates the estimate is not in a status permitting the operation.
	ErrInvalidStatus = errors.New("estimates: invalid status for operation")
)

// SettingsPort resolves the tenant pricing settings.
type SettingsPort interface {
	Get(ctx context.Context) (pricing.Settings, error)
}

// Service orchestrates estimate CRUD, pricing and workflow transitions.
type Service struct {
	repo     Repository
	settings SettingsPort
	guard    *workflow.Guard
	audit    *shared.AuditLogger
	tenantID string
}

// NewService constructs the estimate service. The workflow guard is built over
// this service's repository so UI code can never bypass the edge table.
func NewService(repo Repository, settingsPort SettingsPort, permissions workflow.PermissionPort, audit *shared.AuditLogger, tenantID string) *Service {
	var auditPort workflow.AuditPort
	if audit != nil {
		auditPort = audit
	}
	guard := workflow.NewGuard(entityPort{repo: repo}, permissions, nil, auditPort, tenantID, nil)
	return &Service{repo: repo, settings: settingsPort, guard: guard, audit: audit, tenantID: tenantID}
}

// entityPort adapts Repository to the guard's EntityPort for the estimate kind.
type entityPort struct {
	repo Repository
}

func (p entityPort) LoadEntity(ctx context.Context, kind workflow.Kind, id int64) (workflow.Entity, error) {
	return p.repo.LoadWorkflowEntity(ctx, id)
}

func (p entityPort) UpdateStatus(ctx context.Context, kind workflow.Kind, id int64, to workflow.Status, expectedRevision int64, at time.Time) error {
	return p.repo.UpdateStatus(ctx, id, to, expectedRevision, at)
}

// Create prices the requested lines and persists a new draft estimate.
func (s *Service) Create(ctx context.Context, req CreateEstimateRequest, actor *shared.Actor) (*Estimate, error) {
	tenantSettings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pricing settings: %w", err)
	}

	totals := pricing.ComputeEstimateTotals(tenantSettings, lineInputs(req.Lines))

	estimate := Estimate{
		TenantID:      s.tenantID,
		Title:         req.Title,
		CustomerName:  req.CustomerName,
		Status:        workflow.EstimateDraft,
		LayoutID:      req.LayoutID,
		Notes:         req.Notes,
		SubtotalExVAT: totals.SubtotalExVAT,
		VAT:           totals.VAT,
		Total:         totals.Total,
	}
	if actor != nil {
		estimate.CreatedBy = actor.ID
	}

	var estimateID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, estimate)
		if err != nil {
			return fmt.Errorf("create estimate: %w", err)
		}
		estimateID = id

		sectionIDs := make([]int64, len(req.Sections))
		for i, sectionReq := range req.Sections {
			sectionID, err := repo.InsertSection(ctx, Section{EstimateID: id, Title: sectionReq.Title, SortOrder: sectionReq.SortOrder})
			if err != nil {
				return fmt.Errorf("insert section: %w", err)
			}
			sectionIDs[i] = sectionID
		}

		for i, lineReq := range req.Lines {
			line := buildLine(id, lineReq, totals.Breakdowns[i], sectionIDs)
			if line.LineOrder == 0 {
				line.LineOrder = i + 1
			}
			if _, err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, estimateID)
}

// Update replaces header fields and, when lines are supplied, reprices the
// whole line set. Only draft estimates are editable.
func (s *Service) Update(ctx context.Context, id int64, req UpdateEstimateRequest) (*Estimate, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != workflow.EstimateDraft {
		return nil, fmt.Errorf("%w: only draft estimates can be edited", ErrInvalidStatus)
	}

	updates := make(map[string]any)
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.CustomerName != nil {
		updates["customer_name"] = *req.CustomerName
	}
	if req.LayoutID != nil {
		updates["layout_id"] = *req.LayoutID
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	var totals pricing.EstimateTotals
	if req.Lines != nil {
		tenantSettings, err := s.settings.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("load pricing settings: %w", err)
		}
		totals = pricing.ComputeEstimateTotals(tenantSettings, lineInputs(*req.Lines))
		updates["subtotal_ex_vat"] = totals.SubtotalExVAT
		updates["vat"] = totals.VAT
		updates["total"] = totals.Total
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateHeader(ctx, id, updates); err != nil {
			return err
		}
		if req.Lines == nil {
			return nil
		}
		if err := repo.DeleteLines(ctx, id); err != nil {
			return err
		}
		sectionIDs := make([]int64, len(existing.Sections))
		for i, section := range existing.Sections {
			sectionIDs[i] = section.ID
		}
		for i, lineReq := range *req.Lines {
			line := buildLine(id, lineReq, totals.Breakdowns[i], sectionIDs)
			if line.LineOrder == 0 {
				line.LineOrder = i + 1
			}
			if _, err := repo.InsertLine(ctx, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update estimate: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Get returns one estimate with lines and sections.
func (s *Service) Get(ctx context.Context, id int64) (*Estimate, error) {
	return s.repo.Get(ctx, id)
}

// List returns estimates matching the filter.
func (s *Service) List(ctx context.Context, req ListEstimatesRequest) ([]Estimate, int, error) {
	return s.repo.List(ctx, req)
}

// PricePreview recomputes totals for unsaved lines. No side effects; intended
// for live recalculation while editing.
func (s *Service) PricePreview(ctx context.Context, lines []CreateLineRequest) (pricing.EstimateTotals, error) {
	tenantSettings, err := s.settings.Get(ctx)
	if err != nil {
		return pricing.EstimateTotals{}, fmt.Errorf("load pricing settings: %w", err)
	}
	return pricing.ComputeEstimateTotals(tenantSettings, lineInputs(lines)), nil
}

// Transition requests a workflow status change through the guard.
func (s *Service) Transition(ctx context.Context, id int64, req TransitionRequest, actor *shared.Actor) (workflow.Entity, error) {
	return s.guard.Transition(ctx, workflow.TransitionInput{
		Kind: workflow.KindEstimate,
		ID:   id,
		To:   req.To,
		Note: req.Note,
	}, actor)
}

// CreateQuoteVersion freezes the estimate's current priced lines and sections
// into an immutable snapshot.
func (s *Service) CreateQuoteVersion(ctx context.Context, estimateID int64, actor *shared.Actor) (*QuoteVersion, error) {
	estimate, err := s.repo.Get(ctx, estimateID)
	if err != nil {
		return nil, err
	}
	if workflow.Terminal(workflow.KindEstimate, estimate.Status) {
		return nil, fmt.Errorf("%w: cannot snapshot a closed estimate", ErrInvalidStatus)
	}
	if len(estimate.Lines) == 0 {
		return nil, fmt.Errorf("%w: estimate has no line items", ErrInvalidStatus)
	}

	tenantSettings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pricing settings: %w", err)
	}

	existing, err := s.repo.ListQuoteVersions(ctx, estimateID)
	if err != nil {
		return nil, fmt.Errorf("list quote versions: %w", err)
	}

	version := QuoteVersion{
		ID:            uuid.New(),
		EstimateID:    estimateID,
		VersionNumber: len(existing) + 1,
		VATRate:       tenantSettings.VATRate,
		SubtotalExVAT: estimate.SubtotalExVAT,
		VAT:           estimate.VAT,
		Total:         estimate.Total,
	}
	if actor != nil {
		version.CreatedBy = actor.ID
	}
	for _, section := range estimate.Sections {
		version.SectionsSnapshot = append(version.SectionsSnapshot, SnapshotSection{ID: section.ID, Title: section.Title})
	}
	for _, line := range estimate.Lines {
		version.ItemsSnapshot = append(version.ItemsSnapshot, SnapshotItem{
			ID:          line.ID,
			SectionID:   line.SectionID,
			ItemType:    line.ItemType,
			Title:       line.Title,
			Description: line.Description,
			Tag:         line.Tag,
			Quantity:    line.Quantity,
			Unit:        line.Unit,
			UnitCost:    line.UnitCost,
			LineCost:    line.Quantity * line.UnitCost,
			PriceExVAT:  line.PriceExVAT,
			VAT:         line.VAT,
			TotalIncVAT: line.LineTotal,
		})
	}

	versionID, err := s.repo.CreateQuoteVersion(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("create quote version: %w", err)
	}
	return s.repo.GetQuoteVersion(ctx, versionID)
}

// GetQuoteVersion fetches one immutable snapshot.
func (s *Service) GetQuoteVersion(ctx context.Context, id uuid.UUID) (*QuoteVersion, error) {
	return s.repo.GetQuoteVersion(ctx, id)
}

// ListQuoteVersions lists snapshot headers for an estimate.
func (s *Service) ListQuoteVersions(ctx context.Context, estimateID int64) ([]QuoteVersion, error) {
	return s.repo.ListQuoteVersions(ctx, estimateID)
}

func lineInputs(reqs []CreateLineRequest) []pricing.LineInput {
	inputs := make([]pricing.LineInput, 0, len(reqs))
	for _, req := range reqs {
		inputs = append(inputs, pricing.LineInput{
			ItemType:        req.ItemType,
			Category:        req.Category,
			Quantity:        req.Quantity,
			UnitCost:        req.UnitCost,
			FixedPriceExVAT: req.FixedPriceExVAT,
			MarkupPctOver:   req.MarkupPctOver,
			WastagePctOver:  req.WastagePctOver,
		})
	}
	return inputs
}

func buildLine(estimateID int64, req CreateLineRequest, breakdown pricing.LineBreakdown, sectionIDs []int64) EstimateLine {
	line := EstimateLine{
		EstimateID:      estimateID,
		ItemType:        req.ItemType,
		Category:        req.Category,
		Title:           req.Title,
		Description:     req.Description,
		Tag:             req.Tag,
		Quantity:        req.Quantity,
		Unit:            req.Unit,
		UnitCost:        req.UnitCost,
		FixedPriceExVAT: req.FixedPriceExVAT,
		MarkupPctOver:   req.MarkupPctOver,
		WastagePctOver:  req.WastagePctOver,
		PriceExVAT:      breakdown.PriceExVAT,
		VAT:             breakdown.VAT,
		LineTotal:       breakdown.TotalIncVAT,
		LineOrder:       req.LineOrder,
	}
	if req.SectionIndex != nil && *req.SectionIndex >= 0 && *req.SectionIndex < len(sectionIDs) {
		sectionID := sectionIDs[*req.SectionIndex]
		line.SectionID = &sectionID
	}
	return line
}
