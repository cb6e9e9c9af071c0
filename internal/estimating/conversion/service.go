package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/estimates"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/grouping"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/workflow"
	"github.com/sitebeam-erp/sitebeam-erp/internal/projects"
	"github.com/sitebeam-erp/sitebeam-erp/internal/purchaseorders"
	"github.com/sitebeam-erp/sitebeam-erp/internal/rbac"
	"github.com/sitebeam-erp/sitebeam-erp/internal/shared"
	"github.com/sitebeam-erp/sitebeam-erp/internal/workorders"
)

var (
	// ErrNotAccepted indicates the estimate has not reached the accepted status.
	ErrNotAccepted = errors.New("conversion: estimate is not accepted")
	// ErrAlreadyConverted indicates the estimate is already linked to a project.
	ErrAlreadyConverted = errors.New("conversion: estimate already converted")
	// ErrVersionMismatch indicates the quote version belongs to another estimate.
	ErrVersionMismatch = errors.New("conversion: quote version does not belong to estimate")
	// ErrPartialConversion wraps any failure after the estimate has been linked
	// to its project. The link is not rolled back; the state must be reconciled
	// manually or by support tooling.
	ErrPartialConversion = errors.New("conversion: partially converted")
)

// EstimatePort is the slice of the estimate repository conversion needs.
// Satisfied by estimates.Repository.
type EstimatePort interface {
	Get(ctx context.Context, id int64) (*estimates.Estimate, error)
	GetQuoteVersion(ctx context.Context, id uuid.UUID) (*estimates.QuoteVersion, error)
	LinkProject(ctx context.Context, estimateID, projectID int64, quoteVersionID uuid.UUID, expectedRevision int64, at time.Time) error
}

// PlanPort resolves a grouping plan over a frozen snapshot. Satisfied by
// grouping.Service.
type PlanPort interface {
	ResolveForTenant(ctx context.Context, items []grouping.Item, sections []grouping.Section) (grouping.Plan, error)
}

// ProjectPort creates the execution-side project record.
type ProjectPort interface {
	Create(ctx context.Context, project projects.Project) (int64, error)
}

// WorkOrderPort persists one work order with its line snapshot.
type WorkOrderPort interface {
	CreateWithLines(ctx context.Context, order workorders.WorkOrder) (int64, error)
}

// PurchaseOrderPort persists one purchase order with its line snapshot.
type PurchaseOrderPort interface {
	CreateWithLines(ctx context.Context, order purchaseorders.PurchaseOrder) (int64, error)
}

// BuyCostPort records observed material costs. Satisfied by buycost.Service.
type BuyCostPort interface {
	Record(ctx context.Context, materialName, unit string, unitCost float64, observedAt time.Time) error
}

// Service runs the accepted-quote to project conversion pipeline.
type Service struct {
	estimates      EstimatePort
	plans          PlanPort
	projects       ProjectPort
	workOrders     WorkOrderPort
	purchaseOrders PurchaseOrderPort
	buyCosts       BuyCostPort
	permissions    workflow.PermissionPort
	audit          workflow.AuditPort
	logger         *slog.Logger
	tenantID       string
	now            func() time.Time
}

// NewService constructs the conversion pipeline.
func NewService(
	estimatePort EstimatePort,
	planPort PlanPort,
	projectPort ProjectPort,
	workOrderPort WorkOrderPort,
	purchaseOrderPort PurchaseOrderPort,
	buyCostPort BuyCostPort,
	permissions workflow.PermissionPort,
	audit workflow.AuditPort,
	logger *slog.Logger,
	tenantID string,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		estimates:      estimatePort,
		plans:          planPort,
		projects:       projectPort,
		workOrders:     workOrderPort,
		purchaseOrders: purchaseOrderPort,
		buyCosts:       buyCostPort,
		permissions:    permissions,
		audit:          audit,
		logger:         logger,
		tenantID:       tenantID,
		now:            time.Now,
	}
}

// Result reports what conversion created.
type Result struct {
	ProjectID        int64   `json:"project_id"`
	WorkOrderIDs     []int64 `json:"work_order_ids"`
	PurchaseOrderIDs []int64 `json:"purchase_order_ids"`
}

// Convert turns an accepted estimate into a project with work and purchase
// orders derived from the given quote version's frozen snapshot.
//
// Everything up to and including the project link is checked and can fail
// cleanly. After the link, a failing step returns ErrPartialConversion and
// leaves whatever was created in place; the converted_project_id guard stops
// a second run from duplicating documents.
func (s *Service) Convert(ctx context.Context, estimateID int64, quoteVersionID uuid.UUID, actor *shared.Actor) (*Result, error) {
	estimate, err := s.estimates.Get(ctx, estimateID)
	if err != nil {
		return nil, err
	}
	if estimate.ConvertedProjectID != nil {
		return nil, fmt.Errorf("%w: project %d", ErrAlreadyConverted, *estimate.ConvertedProjectID)
	}
	if workflow.Normalize(estimate.Status) != workflow.EstimateAccepted {
		return nil, fmt.Errorf("%w: status is %s", ErrNotAccepted, estimate.Status)
	}

	role := ""
	if actor != nil {
		role = actor.Role
	}
	allowed, err := s.permissions.RoleHasPermission(ctx, role, rbac.PermEstimateConvert)
	if err != nil {
		return nil, fmt.Errorf("resolve permission: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s", workflow.ErrUnauthorized, rbac.PermEstimateConvert)
	}

	version, err := s.estimates.GetQuoteVersion(ctx, quoteVersionID)
	if err != nil {
		return nil, err
	}
	if version.EstimateID != estimateID {
		return nil, fmt.Errorf("%w: version %s is for estimate %d", ErrVersionMismatch, version.ID, version.EstimateID)
	}

	now := s.now()
	project := projects.Project{
		TenantID:           s.tenantID,
		Name:               estimate.Title,
		CustomerName:       estimate.CustomerName,
		SourceEstimateID:   estimateID,
		SourceQuoteVersion: version.ID,
		ContractValue:      version.Total,
	}
	if actor != nil {
		project.CreatedBy = actor.ID
	}
	projectID, err := s.projects.Create(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	if err := s.estimates.LinkProject(ctx, estimateID, projectID, version.ID, estimate.Revision, now); err != nil {
		return nil, fmt.Errorf("link estimate to project %d: %w", projectID, err)
	}

	// The estimate is now linked; every failure from here on is partial.
	result := &Result{ProjectID: projectID}
	if err := s.createDocuments(ctx, projectID, version, now, result); err != nil {
		return result, fmt.Errorf("%w: %v", ErrPartialConversion, err)
	}

	if s.audit != nil {
		actorID := int64(0)
		if actor != nil {
			actorID = actor.ID
		}
		log := shared.AuditLog{
			TenantID: s.tenantID,
			ActorID:  actorID,
			Action:   "estimate_converted",
			Entity:   "estimate",
			EntityID: strconv.FormatInt(estimateID, 10),
			Meta: map[string]any{
				"project_id":       projectID,
				"quote_version_id": version.ID.String(),
				"version_number":   version.VersionNumber,
			},
			At: now,
		}
		if err := s.audit.Record(ctx, log); err != nil {
			s.logger.Error("record conversion audit", slog.Any("error", err))
		}
	}
	return result, nil
}

func (s *Service) createDocuments(ctx context.Context, projectID int64, version *estimates.QuoteVersion, now time.Time, result *Result) error {
	items := make(map[int64]estimates.SnapshotItem, len(version.ItemsSnapshot))
	planItems := make([]grouping.Item, 0, len(version.ItemsSnapshot))
	for _, item := range version.ItemsSnapshot {
		items[item.ID] = item
		planItems = append(planItems, grouping.Item{
			ID:        item.ID,
			ItemType:  item.ItemType,
			Title:     item.Title,
			SectionID: item.SectionID,
			Tag:       item.Tag,
		})
	}
	planSections := make([]grouping.Section, 0, len(version.SectionsSnapshot))
	for _, section := range version.SectionsSnapshot {
		planSections = append(planSections, grouping.Section{ID: section.ID, Title: section.Title})
	}

	plan, err := s.plans.ResolveForTenant(ctx, planItems, planSections)
	if err != nil {
		return fmt.Errorf("resolve grouping plan: %w", err)
	}

	for _, group := range plan.WorkOrders {
		order := workorders.WorkOrder{
			TenantID:       s.tenantID,
			ProjectID:      projectID,
			QuoteVersionID: version.ID,
			Party:          group.Party,
			DocumentTitle:  group.DocumentTitle,
			RuleID:         group.RuleID,
		}
		for _, itemID := range group.ItemIDs {
			item := items[itemID]
			order.Subtotal += item.LineCost
			order.Lines = append(order.Lines, workorders.Line{
				SourceItemID: item.ID,
				ItemType:     item.ItemType,
				Title:        item.Title,
				Description:  item.Description,
				Quantity:     item.Quantity,
				Unit:         item.Unit,
				UnitCost:     item.UnitCost,
				LineTotal:    item.LineCost,
			})
		}
		order.VAT = order.Subtotal * version.VATRate / 100
		order.Total = order.Subtotal + order.VAT

		id, err := s.workOrders.CreateWithLines(ctx, order)
		if err != nil {
			return fmt.Errorf("create work order %q: %w", group.DocumentTitle, err)
		}
		result.WorkOrderIDs = append(result.WorkOrderIDs, id)
	}

	for _, group := range plan.PurchaseOrders {
		order := purchaseorders.PurchaseOrder{
			TenantID:       s.tenantID,
			ProjectID:      projectID,
			QuoteVersionID: version.ID,
			Party:          group.Party,
			DocumentTitle:  group.DocumentTitle,
			RuleID:         group.RuleID,
		}
		for _, itemID := range group.ItemIDs {
			item := items[itemID]
			order.Subtotal += item.LineCost
			order.Lines = append(order.Lines, purchaseorders.Line{
				SourceItemID: item.ID,
				ItemType:     item.ItemType,
				Title:        item.Title,
				Description:  item.Description,
				Quantity:     item.Quantity,
				Unit:         item.Unit,
				UnitCost:     item.UnitCost,
				LineTotal:    item.LineCost,
			})
		}
		order.VAT = order.Subtotal * version.VATRate / 100
		order.Total = order.Subtotal + order.VAT

		id, err := s.purchaseOrders.CreateWithLines(ctx, order)
		if err != nil {
			return fmt.Errorf("create purchase order %q: %w", group.DocumentTitle, err)
		}
		result.PurchaseOrderIDs = append(result.PurchaseOrderIDs, id)

		if s.buyCosts == nil {
			continue
		}
		for _, line := range order.Lines {
			if line.ItemType != pricing.ItemTypeMaterial {
				continue
			}
			if err := s.buyCosts.Record(ctx, line.Title, line.Unit, line.UnitCost, now); err != nil {
				// Cache maintenance never fails the conversion.
				s.logger.Warn("record buy cost", slog.String("material", line.Title), slog.Any("error", err))
			}
		}
	}
	return nil
}
