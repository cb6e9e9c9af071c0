package conversion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/estimates"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/grouping"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/workflow"
	"github.com/sitebeam-erp/sitebeam-erp/internal/projects"
	"github.com/sitebeam-erp/sitebeam-erp/internal/purchaseorders"
	"github.com/sitebeam-erp/sitebeam-erp/internal/shared"
	"github.com/sitebeam-erp/sitebeam-erp/internal/workorders"
)

type memoryEstimates struct {
	estimate *estimates.Estimate
	version  *estimates.QuoteVersion
	linked   bool
	linkedTo int64
}

func (m *memoryEstimates) Get(ctx context.Context, id int64) (*estimates.Estimate, error) {
	if m.estimate == nil || m.estimate.ID != id {
		return nil, estimates.ErrNotFound
	}
	estimate := *m.estimate
	return &estimate, nil
}

func (m *memoryEstimates) GetQuoteVersion(ctx context.Context, id uuid.UUID) (*estimates.QuoteVersion, error) {
	if m.version == nil || m.version.ID != id {
		return nil, estimates.ErrNotFound
	}
	version := *m.version
	return &version, nil
}

func (m *memoryEstimates) LinkProject(ctx context.Context, estimateID, projectID int64, quoteVersionID uuid.UUID, expectedRevision int64, at time.Time) error {
	if m.estimate == nil || m.estimate.ID != estimateID {
		return workflow.ErrNotFound
	}
	if m.estimate.Revision != expectedRevision || m.estimate.ConvertedProjectID != nil {
		return workflow.ErrStaleRevision
	}
	m.estimate.ConvertedProjectID = &projectID
	m.estimate.Status = workflow.EstimateWon
	m.estimate.Revision++
	m.linked = true
	m.linkedTo = projectID
	return nil
}

type memoryPlans struct {
	rules []grouping.GroupRule
}

func (m *memoryPlans) ResolveForTenant(ctx context.Context, items []grouping.Item, sections []grouping.Section) (grouping.Plan, error) {
	return grouping.Resolve(items, sections, m.rules), nil
}

type memoryProjects struct {
	created []projects.Project
	nextID  int64
	fail    bool
}

func (m *memoryProjects) Create(ctx context.Context, project projects.Project) (int64, error) {
	if m.fail {
		return 0, errors.New("db down")
	}
	m.nextID++
	project.ID = m.nextID
	m.created = append(m.created, project)
	return project.ID, nil
}

type memoryWorkOrders struct {
	created []workorders.WorkOrder
	nextID  int64
	fail    bool
}

func (m *memoryWorkOrders) CreateWithLines(ctx context.Context, order workorders.WorkOrder) (int64, error) {
	if m.fail {
		return 0, errors.New("db down")
	}
	m.nextID++
	order.ID = m.nextID
	m.created = append(m.created, order)
	return order.ID, nil
}

type memoryPurchaseOrders struct {
	created []purchaseorders.PurchaseOrder
	nextID  int64
}

func (m *memoryPurchaseOrders) CreateWithLines(ctx context.Context, order purchaseorders.PurchaseOrder) (int64, error) {
	m.nextID++
	order.ID = m.nextID
	m.created = append(m.created, order)
	return order.ID, nil
}

type memoryBuyCosts struct {
	recorded map[string]float64
}

func (m *memoryBuyCosts) Record(ctx context.Context, materialName, unit string, unitCost float64, observedAt time.Time) error {
	if m.recorded == nil {
		m.recorded = make(map[string]float64)
	}
	m.recorded[materialName+"|"+unit] = unitCost
	return nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (m *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

type allowAll struct{ denied map[string]bool }

func (p allowAll) RoleHasPermission(ctx context.Context, role, permission string) (bool, error) {
	return !p.denied[permission], nil
}

type fixture struct {
	estimates      *memoryEstimates
	plans          *memoryPlans
	projects       *memoryProjects
	workOrders     *memoryWorkOrders
	purchaseOrders *memoryPurchaseOrders
	buyCosts       *memoryBuyCosts
	audit          *memoryAudit
	service        *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	versionID := uuid.New()
	sectionID := int64(100)
	f := &fixture{
		estimates: &memoryEstimates{
			estimate: &estimates.Estimate{
				ID:           1,
				Title:        "Rear extension",
				CustomerName: "J Smith",
				Status:       workflow.EstimateAccepted,
				Revision:     4,
			},
			version: &estimates.QuoteVersion{
				ID:            versionID,
				EstimateID:    1,
				VersionNumber: 2,
				VATRate:       20,
				Total:         1200,
				SectionsSnapshot: []estimates.SnapshotSection{
					{ID: sectionID, Title: "Groundworks"},
				},
				ItemsSnapshot: []estimates.SnapshotItem{
					{ID: 11, SectionID: &sectionID, ItemType: pricing.ItemTypeLabour, Title: "Excavation crew", Quantity: 10, Unit: "hr", UnitCost: 25, LineCost: 250},
					{ID: 12, ItemType: pricing.ItemTypeLabour, Title: "Bricklayer", Quantity: 8, Unit: "hr", UnitCost: 30, LineCost: 240},
					{ID: 13, ItemType: pricing.ItemTypeMaterial, Title: "Concrete C25", Quantity: 4, Unit: "m3", UnitCost: 95, LineCost: 380},
				},
			},
		},
		plans:          &memoryPlans{},
		projects:       &memoryProjects{},
		workOrders:     &memoryWorkOrders{},
		purchaseOrders: &memoryPurchaseOrders{},
		buyCosts:       &memoryBuyCosts{},
		audit:          &memoryAudit{},
	}
	f.service = NewService(f.estimates, f.plans, f.projects, f.workOrders, f.purchaseOrders,
		f.buyCosts, allowAll{}, f.audit, nil, "tenant-main")
	return f
}

func (f *fixture) convert(t *testing.T) (*Result, error) {
	t.Helper()
	return f.service.Convert(context.Background(), 1, f.estimates.version.ID,
		&shared.Actor{ID: 7, Role: "manager"})
}

func TestConvertWithNoRulesBuildsFallbackDocuments(t *testing.T) {
	f := newFixture(t)

	result, err := f.convert(t)
	require.NoError(t, err)

	require.True(t, f.estimates.linked)
	require.Equal(t, f.estimates.linkedTo, result.ProjectID)
	require.Equal(t, workflow.EstimateWon, f.estimates.estimate.Status)

	require.Len(t, f.workOrders.created, 1)
	wo := f.workOrders.created[0]
	require.Equal(t, grouping.FallbackLabourParty, wo.Party)
	require.Len(t, wo.Lines, 2)
	require.InDelta(t, 490, wo.Subtotal, 1e-9)
	require.InDelta(t, 98, wo.VAT, 1e-9)
	require.InDelta(t, 588, wo.Total, 1e-9)

	require.Len(t, f.purchaseOrders.created, 1)
	po := f.purchaseOrders.created[0]
	require.Equal(t, grouping.FallbackMaterialParty, po.Party)
	require.Len(t, po.Lines, 1)
	require.InDelta(t, 380, po.Subtotal, 1e-9)
	require.Equal(t, int64(13), po.Lines[0].SourceItemID)
}

func TestConvertRecordsBuyCosts(t *testing.T) {
	f := newFixture(t)

	_, err := f.convert(t)
	require.NoError(t, err)
	require.InDelta(t, 95, f.buyCosts.recorded["Concrete C25|m3"], 1e-9)
	require.Len(t, f.buyCosts.recorded, 1)
}

func TestConvertWritesAuditEntry(t *testing.T) {
	f := newFixture(t)

	result, err := f.convert(t)
	require.NoError(t, err)
	require.Len(t, f.audit.logs, 1)
	log := f.audit.logs[0]
	require.Equal(t, "estimate_converted", log.Action)
	require.Equal(t, result.ProjectID, log.Meta["project_id"])
	require.Equal(t, 2, log.Meta["version_number"])
}

func TestConvertHonorsCustomRules(t *testing.T) {
	f := newFixture(t)
	labour := pricing.ItemTypeLabour
	f.plans.rules = []grouping.GroupRule{
		{ID: 1, RuleType: grouping.RuleTypeWorkOrder, Priority: 1, MatchItemType: &labour, TargetParty: "Groundworks Ltd"},
	}

	_, err := f.convert(t)
	require.NoError(t, err)
	require.Len(t, f.workOrders.created, 1)
	require.Equal(t, "Groundworks Ltd", f.workOrders.created[0].Party)
	require.NotNil(t, f.workOrders.created[0].RuleID)
}

func TestConvertRejectsUnacceptedEstimate(t *testing.T) {
	f := newFixture(t)
	f.estimates.estimate.Status = workflow.EstimateSent

	_, err := f.convert(t)
	require.ErrorIs(t, err, ErrNotAccepted)
	require.False(t, f.estimates.linked)
	require.Empty(t, f.projects.created)
}

func TestConvertRejectsSecondRun(t *testing.T) {
	f := newFixture(t)

	_, err := f.convert(t)
	require.NoError(t, err)

	f.estimates.estimate.Status = workflow.EstimateAccepted
	_, err = f.convert(t)
	require.ErrorIs(t, err, ErrAlreadyConverted)
	require.Len(t, f.projects.created, 1)
}

func TestConvertRejectsForeignQuoteVersion(t *testing.T) {
	f := newFixture(t)
	f.estimates.version.EstimateID = 99

	_, err := f.convert(t)
	require.ErrorIs(t, err, ErrVersionMismatch)
	require.False(t, f.estimates.linked)
}

func TestConvertRequiresPermission(t *testing.T) {
	f := newFixture(t)
	f.service = NewService(f.estimates, f.plans, f.projects, f.workOrders, f.purchaseOrders,
		f.buyCosts, allowAll{denied: map[string]bool{"estimating.estimate.convert": true}},
		f.audit, nil, "tenant-main")

	_, err := f.convert(t)
	require.ErrorIs(t, err, workflow.ErrUnauthorized)
	require.False(t, f.estimates.linked)
}

func TestConvertFailureAfterLinkIsPartial(t *testing.T) {
	f := newFixture(t)
	f.workOrders.fail = true

	result, err := f.convert(t)
	require.ErrorIs(t, err, ErrPartialConversion)

	// The link stays in place and the created project is reported for
	// reconciliation.
	require.True(t, f.estimates.linked)
	require.NotNil(t, result)
	require.Equal(t, f.estimates.linkedTo, result.ProjectID)
	require.Empty(t, f.audit.logs)
}
