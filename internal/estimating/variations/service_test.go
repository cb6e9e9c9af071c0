package variations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/pricing"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/workflow"
	"github.com/sitebeam-erp/sitebeam-erp/internal/shared"
)

type memoryRepo struct {
	variations map[int64]Variation
	lines      map[int64][]VariationLine
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		variations: make(map[int64]Variation),
		lines:      make(map[int64][]VariationLine),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Variation, error) {
	variation, ok := r.variations[id]
	if !ok {
		return nil, ErrNotFound
	}
	variation.Lines = append([]VariationLine(nil), r.lines[id]...)
	return &variation, nil
}

func (r *memoryRepo) ListForEstimate(ctx context.Context, estimateID int64) ([]Variation, error) {
	var out []Variation
	for _, variation := range r.variations {
		if variation.EstimateID == estimateID {
			out = append(out, variation)
		}
	}
	return out, nil
}

func (r *memoryRepo) Create(ctx context.Context, variation Variation) (int64, error) {
	r.nextID++
	variation.ID = r.nextID
	variation.Status = workflow.Normalize(variation.Status)
	r.variations[variation.ID] = variation
	return variation.ID, nil
}

func (r *memoryRepo) UpdateHeader(ctx context.Context, id int64, updates map[string]any) error {
	variation, ok := r.variations[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["title"]; ok {
		variation.Title = v.(string)
	}
	if v, ok := updates["subtotal_ex_vat"]; ok {
		variation.SubtotalExVAT = v.(float64)
	}
	if v, ok := updates["vat"]; ok {
		variation.VAT = v.(float64)
	}
	if v, ok := updates["total"]; ok {
		variation.Total = v.(float64)
	}
	r.variations[id] = variation
	return nil
}

func (r *memoryRepo) InsertLine(ctx context.Context, line VariationLine) (int64, error) {
	r.nextID++
	line.ID = r.nextID
	r.lines[line.VariationID] = append(r.lines[line.VariationID], line)
	return line.ID, nil
}

func (r *memoryRepo) DeleteLines(ctx context.Context, variationID int64) error {
	delete(r.lines, variationID)
	return nil
}

func (r *memoryRepo) LoadWorkflowEntity(ctx context.Context, id int64) (workflow.Entity, error) {
	variation, ok := r.variations[id]
	if !ok {
		return workflow.Entity{}, workflow.ErrNotFound
	}
	return workflow.Entity{
		Kind:          workflow.KindVariation,
		ID:            id,
		Status:        workflow.Normalize(variation.Status),
		Revision:      variation.Revision,
		Total:         variation.Total,
		LineItemCount: len(r.lines[id]),
	}, nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, id int64, to workflow.Status, expectedRevision int64, at time.Time) error {
	variation, ok := r.variations[id]
	if !ok {
		return workflow.ErrNotFound
	}
	if variation.Revision != expectedRevision {
		return workflow.ErrStaleRevision
	}
	variation.Status = to
	variation.Revision++
	variation.StatusChangedAt = &at
	r.variations[id] = variation
	return nil
}

func (r *memoryRepo) MarkApproved(ctx context.Context, id int64, at time.Time) error {
	variation, ok := r.variations[id]
	if !ok {
		return ErrNotFound
	}
	variation.ApprovedAt = &at
	r.variations[id] = variation
	return nil
}

type memoryEstimates struct {
	status   workflow.Status
	subtotal float64
	vat      float64
	total    float64
	applied  int
}

func (m *memoryEstimates) LoadWorkflowEntity(ctx context.Context, id int64) (workflow.Entity, error) {
	if m.status == "" {
		return workflow.Entity{}, workflow.ErrNotFound
	}
	return workflow.Entity{Kind: workflow.KindEstimate, ID: id, Status: m.status}, nil
}

func (m *memoryEstimates) ApplyVariationDelta(ctx context.Context, estimateID int64, subtotal, vat, total float64) error {
	m.subtotal += subtotal
	m.vat += vat
	m.total += total
	m.applied++
	return nil
}

type staticSettings struct{ settings pricing.Settings }

func (s staticSettings) Get(ctx context.Context) (pricing.Settings, error) {
	return s.settings, nil
}

type allowAll struct{}

func (allowAll) RoleHasPermission(ctx context.Context, role, permission string) (bool, error) {
	return true, nil
}

func testSettings() pricing.Settings {
	return pricing.Settings{
		VATRate:         20,
		LabourBurdenPct: 10,
		OverheadPct:     5,
		MarginPct:       15,
		PricingMode:     pricing.ModeCostPlus,
	}
}

func newTestService(repo *memoryRepo, estimatePort *memoryEstimates) *Service {
	return NewService(repo, estimatePort, staticSettings{settings: testSettings()}, allowAll{}, nil, "tenant-main")
}

func TestCreateRejectsDraftEstimate(t *testing.T) {
	repo := newMemoryRepo()
	estimatePort := &memoryEstimates{status: workflow.EstimateDraft}
	service := newTestService(repo, estimatePort)

	_, err := service.Create(context.Background(), CreateVariationRequest{
		EstimateID: 1, Title: "Extra socket outlets",
	}, nil)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCreatePricesLines(t *testing.T) {
	repo := newMemoryRepo()
	estimatePort := &memoryEstimates{status: workflow.EstimateSent}
	service := newTestService(repo, estimatePort)

	variation, err := service.Create(context.Background(), CreateVariationRequest{
		EstimateID: 1,
		Title:      "Extra socket outlets",
		Lines: []CreateLineRequest{
			{ItemType: pricing.ItemTypeLabour, Title: "Electrician", Quantity: 4, UnitCost: 45},
		},
	}, &shared.Actor{ID: 7, Role: "estimator"})
	require.NoError(t, err)
	require.Equal(t, workflow.VariationDraft, variation.Status)
	require.Len(t, variation.Lines, 1)
	require.Greater(t, variation.Total, variation.SubtotalExVAT)
}

func TestApprovalFoldsTotalsIntoEstimate(t *testing.T) {
	repo := newMemoryRepo()
	estimatePort := &memoryEstimates{status: workflow.EstimateAccepted}
	service := newTestService(repo, estimatePort)

	repo.variations[1] = Variation{
		ID: 1, EstimateID: 9, Status: workflow.VariationSent,
		SubtotalExVAT: 500, VAT: 100, Total: 600,
	}
	repo.nextID = 1

	_, err := service.Transition(context.Background(), 1, TransitionRequest{To: workflow.VariationApproved}, &shared.Actor{ID: 7, Role: "manager"})
	require.NoError(t, err)
	require.Equal(t, 1, estimatePort.applied)
	require.InDelta(t, 500, estimatePort.subtotal, 1e-9)
	require.InDelta(t, 100, estimatePort.vat, 1e-9)
	require.InDelta(t, 600, estimatePort.total, 1e-9)
	require.NotNil(t, repo.variations[1].ApprovedAt)
	require.Equal(t, workflow.VariationApproved, repo.variations[1].Status)
}

func TestRejectionDoesNotTouchEstimate(t *testing.T) {
	repo := newMemoryRepo()
	estimatePort := &memoryEstimates{status: workflow.EstimateAccepted}
	service := newTestService(repo, estimatePort)

	repo.variations[1] = Variation{ID: 1, EstimateID: 9, Status: workflow.VariationSent, Total: 600}
	repo.nextID = 1

	_, err := service.Transition(context.Background(), 1, TransitionRequest{To: workflow.VariationRejected}, nil)
	require.NoError(t, err)
	require.Equal(t, 0, estimatePort.applied)
}

func TestUpdateRepricesLines(t *testing.T) {
	repo := newMemoryRepo()
	service := newTestService(repo, &memoryEstimates{status: workflow.EstimateSent})
	repo.variations[1] = Variation{ID: 1, Status: workflow.VariationDraft, Total: 50}
	repo.nextID = 1

	variation, err := service.Update(context.Background(), 1, UpdateVariationRequest{
		Lines: []CreateLineRequest{
			{ItemType: pricing.ItemTypeLabour, Title: "Electrician", Quantity: 2, UnitCost: 100},
		},
	})
	require.NoError(t, err)
	require.Len(t, variation.Lines, 1)
	require.Greater(t, variation.SubtotalExVAT, 0.0)
	require.InDelta(t, variation.SubtotalExVAT+variation.VAT, variation.Total, 0.01)
}

func TestUpdateRejectedOutsideDraft(t *testing.T) {
	repo := newMemoryRepo()
	service := newTestService(repo, &memoryEstimates{status: workflow.EstimateSent})
	repo.variations[1] = Variation{ID: 1, Status: workflow.VariationSent}
	repo.nextID = 1

	title := "Changed"
	_, err := service.Update(context.Background(), 1, UpdateVariationRequest{Title: &title})
	require.ErrorIs(t, err, ErrInvalidStatus)
}
