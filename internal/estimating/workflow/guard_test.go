package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitebeam-erp/sitebeam-erp/internal/shared"
)

type memoryEntityPort struct {
	entities map[int64]Entity
	updates  int
}

func (p *memoryEntityPort) LoadEntity(ctx context.Context, kind Kind, id int64) (Entity, error) {
	entity, ok := p.entities[id]
	if !ok {
		return Entity{}, ErrNotFound
	}
	return entity, nil
}

func (p *memoryEntityPort) UpdateStatus(ctx context.Context, kind Kind, id int64, to Status, expectedRevision int64, at time.Time) error {
	entity, ok := p.entities[id]
	if !ok {
		return ErrNotFound
	}
	if entity.Revision != expectedRevision {
		return ErrStaleRevision
	}
	entity.Status = to
	entity.Revision++
	p.entities[id] = entity
	p.updates++
	return nil
}

type allowAllPermissions struct{ denied map[string]bool }

func (p allowAllPermissions) RoleHasPermission(ctx context.Context, role, permission string) (bool, error) {
	return !p.denied[permission], nil
}

type memoryAudit struct{ logs []shared.AuditLog }

func (a *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newTestGuard(entities *memoryEntityPort, perms PermissionPort, audit AuditPort) *Guard {
	return NewGuard(entities, perms, nil, audit, "tenant-main", nil)
}

func TestTransitionIllegalEdge(t *testing.T) {
	entities := &memoryEntityPort{entities: map[int64]Entity{
		1: {Kind: KindEstimate, ID: 1, Status: EstimateDraft, LineItemCount: 2, Total: 100},
	}}
	guard := newTestGuard(entities, allowAllPermissions{}, &memoryAudit{})

	_, err := guard.Transition(context.Background(), TransitionInput{Kind: KindEstimate, ID: 1, To: EstimateSent}, nil)
	require.ErrorIs(t, err, ErrIllegalTransition)
	require.Zero(t, entities.updates, "illegal transition must not write")
}

func TestTransitionValidationCollectsAllFailures(t *testing.T) {
	entities := &memoryEntityPort{entities: map[int64]Entity{
		1: {Kind: KindEstimate, ID: 1, Status: EstimateInternalReview, Total: 0, LayoutID: nil},
	}}
	audit := &memoryAudit{}
	guard := newTestGuard(entities, allowAllPermissions{}, audit)

	_, err := guard.Transition(context.Background(), TransitionInput{Kind: KindEstimate, ID: 1, To: EstimateReadyToSend}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Failures, 2, "both failing checks must be reported")
	require.True(t, strings.Contains(verr.Error(), "total"))

	// Status untouched after the rejected call.
	require.Equal(t, EstimateInternalReview, entities.entities[1].Status)
	require.Empty(t, audit.logs)
}

func TestTransitionUnauthorized(t *testing.T) {
	layout := int64(7)
	entities := &memoryEntityPort{entities: map[int64]Entity{
		1: {Kind: KindEstimate, ID: 1, Status: EstimateReadyToSend, Total: 500, QuoteVersionCount: 1, LayoutID: &layout},
	}}
	perms := allowAllPermissions{denied: map[string]bool{"estimating.estimate.send": true}}
	guard := newTestGuard(entities, perms, &memoryAudit{})

	actor := &shared.Actor{ID: 9, Role: "estimator"}
	_, err := guard.Transition(context.Background(), TransitionInput{Kind: KindEstimate, ID: 1, To: EstimateSent}, actor)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, EstimateReadyToSend, entities.entities[1].Status)
}

func TestTransitionSuccessWritesStatusAndAudit(t *testing.T) {
	layout := int64(7)
	entities := &memoryEntityPort{entities: map[int64]Entity{
		1: {Kind: KindEstimate, ID: 1, Status: EstimateInternalReview, Revision: 3, Total: 1200, LayoutID: &layout},
	}}
	audit := &memoryAudit{}
	guard := newTestGuard(entities, allowAllPermissions{}, audit)

	actor := &shared.Actor{ID: 4, Role: "manager"}
	entity, err := guard.Transition(context.Background(), TransitionInput{Kind: KindEstimate, ID: 1, To: EstimateReadyToSend, Note: "review ok"}, actor)
	require.NoError(t, err)
	require.Equal(t, EstimateReadyToSend, entity.Status)
	require.Equal(t, int64(4), entity.Revision)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "status_changed", audit.logs[0].Action)
	require.Equal(t, "internal_review", audit.logs[0].Meta["from"])
	require.Equal(t, "ready_to_send", audit.logs[0].Meta["to"])
	require.Equal(t, "review ok", audit.logs[0].Meta["note"])
}

func TestTransitionStaleRevision(t *testing.T) {
	entities := &memoryEntityPort{entities: map[int64]Entity{
		1: {Kind: KindEstimate, ID: 1, Status: EstimateInternalReview, Revision: 2},
	}}
	guard := newTestGuard(entities, allowAllPermissions{}, &memoryAudit{})

	// Simulate a racing writer bumping the revision after load.
	guard.now = func() time.Time {
		entity := entities.entities[1]
		entity.Revision++
		entities.entities[1] = entity
		return time.Now()
	}
	_, err := guard.Transition(context.Background(), TransitionInput{Kind: KindEstimate, ID: 1, To: EstimateDraft}, nil)
	require.ErrorIs(t, err, ErrStaleRevision)
}

func TestTransitionNotFound(t *testing.T) {
	entities := &memoryEntityPort{entities: map[int64]Entity{}}
	guard := newTestGuard(entities, allowAllPermissions{}, &memoryAudit{})
	_, err := guard.Transition(context.Background(), TransitionInput{Kind: KindEstimate, ID: 42, To: EstimateDraft}, nil)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestTransitionLegacyStatusDefaultsToDraft(t *testing.T) {
	entities := &memoryEntityPort{entities: map[int64]Entity{
		1: {Kind: KindEstimate, ID: 1, Status: "", LineItemCount: 1},
	}}
	guard := newTestGuard(entities, allowAllPermissions{}, &memoryAudit{})
	entity, err := guard.Transition(context.Background(), TransitionInput{Kind: KindEstimate, ID: 1, To: EstimateInternalReview}, nil)
	require.NoError(t, err)
	require.Equal(t, EstimateInternalReview, entity.Status)
}

func TestVariationFlow(t *testing.T) {
	entities := &memoryEntityPort{entities: map[int64]Entity{
		5: {Kind: KindVariation, ID: 5, Status: VariationSent, Total: 300, LineItemCount: 1},
	}}
	guard := newTestGuard(entities, allowAllPermissions{}, &memoryAudit{})
	actor := &shared.Actor{ID: 2, Role: "manager"}

	entity, err := guard.Transition(context.Background(), TransitionInput{Kind: KindVariation, ID: 5, To: VariationApproved}, actor)
	require.NoError(t, err)
	require.Equal(t, VariationApproved, entity.Status)

	// Approved is terminal.
	_, err = guard.Transition(context.Background(), TransitionInput{Kind: KindVariation, ID: 5, To: VariationSent}, actor)
	require.ErrorIs(t, err, ErrIllegalTransition)
}
