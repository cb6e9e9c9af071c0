package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sitebeam-erp/sitebeam-erp/internal/shared"
)

// EntityPort loads and writes workflow state for estimates and variations.
type EntityPort interface {
	LoadEntity(ctx context.Context, kind Kind, id int64) (Entity, error)
	// UpdateStatus persists the new status plus a status-changed timestamp.
	// The write must be conditional on the revision the entity was loaded at
	// and must increment it, so a racing transition observes ErrStaleRevision.
	UpdateStatus(ctx context.Context, kind Kind, id int64, to Status, expectedRevision int64, at time.Time) error
}

// PermissionPort resolves a named permission for a role.
type PermissionPort interface {
	RoleHasPermission(ctx context.Context, role, permission string) (bool, error)
}

// AuditPort records status-change activity.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Guard validates and applies status transitions for estimates and variations.
// All legality decisions come from the static edge tables in machine.go.
type Guard struct {
	entities    EntityPort
	permissions PermissionPort
	checks      Registry
	audit       AuditPort
	tenantID    string
	logger      *slog.Logger
	now         func() time.Time
}

// NewGuard constructs the workflow guard.
func NewGuard(entities EntityPort, permissions PermissionPort, checks Registry, audit AuditPort, tenantID string, logger *slog.Logger) *Guard {
	if checks == nil {
		checks = DefaultRegistry()
	}
	return &Guard{
		entities:    entities,
		permissions: permissions,
		checks:      checks,
		audit:       audit,
		tenantID:    tenantID,
		logger:      logger,
		now:         time.Now,
	}
}

// TransitionInput carries a transition request.
type TransitionInput struct {
	Kind Kind
	ID   int64
	To   Status
	Note string
}

// Transition validates and applies one status change. The validation step runs
// to completion before any write; a half-applied transition is never observable.
func (g *Guard) Transition(ctx context.Context, input TransitionInput, actor *shared.Actor) (Entity, error) {
	entity, err := g.entities.LoadEntity(ctx, input.Kind, input.ID)
	if err != nil {
		return Entity{}, err
	}
	from := Normalize(entity.Status)

	edge, ok := FindEdge(input.Kind, from, input.To)
	if !ok {
		return Entity{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, input.To)
	}

	if edge.Permission != "" {
		role := ""
		if actor != nil {
			role = actor.Role
		}
		allowed, err := g.permissions.RoleHasPermission(ctx, role, edge.Permission)
		if err != nil {
			return Entity{}, fmt.Errorf("resolve permission %s: %w", edge.Permission, err)
		}
		if !allowed {
			return Entity{}, fmt.Errorf("%w: %s", ErrUnauthorized, edge.Permission)
		}
	}

	// Every check runs; failures are collected so the caller can resolve them
	// all in one round trip.
	var failures []string
	for _, check := range edge.Validations {
		ok, reason, err := g.checks.Evaluate(ctx, check, entity)
		if err != nil {
			return Entity{}, fmt.Errorf("evaluate %s: %w", check, err)
		}
		if !ok {
			failures = append(failures, reason)
		}
	}
	if len(failures) > 0 {
		return Entity{}, &ValidationError{Failures: failures}
	}

	changedAt := g.now()
	if err := g.entities.UpdateStatus(ctx, input.Kind, input.ID, input.To, entity.Revision, changedAt); err != nil {
		return Entity{}, err
	}

	if g.audit != nil {
		actorID := int64(0)
		if actor != nil {
			actorID = actor.ID
		}
		log := shared.AuditLog{
			TenantID: g.tenantID,
			ActorID:  actorID,
			Action:   "status_changed",
			Entity:   string(input.Kind),
			EntityID: strconv.FormatInt(input.ID, 10),
			Meta:     map[string]any{"from": string(from), "to": string(input.To), "note": input.Note},
			At:       changedAt,
		}
		if err := g.audit.Record(ctx, log); err != nil && g.logger != nil {
			g.logger.Error("record transition audit", slog.Any("error", err))
		}
	}

	entity.Status = input.To
	entity.Revision++
	return entity, nil
}
