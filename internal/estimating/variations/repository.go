package variations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/workflow"
	"github.com/sitebeam-erp/sitebeam-erp/internal/platform/db"
)

var (
	// ErrNotFound indicates the variation does not exist.
	ErrNotFound = errors.New("variations: record not found")
)

// Repository persists variations and their lines, scoped to a tenant.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Variation, error)
	ListForEstimate(ctx context.Context, estimateID int64) ([]Variation, error)
	Create(ctx context.Context, variation Variation) (int64, error)
	UpdateHeader(ctx context.Context, id int64, updates map[string]any) error
	InsertLine(ctx context.Context, line VariationLine) (int64, error)
	DeleteLines(ctx context.Context, variationID int64) error

	LoadWorkflowEntity(ctx context.Context, id int64) (workflow.Entity, error)
	UpdateStatus(ctx context.Context, id int64, to workflow.Status, expectedRevision int64, at time.Time) error
	MarkApproved(ctx context.Context, id int64, at time.Time) error
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db       dbtx
	pool     *pgxpool.Pool
	tenantID string
}

// NewRepository constructs a PostgreSQL backed repository scoped to a tenant.
func NewRepository(pool *pgxpool.Pool, tenantID string) Repository {
	return &repository{db: pool, pool: pool, tenantID: tenantID}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool, tenantID: r.tenantID})
	})
}

const variationColumns = `id, tenant_id, estimate_id, title, description, workflow_status, revision,
subtotal_ex_vat, vat, total, status_changed_at, approved_at, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Variation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+variationColumns+` FROM variations WHERE tenant_id=$1 AND id=$2`, r.tenantID, id)
	variation, err := scanVariation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	lines, err := r.listLines(ctx, id)
	if err != nil {
		return nil, err
	}
	variation.Lines = lines
	return &variation, nil
}

func (r *repository) ListForEstimate(ctx context.Context, estimateID int64) ([]Variation, error) {
	rows, err := r.db.Query(ctx, `SELECT `+variationColumns+` FROM variations
		WHERE tenant_id=$1 AND estimate_id=$2 ORDER BY id`, r.tenantID, estimateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variations []Variation
	for rows.Next() {
		variation, err := scanVariation(rows)
		if err != nil {
			return nil, err
		}
		variations = append(variations, variation)
	}
	return variations, rows.Err()
}

func (r *repository) Create(ctx context.Context, variation Variation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO variations
		(tenant_id, estimate_id, title, description, workflow_status, revision,
		 subtotal_ex_vat, vat, total, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,0,$6,$7,$8,$9,now(),now())
		RETURNING id`,
		r.tenantID, variation.EstimateID, variation.Title, variation.Description,
		workflow.Normalize(variation.Status), variation.SubtotalExVAT, variation.VAT,
		variation.Total, variation.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert variation: %w", err)
	}
	return id, nil
}

var headerColumns = map[string]bool{
	"title":           true,
	"description":     true,
	"subtotal_ex_vat": true,
	"vat":             true,
	"total":           true,
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	set := ""
	args := []any{r.tenantID, id}
	argPos := 3
	for column, value := range updates {
		if !headerColumns[column] {
			return fmt.Errorf("variations: column %q not updatable", column)
		}
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", column, argPos)
		args = append(args, value)
		argPos++
	}
	tag, err := r.db.Exec(ctx, `UPDATE variations SET `+set+`, updated_at=now()
		WHERE tenant_id=$1 AND id=$2`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) InsertLine(ctx context.Context, line VariationLine) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO variation_lines
		(variation_id, item_type, category, title, description, quantity, unit, unit_cost,
		 fixed_price_ex_vat, markup_pct_override, wastage_pct_override,
		 price_ex_vat, vat, line_total, line_order)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING id`,
		line.VariationID, line.ItemType, line.Category, line.Title, line.Description,
		line.Quantity, line.Unit, line.UnitCost, line.FixedPriceExVAT, line.MarkupPctOver,
		line.WastagePctOver, line.PriceExVAT, line.VAT, line.LineTotal, line.LineOrder,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert variation line: %w", err)
	}
	return id, nil
}

func (r *repository) DeleteLines(ctx context.Context, variationID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM variation_lines WHERE variation_id IN
		(SELECT id FROM variations WHERE tenant_id=$1 AND id=$2)`, r.tenantID, variationID)
	return err
}

func (r *repository) LoadWorkflowEntity(ctx context.Context, id int64) (workflow.Entity, error) {
	var entity workflow.Entity
	err := r.db.QueryRow(ctx, `SELECT id, workflow_status, revision, total,
		(SELECT COUNT(*) FROM variation_lines l WHERE l.variation_id = v.id)
		FROM variations v WHERE tenant_id=$1 AND id=$2`, r.tenantID, id,
	).Scan(&entity.ID, &entity.Status, &entity.Revision, &entity.Total, &entity.LineItemCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return workflow.Entity{}, workflow.ErrNotFound
		}
		return workflow.Entity{}, err
	}
	entity.Kind = workflow.KindVariation
	entity.Status = workflow.Normalize(entity.Status)
	return entity, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, to workflow.Status, expectedRevision int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE variations
		SET workflow_status=$3, revision=revision+1, status_changed_at=$4, updated_at=now()
		WHERE tenant_id=$1 AND id=$2 AND revision=$5`,
		r.tenantID, id, to, at, expectedRevision)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.staleOrMissing(ctx, id)
	}
	return nil
}

func (r *repository) MarkApproved(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE variations SET approved_at=$3, updated_at=now()
		WHERE tenant_id=$1 AND id=$2`, r.tenantID, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) staleOrMissing(ctx context.Context, id int64) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM variations WHERE tenant_id=$1 AND id=$2)`,
		r.tenantID, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return workflow.ErrNotFound
	}
	return workflow.ErrStaleRevision
}

func (r *repository) listLines(ctx context.Context, variationID int64) ([]VariationLine, error) {
	rows, err := r.db.Query(ctx, `SELECT id, variation_id, item_type, category, title, description,
		quantity, unit, unit_cost, fixed_price_ex_vat, markup_pct_override, wastage_pct_override,
		price_ex_vat, vat, line_total, line_order
		FROM variation_lines WHERE variation_id=$1 ORDER BY line_order, id`, variationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []VariationLine
	for rows.Next() {
		var line VariationLine
		if err := rows.Scan(&line.ID, &line.VariationID, &line.ItemType, &line.Category,
			&line.Title, &line.Description, &line.Quantity, &line.Unit, &line.UnitCost,
			&line.FixedPriceExVAT, &line.MarkupPctOver, &line.WastagePctOver,
			&line.PriceExVAT, &line.VAT, &line.LineTotal, &line.LineOrder); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanVariation(row pgx.Row) (Variation, error) {
	var variation Variation
	err := row.Scan(&variation.ID, &variation.TenantID, &variation.EstimateID, &variation.Title,
		&variation.Description, &variation.Status, &variation.Revision, &variation.SubtotalExVAT,
		&variation.VAT, &variation.Total, &variation.StatusChangedAt, &variation.ApprovedAt,
		&variation.CreatedBy, &variation.CreatedAt, &variation.UpdatedAt)
	if err != nil {
		return Variation{}, err
	}
	variation.Status = workflow.Normalize(variation.Status)
	return variation, nil
}
