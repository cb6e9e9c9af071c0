package estimates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/workflow"
	"github.com/sitebeam-erp/sitebeam-erp/internal/platform/db"
)

var (
	// ErrNotFound indicates the estimate or quote version does not exist.
	ErrNotFound = errors.New("estimates: record not found")
)

// Repository persists estimates, their lines/sections and quote versions.
// Every query is scoped by the tenant id the repository was constructed with.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Estimate, error)
	List(ctx context.Context, req ListEstimatesRequest) ([]Estimate, int, error)
	Create(ctx context.Context, estimate Estimate) (int64, error)
	UpdateHeader(ctx context.Context, id int64, updates map[string]any) error
	InsertSection(ctx context.Context, section Section) (int64, error)
	InsertLine(ctx context.Context, line EstimateLine) (int64, error)
	DeleteLines(ctx context.Context, estimateID int64) error

	LoadWorkflowEntity(ctx context.Context, id int64) (workflow.Entity, error)
	UpdateStatus(ctx context.Context, id int64, to workflow.Status, expectedRevision int64, at time.Time) error
	LinkProject(ctx context.Context, estimateID, projectID int64, quoteVersionID uuid.UUID, expectedRevision int64, at time.Time) error
	ApplyVariationDelta(ctx context.Context, estimateID int64, subtotal, vat, total float64) error

	CreateQuoteVersion(ctx context.Context, version QuoteVersion) (uuid.UUID, error)
	GetQuoteVersion(ctx context.Context, id uuid.UUID) (*QuoteVersion, error)
	ListQuoteVersions(ctx context.Context, estimateID int64) ([]QuoteVersion, error)
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

const estimateColumns = `id, tenant_id, title, customer_name, workflow_status, revision, layout_id,
subtotal_ex_vat, vat, total, converted_project_id, converted_from_quote_version_id, converted_at,
status_changed_at, notes, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Estimate, error) {
	row := r.db.QueryRow(ctx, `SELECT `+estimateColumns+` FROM estimates WHERE tenant_id=$1 AND id=$2`, r.tenantID, id)
	estimate, err := scanEstimate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	sections, err := r.listSections(ctx, id)
	if err != nil {
		return nil, err
	}
	estimate.Sections = sections

	lines, err := r.listLines(ctx, id)
	if err != nil {
		return nil, err
	}
	estimate.Lines = lines
	return &estimate, nil
}

func (r *repository) List(ctx context.Context, req ListEstimatesRequest) ([]Estimate, int, error) {
	conditions := "tenant_id = $1"
	args := []any{r.tenantID}
	argPos := 2

	if req.Status != nil {
		conditions += fmt.Sprintf(" AND workflow_status = $%d", argPos)
		args = append(args, *req.Status)
		argPos++
	}
	if req.Search != "" {
		conditions += fmt.Sprintf(" AND (title ILIKE $%d OR customer_name ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+req.Search+"%")
		argPos++
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM estimates WHERE "+conditions, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit == 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM estimates WHERE %s ORDER BY updated_at DESC, id DESC LIMIT $%d OFFSET $%d",
		estimateColumns, conditions, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var estimates []Estimate
	for rows.Next() {
		estimate, err := scanEstimate(rows)
		if err != nil {
			return nil, 0, err
		}
		estimates = append(estimates, estimate)
	}
	return estimates, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, estimate Estimate) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO estimates
(tenant_id, title, customer_name, workflow_status, revision, layout_id, subtotal_ex_vat, vat, total, notes, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, 0, $5, $6, $7, $8, $9, $10, NOW(), NOW()) RETURNING id`,
		r.tenantID, estimate.Title, estimate.CustomerName, estimate.Status, estimate.LayoutID,
		estimate.SubtotalExVAT, estimate.VAT, estimate.Total, estimate.Notes, estimate.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	query := "UPDATE estimates SET updated_at = NOW()"
	args := []any{r.tenantID, id}
	argPos := 3
	for _, column := range []string{"title", "customer_name", "layout_id", "notes", "subtotal_ex_vat", "vat", "total"} {
		if value, ok := updates[column]; ok {
			query += fmt.Sprintf(", %s = $%d", column, argPos)
			args = append(args, value)
			argPos++
		}
	}
	query += " WHERE tenant_id = $1 AND id = $2"
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) InsertSection(ctx context.Context, section Section) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO estimate_sections (estimate_id, title, sort_order)
VALUES ($1, $2, $3) RETURNING id`, section.EstimateID, section.Title, section.SortOrder).Scan(&id)
	return id, err
}

func (r *repository) InsertLine(ctx context.Context, line EstimateLine) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO estimate_lines
(estimate_id, section_id, item_type, category, title, description, tag, quantity, unit, unit_cost,
 fixed_price_ex_vat, markup_pct_override, wastage_pct_override, price_ex_vat, vat, line_total, line_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17) RETURNING id`,
		line.EstimateID, line.SectionID, line.ItemType, line.Category, line.Title, line.Description, line.Tag,
		line.Quantity, line.Unit, line.UnitCost, line.FixedPriceExVAT, line.MarkupPctOver, line.WastagePctOver,
		line.PriceExVAT, line.VAT, line.LineTotal, line.LineOrder).Scan(&id)
	return id, err
}

func (r *repository) DeleteLines(ctx context.Context, estimateID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM estimate_lines WHERE estimate_id=$1`, estimateID)
	return err
}

// LoadWorkflowEntity reads just enough state for the workflow guard.
func (r *repository) LoadWorkflowEntity(ctx context.Context, id int64) (workflow.Entity, error) {
	var entity workflow.Entity
	var status *string
	err := r.db.QueryRow(ctx, `SELECT e.id, e.workflow_status, e.revision, e.total, e.layout_id,
(SELECT COUNT(*) FROM estimate_lines l WHERE l.estimate_id = e.id),
(SELECT COUNT(*) FROM quote_versions v WHERE v.estimate_id = e.id)
FROM estimates e WHERE e.tenant_id=$1 AND e.id=$2`, r.tenantID, id).
		Scan(&entity.ID, &status, &entity.Revision, &entity.Total, &entity.LayoutID, &entity.LineItemCount, &entity.QuoteVersionCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return workflow.Entity{}, workflow.ErrNotFound
		}
		return workflow.Entity{}, err
	}
	entity.Kind = workflow.KindEstimate
	if status != nil {
		entity.Status = workflow.Status(*status)
	}
	entity.Status = workflow.Normalize(entity.Status)
	return entity, nil
}

// UpdateStatus writes the new status conditional on the loaded revision.
func (r *repository) UpdateStatus(ctx context.Context, id int64, to workflow.Status, expectedRevision int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE estimates
SET workflow_status=$3, status_changed_at=$4, revision=revision+1, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 AND revision=$5`, r.tenantID, id, to, at, expectedRevision)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return staleOrMissing(ctx, r.db, r.tenantID, id)
	}
	return nil
}

// LinkProject marks the estimate converted and moves it to won in one statement.
func (r *repository) LinkProject(ctx context.Context, estimateID, projectID int64, quoteVersionID uuid.UUID, expectedRevision int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE estimates
SET converted_project_id=$3, converted_from_quote_version_id=$4, converted_at=$5,
    workflow_status=$6, status_changed_at=$5, revision=revision+1, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 AND revision=$7 AND converted_project_id IS NULL`,
		r.tenantID, estimateID, projectID, quoteVersionID, at, workflow.EstimateWon, expectedRevision)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return staleOrMissing(ctx, r.db, r.tenantID, estimateID)
	}
	return nil
}

func (r *repository) ApplyVariationDelta(ctx context.Context, estimateID int64, subtotal, vat, total float64) error {
	tag, err := r.db.Exec(ctx, `UPDATE estimates
SET subtotal_ex_vat = subtotal_ex_vat + $3, vat = vat + $4, total = total + $5, updated_at = NOW()
WHERE tenant_id=$1 AND id=$2`, r.tenantID, estimateID, subtotal, vat, total)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) CreateQuoteVersion(ctx context.Context, version QuoteVersion) (uuid.UUID, error) {
	if version.ID == uuid.Nil {
		version.ID = uuid.New()
	}
	itemsJSON, err := json.Marshal(version.ItemsSnapshot)
	if err != nil {
		return uuid.Nil, err
	}
	sectionsJSON, err := json.Marshal(version.SectionsSnapshot)
	if err != nil {
		return uuid.Nil, err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO quote_versions
(id, tenant_id, estimate_id, version_number, vat_rate, subtotal_ex_vat, vat, total, items_snapshot, sections_snapshot, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())`,
		version.ID, r.tenantID, version.EstimateID, version.VersionNumber, version.VATRate,
		version.SubtotalExVAT, version.VAT, version.Total, itemsJSON, sectionsJSON, version.CreatedBy)
	if err != nil {
		return uuid.Nil, err
	}
	return version.ID, nil
}

func (r *repository) GetQuoteVersion(ctx context.Context, id uuid.UUID) (*QuoteVersion, error) {
	var version QuoteVersion
	var itemsJSON, sectionsJSON []byte
	err := r.db.QueryRow(ctx, `SELECT id, estimate_id, version_number, vat_rate, subtotal_ex_vat, vat, total,
items_snapshot, sections_snapshot, created_by, created_at
FROM quote_versions WHERE tenant_id=$1 AND id=$2`, r.tenantID, id).
		Scan(&version.ID, &version.EstimateID, &version.VersionNumber, &version.VATRate,
			&version.SubtotalExVAT, &version.VAT, &version.Total, &itemsJSON, &sectionsJSON,
			&version.CreatedBy, &version.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &version.ItemsSnapshot); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(sectionsJSON, &version.SectionsSnapshot); err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *repository) ListQuoteVersions(ctx context.Context, estimateID int64) ([]QuoteVersion, error) {
	rows, err := r.db.Query(ctx, `SELECT id, estimate_id, version_number, vat_rate, subtotal_ex_vat, vat, total, created_by, created_at
FROM quote_versions WHERE tenant_id=$1 AND estimate_id=$2 ORDER BY version_number ASC`, r.tenantID, estimateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var versions []QuoteVersion
	for rows.Next() {
		var version QuoteVersion
		if err := rows.Scan(&version.ID, &version.EstimateID, &version.VersionNumber, &version.VATRate,
			&version.SubtotalExVAT, &version.VAT, &version.Total, &version.CreatedBy, &version.CreatedAt); err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}
	return versions, rows.Err()
}

func (r *repository) listSections(ctx context.Context, estimateID int64) ([]Section, error) {
	rows, err := r.db.Query(ctx, `SELECT id, estimate_id, title, sort_order
FROM estimate_sections WHERE estimate_id=$1 ORDER BY sort_order ASC, id ASC`, estimateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sections []Section
	for rows.Next() {
		var section Section
		if err := rows.Scan(&section.ID, &section.EstimateID, &section.Title, &section.SortOrder); err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	return sections, rows.Err()
}

func (r *repository) listLines(ctx context.Context, estimateID int64) ([]EstimateLine, error) {
	rows, err := r.db.Query(ctx, `SELECT id, estimate_id, section_id, item_type, category, title, description, tag,
quantity, unit, unit_cost, fixed_price_ex_vat, markup_pct_override, wastage_pct_override,
price_ex_vat, vat, line_total, line_order
FROM estimate_lines WHERE estimate_id=$1 ORDER BY line_order ASC, id ASC`, estimateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []EstimateLine
	for rows.Next() {
		var line EstimateLine
		if err := rows.Scan(&line.ID, &line.EstimateID, &line.SectionID, &line.ItemType, &line.Category,
			&line.Title, &line.Description, &line.Tag, &line.Quantity, &line.Unit, &line.UnitCost,
			&line.FixedPriceExVAT, &line.MarkupPctOver, &line.WastagePctOver,
			&line.PriceExVAT, &line.VAT, &line.LineTotal, &line.LineOrder); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanEstimate(row pgx.Row) (Estimate, error) {
	var estimate Estimate
	var status *string
	err := row.Scan(&estimate.ID, &estimate.TenantID, &estimate.Title, &estimate.CustomerName, &status,
		&estimate.Revision, &estimate.LayoutID, &estimate.SubtotalExVAT, &estimate.VAT, &estimate.Total,
		&estimate.ConvertedProjectID, &estimate.ConvertedQuoteVersionID, &estimate.ConvertedAt,
		&estimate.StatusChangedAt, &estimate.Notes, &estimate.CreatedBy, &estimate.CreatedAt, &estimate.UpdatedAt)
	if err != nil {
		return Estimate{}, err
	}
	if status != nil {
		estimate.Status = workflow.Status(*status)
	}
	estimate.Status = workflow.Normalize(estimate.Status)
	return estimate, nil
}

// staleOrMissing distinguishes a lost revision race from a missing row.
func staleOrMissing(ctx context.Context, q dbtx, tenantID string, id int64) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM estimates WHERE tenant_id=$1 AND id=$2)`, tenantID, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return workflow.ErrNotFound
	}
	return workflow.ErrStaleRevision
}
