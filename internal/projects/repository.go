package projects

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the project does not exist.
var ErrNotFound = errors.New("projects: record not found")

// Repository persists projects, scoped to a tenant.
type Repository interface {
	Create(ctx context.Context, project Project) (int64, error)
	Get(ctx context.Context, id int64) (*Project, error)
	List(ctx context.Context) ([]Project, error)
}

type repository struct {
	pool     *pgxpool.Pool
	tenantID string
}

// NewRepository constructs a PostgreSQL backed repository scoped to a tenant.
func NewRepository(pool *pgxpool.Pool, tenantID string) Repository {
	return &repository{pool: pool, tenantID: tenantID}
}

const projectColumns = `id, tenant_id, name, customer_name, source_estimate_id, source_quote_version_id,
contract_value, status, started_at, created_by, created_at, updated_at`

func (r *repository) Create(ctx context.Context, project Project) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO projects
		(tenant_id, name, customer_name, source_estimate_id, source_quote_version_id,
		 contract_value, status, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
		RETURNING id`,
		r.tenantID, project.Name, project.CustomerName, project.SourceEstimateID,
		project.SourceQuoteVersion, project.ContractValue, StatusActive, project.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Project, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE tenant_id=$1 AND id=$2`, r.tenantID, id)
	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

func (r *repository) List(ctx context.Context) ([]Project, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects WHERE tenant_id=$1 ORDER BY id DESC`, r.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, project)
	}
	return out, rows.Err()
}

func scanProject(row pgx.Row) (Project, error) {
	var project Project
	err := row.Scan(&project.ID, &project.TenantID, &project.Name, &project.CustomerName,
		&project.SourceEstimateID, &project.SourceQuoteVersion, &project.ContractValue,
		&project.Status, &project.StartedAt, &project.CreatedBy, &project.CreatedAt, &project.UpdatedAt)
	return project, err
}
