package buycost

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no cost has been observed for the material yet.
var ErrNotFound = errors.New("buycost: no observed cost")

// Repository persists last observed buy costs, scoped to a tenant.
type Repository interface {
	Upsert(ctx context.Context, cost BuyCost) error
	Get(ctx context.Context, materialName, unit string) (*BuyCost, error)
	List(ctx context.Context) ([]BuyCost, error)
}

type repository struct {
	pool     *pgxpool.Pool
	tenantID string
}

// NewRepository constructs a PostgreSQL backed repository scoped to a tenant.
func NewRepository(pool *pgxpool.Pool, tenantID string) Repository {
	return &repository{pool: pool, tenantID: tenantID}
}

func (r *repository) Upsert(ctx context.Context, cost BuyCost) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO last_buy_costs
		(tenant_id, material_name, unit, unit_cost, observed_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (tenant_id, material_name, unit)
		DO UPDATE SET unit_cost = EXCLUDED.unit_cost, observed_at = EXCLUDED.observed_at`,
		r.tenantID, cost.MaterialName, cost.Unit, cost.UnitCost, cost.ObservedAt)
	return err
}

func (r *repository) Get(ctx context.Context, materialName, unit string) (*BuyCost, error) {
	var cost BuyCost
	err := r.pool.QueryRow(ctx, `SELECT tenant_id, material_name, unit, unit_cost, observed_at
		FROM last_buy_costs WHERE tenant_id=$1 AND material_name=$2 AND unit=$3`,
		r.tenantID, materialName, unit,
	).Scan(&cost.TenantID, &cost.MaterialName, &cost.Unit, &cost.UnitCost, &cost.ObservedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cost, nil
}

func (r *repository) List(ctx context.Context) ([]BuyCost, error) {
	rows, err := r.pool.Query(ctx, `SELECT tenant_id, material_name, unit, unit_cost, observed_at
		FROM last_buy_costs WHERE tenant_id=$1 ORDER BY material_name, unit`, r.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var costs []BuyCost
	for rows.Next() {
		var cost BuyCost
		if err := rows.Scan(&cost.TenantID, &cost.MaterialName, &cost.Unit, &cost.UnitCost, &cost.ObservedAt); err != nil {
			return nil, err
		}
		costs = append(costs, cost)
	}
	return costs, rows.Err()
}
