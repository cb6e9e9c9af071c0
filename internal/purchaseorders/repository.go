package purchaseorders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitebeam-erp/sitebeam-erp/internal/platform/db"
)

// ErrNotFound indicates the purchase order does not exist.
var ErrNotFound = errors.New("purchaseorders: record not found")

// Repository persists purchase orders and their line snapshots, scoped to a tenant.
type Repository interface {
	// CreateWithLines writes the header and every line in one transaction so a
	// purchase order is never observable without its snapshot.
	CreateWithLines(ctx context.Context, order PurchaseOrder) (int64, error)
	Get(ctx context.Context, id int64) (*PurchaseOrder, error)
	ListForProject(ctx context.Context, projectID int64) ([]PurchaseOrder, error)
}

type repository struct {
	pool     *pgxpool.Pool
	tenantID string
}

// NewRepository constructs a PostgreSQL backed repository scoped to a tenant.
func NewRepository(pool *pgxpool.Pool, tenantID string) Repository {
	return &repository{pool: pool, tenantID: tenantID}
}

const orderColumns = `id, tenant_id, project_id, quote_version_id, party, document_title, rule_id,
subtotal, vat, total, status, created_at, updated_at`

func (r *repository) CreateWithLines(ctx context.Context, order PurchaseOrder) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO purchase_orders
			(tenant_id, project_id, quote_version_id, party, document_title, rule_id,
			 subtotal, vat, total, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())
			RETURNING id`,
			r.tenantID, order.ProjectID, order.QuoteVersionID, order.Party, order.DocumentTitle,
			order.RuleID, order.Subtotal, order.VAT, order.Total, StatusIssued,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert purchase order: %w", err)
		}
		for _, line := range order.Lines {
			if _, err := tx.Exec(ctx, `INSERT INTO purchase_order_lines
				(purchase_order_id, source_item_id, item_type, title, description, quantity, unit, unit_cost, line_total)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
				id, line.SourceItemID, line.ItemType, line.Title, line.Description,
				line.Quantity, line.Unit, line.UnitCost, line.LineTotal); err != nil {
				return fmt.Errorf("insert purchase order line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*PurchaseOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE tenant_id=$1 AND id=$2`, r.tenantID, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, purchase_order_id, source_item_id, item_type, title, description,
		quantity, unit, unit_cost, line_total
		FROM purchase_order_lines WHERE purchase_order_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.PurchaseOrderID, &line.SourceItemID, &line.ItemType,
			&line.Title, &line.Description, &line.Quantity, &line.Unit, &line.UnitCost, &line.LineTotal); err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListForProject(ctx context.Context, projectID int64) ([]PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM purchase_orders
		WHERE tenant_id=$1 AND project_id=$2 ORDER BY id`, r.tenantID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var order PurchaseOrder
	err := row.Scan(&order.ID, &order.TenantID, &order.ProjectID, &order.QuoteVersionID,
		&order.Party, &order.DocumentTitle, &order.RuleID, &order.Subtotal, &order.VAT,
		&order.Total, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	return order, err
}
