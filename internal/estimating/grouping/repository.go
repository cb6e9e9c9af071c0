package grouping

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the rule does not exist.
var ErrNotFound = errors.New("grouping: rule not found")

// Repository persists group rules.
type Repository interface {
	ListRules(ctx context.Context, tenantID string) ([]GroupRule, error)
	GetRule(ctx context.Context, tenantID string, id int64) (GroupRule, error)
	CreateRule(ctx context.Context, rule GroupRule) (int64, error)
	UpdateRule(ctx context.Context, rule GroupRule) error
	DeleteRule(ctx context.Context, tenantID string, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const ruleColumns = `id, tenant_id, rule_type, priority, match_item_type, match_title_contains,
match_section_contains, match_tag_contains, target_party, document_title, created_at, updated_at`

func (r *repository) ListRules(ctx context.Context, tenantID string) ([]GroupRule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ruleColumns+` FROM group_rules WHERE tenant_id=$1 ORDER BY priority ASC, id ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rules []GroupRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *repository) GetRule(ctx context.Context, tenantID string, id int64) (GroupRule, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM group_rules WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GroupRule{}, ErrNotFound
		}
		return GroupRule{}, err
	}
	return rule, nil
}

func (r *repository) CreateRule(ctx context.Context, rule GroupRule) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO group_rules
(tenant_id, rule_type, priority, match_item_type, match_title_contains, match_section_contains, match_tag_contains, target_party, document_title, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING id`,
		rule.TenantID, rule.RuleType, rule.Priority, rule.MatchItemType, rule.MatchTitleContains,
		rule.MatchSectionContains, rule.MatchTagContains, rule.TargetParty, rule.DocumentTitle).Scan(&id)
	return id, err
}

func (r *repository) UpdateRule(ctx context.Context, rule GroupRule) error {
	tag, err := r.pool.Exec(ctx, `UPDATE group_rules SET
rule_type=$3, priority=$4, match_item_type=$5, match_title_contains=$6, match_section_contains=$7,
match_tag_contains=$8, target_party=$9, document_title=$10, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2`,
		rule.TenantID, rule.ID, rule.RuleType, rule.Priority, rule.MatchItemType, rule.MatchTitleContains,
		rule.MatchSectionContains, rule.MatchTagContains, rule.TargetParty, rule.DocumentTitle)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteRule(ctx context.Context, tenantID string, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM group_rules WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRule(row pgx.Row) (GroupRule, error) {
	var rule GroupRule
	err := row.Scan(&rule.ID, &rule.TenantID, &rule.RuleType, &rule.Priority, &rule.MatchItemType,
		&rule.MatchTitleContains, &rule.MatchSectionContains, &rule.MatchTagContains,
		&rule.TargetParty, &rule.DocumentTitle, &rule.CreatedAt, &rule.UpdatedAt)
	return rule, err
}
