package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"project_chatflow/internal/entities"
)

type AutomationRepository struct {
	db *pgxpool.Pool
}

func NewAutomationRepository(db *pgxpool.Pool) *AutomationRepository {
	return &AutomationRepository{db: db}
}

// ActiveRules returns the tenant's active keyword rules ordered by id, so
// tie-breaking downstream stays deterministic across calls.
func (r *AutomationRepository) ActiveRules(ctx context.Context, tenantID int) ([]entities.AutomationRule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, tenant_id, keyword, reply, is_active
		FROM automation_rules
		WHERE tenant_id = $1 AND is_active
		ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.AutomationRule
	for rows.Next() {
		var rule entities.AutomationRule
		if err := rows.Scan(&rule.ID, &rule.TenantID, &rule.Keyword, &rule.Reply, &rule.IsActive); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
