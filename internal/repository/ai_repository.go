package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"project_chatflow/internal/entities"
)

type AIRepository struct {
	db *pgxpool.Pool
}

func NewAIRepository(db *pgxpool.Pool) *AIRepository {
	return &AIRepository{db: db}
}

// GetConfig returns the tenant's AI settings, or nil when AI was never
// configured for the tenant.
func (r *AIRepository) GetConfig(ctx context.Context, tenantID int) (*entities.AIConfig, error) {
	row := r.db.QueryRow(ctx, `
		SELECT tenant_id, provider, model, api_key, style, use_emoji, instructions, history_limit, temperature, is_active
		FROM ai_configs WHERE tenant_id = $1`, tenantID)

	var cfg entities.AIConfig
	err := row.Scan(&cfg.TenantID, &cfg.Provider, &cfg.Model, &cfg.APIKey, &cfg.Style,
		&cfg.UseEmoji, &cfg.Instructions, &cfg.HistoryLimit, &cfg.Temperature, &cfg.IsActive)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ActiveDocs returns the tenant's active knowledge corpus.
func (r *AIRepository) ActiveDocs(ctx context.Context, tenantID int) ([]entities.KnowledgeDoc, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, tenant_id, title, content, is_active
		FROM knowledge_docs
		WHERE tenant_id = $1 AND is_active
		ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.KnowledgeDoc
	for rows.Next() {
		var doc entities.KnowledgeDoc
		if err := rows.Scan(&doc.ID, &doc.TenantID, &doc.Title, &doc.Content, &doc.IsActive); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}
