package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"project_chatflow/internal/entities"
)

type TemplateRepository struct {
	db *pgxpool.Pool
}

func NewTemplateRepository(db *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Get returns the named template, or nil when unknown.
func (r *TemplateRepository) Get(ctx context.Context, tenantID int, name, language string) (*entities.MessageTemplate, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, tenant_id, name, language, body, status, quality
		FROM message_templates
		WHERE tenant_id = $1 AND name = $2 AND language = $3`, tenantID, name, language)

	var t entities.MessageTemplate
	err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Language, &t.Body, &t.Status, &t.Quality)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateStatus applies a provider template-status callback directly to the
// template metadata. Silent no-op when the template is unknown; status
// callbacks can race template provisioning.
func (r *TemplateRepository) UpdateStatus(ctx context.Context, tenantID int, ev entities.TemplateStatusEvent) error {
	_, err := r.db.Exec(ctx, `
		UPDATE message_templates
		SET status = $4, quality = CASE WHEN $5 = '' THEN quality ELSE $5 END
		WHERE tenant_id = $1 AND name = $2 AND language = $3`,
		tenantID, ev.TemplateName, ev.Language, ev.Status, ev.Quality)
	if err != nil {
		return fmt.Errorf("update template status: %w", err)
	}
	return nil
}
