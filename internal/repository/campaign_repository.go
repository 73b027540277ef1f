package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"project_chatflow/internal/entities"
)

type CampaignRepository struct {
	db *pgxpool.Pool
}

func NewCampaignRepository(db *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) GetCampaign(ctx context.Context, id int) (*entities.Campaign, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, tenant_id, name, channel, template_name, language, status, total_sent, total_failed, created_at
		FROM campaigns WHERE id = $1`, id)

	var c entities.Campaign
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Channel, &c.TemplateName, &c.Language,
		&c.Status, &c.TotalSent, &c.TotalFailed, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) GetItem(ctx context.Context, id int) (*entities.CampaignItem, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, campaign_id, contact_id, status, params, message_id, last_error, retry_count, updated_at
		FROM campaign_items WHERE id = $1`, id)

	var item entities.CampaignItem
	err := row.Scan(&item.ID, &item.CampaignID, &item.ContactID, &item.Status, &item.Params,
		&item.MessageID, &item.LastError, &item.RetryCount, &item.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// EnsureProcessing moves a campaign out of DRAFT when its first job arrives.
func (r *CampaignRepository) EnsureProcessing(ctx context.Context, campaignID int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE campaigns SET status = 'PROCESSING' WHERE id = $1 AND status = 'DRAFT'`, campaignID)
	return err
}

// ItemOutcome is the terminal result of one campaign send.
type ItemOutcome struct {
	Status    string // SENT or FAILED
	MessageID *int   // linked outbound message when SENT
	LastError string // last attempt's error when FAILED
	Retries   int
}

// FinalizeItem applies the send outcome to the item, rolls the campaign
// counters, and flips the campaign to its terminal status in the same
// transaction once every item is terminal. The status predicate in the
// UPDATE enforces the PENDING/QUEUED -> SENT|FAILED state machine: an
// already-terminal item (replayed job) is left untouched.
func (r *CampaignRepository) FinalizeItem(ctx context.Context, itemID int, outcome ItemOutcome) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var campaignID int
	row := tx.QueryRow(ctx, `
		UPDATE campaign_items
		SET status = $2, message_id = $3, last_error = $4, retry_count = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status IN ('PENDING', 'QUEUED')
		RETURNING campaign_id`,
		itemID, outcome.Status, outcome.MessageID, outcome.LastError, outcome.Retries)
	if err := row.Scan(&campaignID); err != nil {
		if err == pgx.ErrNoRows {
			// Replayed job for an already-terminal item.
			return nil
		}
		return fmt.Errorf("finalize item %d: %w", itemID, err)
	}

	if err := r.recompute(ctx, tx, campaignID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CompletionStatus decides the campaign status from its item counts: still
// PROCESSING while any item is non-terminal, FAILED when every item is
// terminal and nothing was sent, COMPLETED otherwise.
func CompletionStatus(total, terminal, sent int) string {
	if total == 0 || terminal < total {
		return entities.CampaignProcessing
	}
	if sent == 0 {
		return entities.CampaignFailed
	}
	return entities.CampaignCompleted
}

// recompute refreshes the campaign counters and flips the status once all
// items are terminal.
func (r *CampaignRepository) recompute(ctx context.Context, tx pgx.Tx, campaignID int) error {
	var total, terminal, sent, failed int
	row := tx.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE status IN ('SENT', 'FAILED')),
		       count(*) FILTER (WHERE status = 'SENT'),
		       count(*) FILTER (WHERE status = 'FAILED')
		FROM campaign_items WHERE campaign_id = $1`, campaignID)
	if err := row.Scan(&total, &terminal, &sent, &failed); err != nil {
		return fmt.Errorf("count campaign items: %w", err)
	}

	status := CompletionStatus(total, terminal, sent)

	_, err := tx.Exec(ctx, `
		UPDATE campaigns SET total_sent = $2, total_failed = $3, status = $4
		WHERE id = $1 AND status <> 'DRAFT'`,
		campaignID, sent, failed, status)
	if err != nil {
		return fmt.Errorf("update campaign %d: %w", campaignID, err)
	}
	return nil
}
