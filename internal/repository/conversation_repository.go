package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"project_chatflow/internal/entities"
)

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = `id, tenant_id, contact_id, channel, status, last_customer_message_at, created_at`

func scanConversation(row pgx.Row) (*entities.Conversation, error) {
	var c entities.Conversation
	err := row.Scan(&c.ID, &c.TenantID, &c.ContactID, &c.Channel, &c.Status,
		&c.LastCustomerMessageAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ResolveOpen returns the single open conversation for (contact, channel),
// creating one if absent, and refreshes last_customer_message_at to now.
// The refresh is what re-opens the 24-hour send window on every inbound
// message. The partial unique index on open conversations breaks ties
// between concurrent callers.
func (r *ConversationRepository) ResolveOpen(ctx context.Context, db DB, tenantID, contactID int, channel string) (*entities.Conversation, error) {
	row := db.QueryRow(ctx, fmt.Sprintf(`
		UPDATE conversations SET last_customer_message_at = CURRENT_TIMESTAMP
		WHERE contact_id = $1 AND channel = $2 AND status = 'open'
		RETURNING %s`, conversationColumns),
		contactID, channel)
	conv, err := scanConversation(row)
	if err == nil {
		return conv, nil
	}
	if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	row = db.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO conversations (tenant_id, contact_id, channel, status, last_customer_message_at)
		VALUES ($1, $2, $3, 'open', CURRENT_TIMESTAMP)
		RETURNING %s`, conversationColumns),
		tenantID, contactID, channel)
	conv, err = scanConversation(row)
	if err == nil {
		return conv, nil
	}
	if !isUniqueViolation(err) {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	// Another consumer opened it first; refresh that one instead.
	row = db.QueryRow(ctx, fmt.Sprintf(`
		UPDATE conversations SET last_customer_message_at = CURRENT_TIMESTAMP
		WHERE contact_id = $1 AND channel = $2 AND status = 'open'
		RETURNING %s`, conversationColumns),
		contactID, channel)
	conv, err = scanConversation(row)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation after race: %w", err)
	}
	return conv, nil
}

// OpenForSend returns the open conversation for (contact, channel),
// creating a closed-window one if absent. Unlike ResolveOpen it never
// touches last_customer_message_at: an outbound campaign send must not
// re-open the 24-hour window, only customer messages do.
func (r *ConversationRepository) OpenForSend(ctx context.Context, db DB, tenantID, contactID int, channel string) (*entities.Conversation, error) {
	row := db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM conversations
		WHERE contact_id = $1 AND channel = $2 AND status = 'open'`, conversationColumns),
		contactID, channel)
	conv, err := scanConversation(row)
	if err == nil {
		return conv, nil
	}
	if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("lookup conversation: %w", err)
	}

	row = db.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO conversations (tenant_id, contact_id, channel, status, last_customer_message_at)
		VALUES ($1, $2, $3, 'open', to_timestamp(0))
		RETURNING %s`, conversationColumns),
		tenantID, contactID, channel)
	conv, err = scanConversation(row)
	if err == nil {
		return conv, nil
	}
	if !isUniqueViolation(err) {
		return nil, fmt.Errorf("create conversation for send: %w", err)
	}

	row = db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM conversations
		WHERE contact_id = $1 AND channel = $2 AND status = 'open'`, conversationColumns),
		contactID, channel)
	return scanConversation(row)
}

func (r *ConversationRepository) GetByID(ctx context.Context, id int) (*entities.Conversation, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM conversations WHERE id = $1", conversationColumns), id)
	return scanConversation(row)
}
