package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"project_chatflow/internal/entities"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append inserts one message row, serializing structured media into its
// JSON descriptor. Returns duplicate=true when the (conversation,
// external id, direction) tuple was already persisted, the signal that a
// replayed queue entry should not trigger a second reply.
func (r *MessageRepository) Append(ctx context.Context, db DB, msg *entities.Message) (duplicate bool, err error) {
	var media []byte
	if msg.Media != nil {
		media, err = json.Marshal(msg.Media)
		if err != nil {
			return false, fmt.Errorf("marshal media descriptor: %w", err)
		}
	}

	row := db.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, direction, msg_type, body, media, external_id, status, raw_payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (conversation_id, external_id, direction) WHERE external_id <> '' DO NOTHING
		RETURNING id, created_at`,
		msg.ConversationID, msg.Direction, msg.Type, msg.Body, media, msg.ExternalID, msg.Status, msg.RawPayload)

	err = row.Scan(&msg.ID, &msg.CreatedAt)
	if err == pgx.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert message: %w", err)
	}
	return false, nil
}

// RecentText loads up to limit of the most recent text messages of a
// conversation, oldest first, for use as AI conversation history.
func (r *MessageRepository) RecentText(ctx context.Context, conversationID, limit int) ([]entities.Message, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, conversation_id, direction, msg_type, body, external_id, status, created_at
		FROM messages
		WHERE conversation_id = $1 AND msg_type = 'text'
		ORDER BY id DESC
		LIMIT $2`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.Message
	for rows.Next() {
		var m entities.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Direction, &m.Type, &m.Body,
			&m.ExternalID, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
