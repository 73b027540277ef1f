package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"project_chatflow/internal/entities"
)

type ContactRepository struct {
	db *pgxpool.Pool
}

func NewContactRepository(db *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{db: db}
}

const contactColumns = `id, tenant_id, phone, messenger_id, instagram_id, telegram_id, name, locale, tags, last_interaction, created_at`

func scanContact(row pgx.Row) (*entities.Contact, error) {
	var c entities.Contact
	var phone, messengerID, instagramID, telegramID *string
	err := row.Scan(&c.ID, &c.TenantID, &phone, &messengerID, &instagramID, &telegramID,
		&c.Name, &c.Locale, &c.Tags, &c.LastInteraction, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if phone != nil {
		c.Identifiers.Phone = *phone
	}
	if messengerID != nil {
		c.Identifiers.MessengerID = *messengerID
	}
	if instagramID != nil {
		c.Identifiers.InstagramID = *instagramID
	}
	if telegramID != nil {
		c.Identifiers.TelegramID = *telegramID
	}
	return &c, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Resolve maps (tenant, identifiers) to exactly one contact. An existing
// contact gains any newly observed identifiers and profile hints via a
// non-destructive coalesce update; a new contact is inserted otherwise.
// `last_interaction` is refreshed either way. Concurrent callers for the
// same identifier are serialized by the unique indexes: an insert that loses
// the race falls back to merging into the winner's row.
func (r *ContactRepository) Resolve(ctx context.Context, db DB, tenantID int, ids entities.Identifiers, hints entities.ProfileHints) (*entities.Contact, error) {
	if ids.Empty() {
		return nil, fmt.Errorf("resolve contact: no identifiers")
	}

	contact, err := r.lookup(ctx, db, tenantID, ids)
	if err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("lookup contact: %w", err)
	}

	if err == pgx.ErrNoRows {
		contact, err = r.insert(ctx, db, tenantID, ids, hints)
		if err == nil {
			return contact, nil
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("insert contact: %w", err)
		}
		// Lost the race: another consumer created the row. Merge into it.
		contact, err = r.lookup(ctx, db, tenantID, ids)
		if err != nil {
			return nil, fmt.Errorf("re-lookup contact: %w", err)
		}
	}

	return r.merge(ctx, db, contact.ID, ids, hints)
}

func (r *ContactRepository) lookup(ctx context.Context, db DB, tenantID int, ids entities.Identifiers) (*entities.Contact, error) {
	row := db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM contacts
		WHERE tenant_id = $1
		  AND (phone = $2 OR messenger_id = $3 OR instagram_id = $4 OR telegram_id = $5)
		ORDER BY id LIMIT 1`, contactColumns),
		tenantID, nullable(ids.Phone), nullable(ids.MessengerID), nullable(ids.InstagramID), nullable(ids.TelegramID))
	return scanContact(row)
}

func (r *ContactRepository) insert(ctx context.Context, db DB, tenantID int, ids entities.Identifiers, hints entities.ProfileHints) (*entities.Contact, error) {
	row := db.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO contacts (tenant_id, phone, messenger_id, instagram_id, telegram_id, name, locale, last_interaction)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		RETURNING %s`, contactColumns),
		tenantID, nullable(ids.Phone), nullable(ids.MessengerID), nullable(ids.InstagramID), nullable(ids.TelegramID),
		hints.Name, hints.Locale)
	return scanContact(row)
}

// merge fills in identifier and profile columns that are still empty and
// refreshes last_interaction. Existing values always win over hints.
func (r *ContactRepository) merge(ctx context.Context, db DB, contactID int, ids entities.Identifiers, hints entities.ProfileHints) (*entities.Contact, error) {
	row := db.QueryRow(ctx, fmt.Sprintf(`
		UPDATE contacts SET
			phone = COALESCE(phone, $2),
			messenger_id = COALESCE(messenger_id, $3),
			instagram_id = COALESCE(instagram_id, $4),
			telegram_id = COALESCE(telegram_id, $5),
			name = CASE WHEN name = '' THEN $6 ELSE name END,
			locale = CASE WHEN locale = '' THEN $7 ELSE locale END,
			last_interaction = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING %s`, contactColumns),
		contactID, nullable(ids.Phone), nullable(ids.MessengerID), nullable(ids.InstagramID), nullable(ids.TelegramID),
		hints.Name, hints.Locale)
	contact, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("merge contact: %w", err)
	}
	return contact, nil
}

// GetByID returns nil without error when the contact no longer exists, so a
// campaign job for a deleted contact fails its item instead of wedging it.
func (r *ContactRepository) GetByID(ctx context.Context, id int) (*entities.Contact, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM contacts WHERE id = $1", contactColumns), id)
	return contactOrNil(row)
}

// contactOrNil maps a missing row to (nil, nil).
func contactOrNil(row pgx.Row) (*entities.Contact, error) {
	contact, err := scanContact(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return contact, nil
}
