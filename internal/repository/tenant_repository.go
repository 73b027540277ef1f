package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"project_chatflow/internal/entities"
)

// ErrTenantNotFound is returned when no tenant matches the lookup.
var ErrTenantNotFound = errors.New("tenant not found")

type TenantRepository struct {
	db *pgxpool.Pool
}

func NewTenantRepository(db *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = `id, name, wa_phone_number_id, wa_business_account_id, wa_access_token, page_access_token, ig_access_token, telegram_bot_token, is_active`

func scanTenant(row pgx.Row) (*entities.Tenant, error) {
	var t entities.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.WAPhoneNumberID, &t.WABAID, &t.WAAccessToken,
		&t.PageAccessToken, &t.IGAccessToken, &t.TelegramToken, &t.IsActive)
	if err == pgx.ErrNoRows {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id int) (*entities.Tenant, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM tenants WHERE id = $1", tenantColumns), id)
	return scanTenant(row)
}

// GetByRoutingKey maps an inbound event to its tenant via the provider-side
// receiver id: the WhatsApp phone number id on messages, the business
// account id on template-status callbacks. Only WhatsApp events carry a
// reliable routing key today; other channels fall back to the configured
// default tenant.
func (r *TenantRepository) GetByRoutingKey(ctx context.Context, channel, key string) (*entities.Tenant, error) {
	if key == "" {
		return nil, ErrTenantNotFound
	}
	switch channel {
	case entities.ChannelWhatsApp:
		row := r.db.QueryRow(ctx, fmt.Sprintf(
			"SELECT %s FROM tenants WHERE (wa_phone_number_id = $1 OR wa_business_account_id = $1) AND is_active",
			tenantColumns), key)
		return scanTenant(row)
	}
	return nil, ErrTenantNotFound
}

// FirstActive returns the lowest-id active tenant. Used once at startup to
// resolve the default tenant; a deployment with no tenant at all is a fatal
// misconfiguration.
func (r *TenantRepository) FirstActive(ctx context.Context) (*entities.Tenant, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM tenants WHERE is_active ORDER BY id LIMIT 1", tenantColumns))
	return scanTenant(row)
}
