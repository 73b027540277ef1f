package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	if err := client.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

// Migrate creates the tables this service owns. Other subsystems add their
// own columns; we only ever touch the ones declared here.
func (p *PostgresClient) Migrate() error {
	ctx := context.Background()

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			wa_phone_number_id VARCHAR(64) DEFAULT '',
			wa_business_account_id VARCHAR(64) DEFAULT '',
			wa_access_token TEXT DEFAULT '',
			page_access_token TEXT DEFAULT '',
			ig_access_token TEXT DEFAULT '',
			telegram_bot_token TEXT DEFAULT '',
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id SERIAL PRIMARY KEY,
			tenant_id INT NOT NULL REFERENCES tenants(id),
			phone VARCHAR(32),
			messenger_id VARCHAR(64),
			instagram_id VARCHAR(64),
			telegram_id VARCHAR(64),
			name VARCHAR(255) DEFAULT '',
			locale VARCHAR(16) DEFAULT '',
			tags TEXT[] DEFAULT '{}',
			last_interaction TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);`,
		// One contact per identifier per tenant. Partial indexes because the
		// identifier columns stay null until the person is seen on a channel.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_contacts_phone ON contacts (tenant_id, phone) WHERE phone IS NOT NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_contacts_messenger ON contacts (tenant_id, messenger_id) WHERE messenger_id IS NOT NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_contacts_instagram ON contacts (tenant_id, instagram_id) WHERE instagram_id IS NOT NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_contacts_telegram ON contacts (tenant_id, telegram_id) WHERE telegram_id IS NOT NULL;`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id SERIAL PRIMARY KEY,
			tenant_id INT NOT NULL REFERENCES tenants(id),
			contact_id INT NOT NULL REFERENCES contacts(id),
			channel VARCHAR(20) NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'open',
			last_customer_message_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);`,
		// At most one open conversation per (contact, channel).
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_conversations_open ON conversations (contact_id, channel) WHERE status = 'open';`,
		`CREATE TABLE IF NOT EXISTS messages (
			id SERIAL PRIMARY KEY,
			conversation_id INT NOT NULL REFERENCES conversations(id),
			direction VARCHAR(10) NOT NULL,
			msg_type VARCHAR(20) NOT NULL DEFAULT 'text',
			body TEXT DEFAULT '',
			media JSONB,
			external_id VARCHAR(255) DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'received',
			raw_payload JSONB,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);`,
		// Dedup guard: a replayed inbound event must not persist twice.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_messages_external ON messages (conversation_id, external_id, direction) WHERE external_id <> '';`,
		`CREATE TABLE IF NOT EXISTS automation_rules (
			id SERIAL PRIMARY KEY,
			tenant_id INT NOT NULL REFERENCES tenants(id),
			keyword VARCHAR(255) NOT NULL,
			reply TEXT NOT NULL,
			is_active BOOLEAN DEFAULT TRUE
		);`,
		`CREATE TABLE IF NOT EXISTS ai_configs (
			tenant_id INT PRIMARY KEY REFERENCES tenants(id),
			provider VARCHAR(20) DEFAULT 'gemini',
			model VARCHAR(64) DEFAULT '',
			api_key TEXT DEFAULT '',
			style VARCHAR(20) DEFAULT 'PROFESSIONAL',
			use_emoji BOOLEAN DEFAULT FALSE,
			instructions TEXT DEFAULT '',
			history_limit INT DEFAULT 10,
			temperature DOUBLE PRECISION DEFAULT 0.7,
			is_active BOOLEAN DEFAULT FALSE
		);`,
		`CREATE TABLE IF NOT EXISTS knowledge_docs (
			id SERIAL PRIMARY KEY,
			tenant_id INT NOT NULL REFERENCES tenants(id),
			title VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			is_active BOOLEAN DEFAULT TRUE
		);`,
		`CREATE TABLE IF NOT EXISTS message_templates (
			id SERIAL PRIMARY KEY,
			tenant_id INT NOT NULL REFERENCES tenants(id),
			name VARCHAR(255) NOT NULL,
			language VARCHAR(16) NOT NULL DEFAULT 'en',
			body TEXT DEFAULT '',
			status VARCHAR(20) DEFAULT 'APPROVED',
			quality VARCHAR(20) DEFAULT '',
			UNIQUE (tenant_id, name, language)
		);`,
		`CREATE TABLE IF NOT EXISTS campaigns (
			id SERIAL PRIMARY KEY,
			tenant_id INT NOT NULL REFERENCES tenants(id),
			name VARCHAR(255) NOT NULL,
			channel VARCHAR(20) NOT NULL DEFAULT 'whatsapp',
			template_name VARCHAR(255) NOT NULL,
			language VARCHAR(16) NOT NULL DEFAULT 'en',
			status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
			total_sent INT NOT NULL DEFAULT 0,
			total_failed INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS campaign_items (
			id SERIAL PRIMARY KEY,
			campaign_id INT NOT NULL REFERENCES campaigns(id),
			contact_id INT NOT NULL REFERENCES contacts(id),
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			params JSONB DEFAULT '{}',
			message_id INT REFERENCES messages(id),
			last_error TEXT DEFAULT '',
			retry_count INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, stmt := range ddl {
		if _, err := p.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
