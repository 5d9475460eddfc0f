package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// schema statements are applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tickets (
        ticket_id    UUID PRIMARY KEY,
        dda_id       TEXT NOT NULL,
        description  TEXT NOT NULL DEFAULT '',
        fqdn         TEXT[] NOT NULL DEFAULT '{}',
        ipv4         TEXT[] NOT NULL DEFAULT '{}',
        ipv6         TEXT[] NOT NULL DEFAULT '{}',
        assigned_to  TEXT[] NOT NULL DEFAULT '{}',
        status       TEXT NOT NULL,
        revoke_time       INT NOT NULL,
        autoclose_time    INT NOT NULL,
        report_error_time INT NOT NULL,
        tasks        TEXT[] NOT NULL DEFAULT '{}',
        created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        created_by   TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS ticket_items (
        ticket_id      UUID NOT NULL,
        item_id        UUID NOT NULL,
        provider_id    TEXT NOT NULL,
        value          TEXT NOT NULL,
        genre          TEXT NOT NULL,
        status         TEXT NOT NULL DEFAULT 'unprocessed',
        is_active      BOOLEAN NOT NULL DEFAULT TRUE,
        is_duplicate   BOOLEAN NOT NULL DEFAULT FALSE,
        is_whitelisted BOOLEAN NOT NULL DEFAULT FALSE,
        is_error       BOOLEAN NOT NULL DEFAULT FALSE,
        update_max_time INT NOT NULL DEFAULT 0,
        created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        PRIMARY KEY (ticket_id, item_id, provider_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_ticket_items_active_value
        ON ticket_items (genre, value) WHERE is_active`,
	`CREATE INDEX IF NOT EXISTS idx_ticket_items_ticket
        ON ticket_items (ticket_id)`,
	`CREATE TABLE IF NOT EXISTS forensic_hashes (
        forensic_id UUID PRIMARY KEY,
        ticket_id   UUID NOT NULL,
        algorithm   TEXT NOT NULL,
        digest      TEXT NOT NULL,
        created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        created_by  TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_forensic_hashes_ticket
        ON forensic_hashes (ticket_id)`,
	`CREATE TABLE IF NOT EXISTS whitelist_entries (
        entry_id   UUID PRIMARY KEY,
        genre      TEXT NOT NULL,
        value      TEXT NOT NULL,
        is_cidr    BOOLEAN NOT NULL DEFAULT FALSE,
        is_active  BOOLEAN NOT NULL DEFAULT TRUE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        created_by TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS providers (
        account_id TEXT PRIMARY KEY,
        name       TEXT NOT NULL,
        is_active  BOOLEAN NOT NULL DEFAULT TRUE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE TABLE IF NOT EXISTS ddas (
        dda_id      TEXT PRIMARY KEY,
        instance    TEXT NOT NULL,
        account_id  TEXT NOT NULL,
        is_active   BOOLEAN NOT NULL DEFAULT TRUE,
        created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        assigned_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE TABLE IF NOT EXISTS ticket_logs (
        log_id     UUID PRIMARY KEY,
        ticket_id  UUID NOT NULL,
        message    TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_ticket_logs_ticket
        ON ticket_logs (ticket_id)`,
}

// RunMigrations applies the embedded schema statements.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}

	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}

	logger.Info("migrations applied", zap.Int("count", len(schema)))
	return nil
}
