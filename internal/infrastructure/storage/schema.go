package storage

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS alerts (
	id                UUID PRIMARY KEY,
	alert_type        VARCHAR(32)  NOT NULL,
	title             TEXT         NOT NULL,
	description       TEXT         NOT NULL DEFAULT '',
	address           TEXT         NOT NULL DEFAULT '',
	region            VARCHAR(64)  NOT NULL,
	priority          VARCHAR(8)   NOT NULL,
	status            VARCHAR(16)  NOT NULL,
	opportunity_score NUMERIC(5,2) NOT NULL,
	estimated_value   NUMERIC(14,2) NOT NULL DEFAULT 0,
	source            TEXT         NOT NULL DEFAULT '',
	metadata          JSONB        NOT NULL DEFAULT '{}',
	created_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_alerts_region_created ON alerts (region, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_alerts_priority ON alerts (priority);

CREATE TABLE IF NOT EXISTS agent_tasks (
	id          UUID PRIMARY KEY,
	kind        VARCHAR(32) NOT NULL,
	payload     JSONB       NOT NULL DEFAULT '{}',
	due_at      TIMESTAMPTZ NOT NULL,
	attempts    INT         NOT NULL DEFAULT 0,
	status      VARCHAR(16) NOT NULL,
	last_error  TEXT        NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_agent_tasks_due ON agent_tasks (status, due_at);
`

// EnsureSchema creates the alert and task tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
