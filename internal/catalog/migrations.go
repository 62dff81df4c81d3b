package catalog

import (
	"context"
	"fmt"
)

// migrations run in order inside one transaction. Both statements are
// idempotent so startup can always apply the full list.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS index_generations (
		name        TEXT PRIMARY KEY,
		dimension   INTEGER NOT NULL,
		distance    TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'created',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		promoted_at TIMESTAMPTZ,
		replaced_at TIMESTAMPTZ,
		retired_at  TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS ingest_failures (
		id             UUID PRIMARY KEY,
		work_item_id   TEXT NOT NULL,
		source_locator TEXT NOT NULL,
		stage          TEXT NOT NULL,
		kind           TEXT NOT NULL,
		message        TEXT NOT NULL,
		attempt_count  INTEGER NOT NULL,
		occurred_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ingest_failures_occurred_at
		ON ingest_failures (occurred_at DESC)`,
}

func (c *Catalog) migrate(ctx context.Context) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("catalog: begin migration: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for i, stmt := range migrations {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("catalog: migration %d: %w", i, err)
		}
	}
	return tx.Commit(ctx)
}
