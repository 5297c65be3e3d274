package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/medtrack/internal/dbx"
	"github.com/dmitrijs2005/medtrack/internal/models"
	"github.com/sethvargo/go-retry"
)

// provisionStatements creates the backing tables with permissive row-level
// security policies. Every statement is idempotent, so the whole sequence is
// safe to repeat. Routine deployments should prefer the out-of-band migrate
// command; this path exists for self-provisioned dev setups.
var provisionStatements = []string{
	`CREATE TABLE IF NOT EXISTS medication_entries (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		user_id UUID
	)`,
	`CREATE INDEX IF NOT EXISTS idx_medication_entries_occurred_at
		ON medication_entries (occurred_at DESC)`,
	`CREATE TABLE IF NOT EXISTS common_medications (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		usage_count INTEGER NOT NULL DEFAULT 0,
		last_used_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		user_id UUID
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_common_medications_name
		ON common_medications (lower(name))`,
	`CREATE TABLE IF NOT EXISTS user_preferences (
		id UUID PRIMARY KEY,
		user_id UUID,
		preferences JSONB NOT NULL DEFAULT '{}'::jsonb,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE medication_entries ENABLE ROW LEVEL SECURITY`,
	`ALTER TABLE common_medications ENABLE ROW LEVEL SECURITY`,
	`ALTER TABLE user_preferences ENABLE ROW LEVEL SECURITY`,
	`DO $$ BEGIN
		CREATE POLICY allow_public_access ON medication_entries USING (true) WITH CHECK (true);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`DO $$ BEGIN
		CREATE POLICY allow_public_access ON common_medications USING (true) WITH CHECK (true);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`DO $$ BEGIN
		CREATE POLICY allow_public_access ON user_preferences USING (true) WITH CHECK (true);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
}

// EnsureSchema provisions the remote tables, retrying transient failures with
// a fibonacci backoff. When the autocomplete table ends up empty it is seeded
// with the default name list.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		for _, stmt := range provisionStatements {
			if _, err := c.db.ExecContext(ctx, stmt); err != nil {
				return retry.RetryableError(fmt.Errorf("provisioning failed: %w", err))
			}
		}
		if err := seedCommonNames(ctx, c.db); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func seedCommonNames(ctx context.Context, db dbx.DBTX) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM common_medications`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count common names: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, name := range models.DefaultCommonNames() {
		if _, err := insertCommonName(ctx, db, name); err != nil {
			return fmt.Errorf("failed to seed common name %q: %w", name, err)
		}
	}
	return nil
}
