package collection

import (
	"context"
	"fmt"
)

type migration struct {
	version string
	sql     string
}

// Migrations run inside one transaction in version order. Timestamps are
// stored as RFC3339Nano strings; validity comparisons happen in Go because
// the textual form is not lexicographically ordered across precisions.
var migrations = []migration{
	{
		version: "0001_media_items",
		sql: `CREATE TABLE IF NOT EXISTS media_items (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL UNIQUE,
            kind TEXT NOT NULL,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL,
            job_id TEXT,
            unprocessed TEXT NOT NULL,
            processed TEXT NOT NULL,
            captured_original TEXT,
            pipeline_config TEXT,
            show_in_gallery INTEGER NOT NULL DEFAULT 1
        );
        CREATE INDEX IF NOT EXISTS idx_media_items_job ON media_items(job_id);`,
	},
	{
		version: "0002_cached_items",
		sql: `CREATE TABLE IF NOT EXISTS cached_items (
            id TEXT PRIMARY KEY,
            media_item_id TEXT NOT NULL REFERENCES media_items(id) ON DELETE CASCADE,
            dimension TEXT NOT NULL,
            processed INTEGER NOT NULL,
            path TEXT NOT NULL,
            created_at TEXT NOT NULL,
            UNIQUE (media_item_id, dimension, processed)
        );`,
	},
	{
		version: "0003_usage_stats",
		sql: `CREATE TABLE IF NOT EXISTS usage_stats (
            action TEXT PRIMARY KEY,
            count INTEGER NOT NULL DEFAULT 0,
            last_used_at TEXT
        );`,
	},
}

func (s *Store) applyMigrations(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, migration := range migrations {
		var count int
		row := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", migration.version)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, migration.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", migration.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", migration.version); err != nil {
			return fmt.Errorf("record migration %s: %w", migration.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}
