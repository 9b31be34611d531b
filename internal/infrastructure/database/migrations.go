package database

import (
	"context"
	"fmt"
)

// migrations is the ordered list of schema changes. Each entry is applied
// once and recorded in schema_migrations; new entries go at the end.
var migrations = []struct {
	version string
	sql     string
}{
	{
		version: "001_sensor_history",
		sql: `CREATE TABLE IF NOT EXISTS sensor_history (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at      TIMESTAMP NOT NULL,
			temperature      REAL NOT NULL DEFAULT 0,
			humidity         REAL NOT NULL DEFAULT 0,
			nitrogen         REAL NOT NULL DEFAULT 0,
			phosphorus       REAL NOT NULL DEFAULT 0,
			potassium        REAL NOT NULL DEFAULT 0,
			ph               REAL NOT NULL DEFAULT 0,
			rainfall         REAL NOT NULL DEFAULT 0,
			monthly_rainfall REAL NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_sensor_history_recorded_at
			ON sensor_history (recorded_at DESC);`,
	},
	{
		version: "002_device_timers",
		sql: `CREATE TABLE IF NOT EXISTS device_timers (
			device  TEXT PRIMARY KEY,
			on_at   TIMESTAMP NOT NULL,
			off_at  TIMESTAMP NOT NULL,
			daily   INTEGER NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 1
		);`,
	},
	{
		version: "003_config",
		sql: `CREATE TABLE IF NOT EXISTS config (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	},
}

// Migrate applies all pending migrations to the database.
// Migrations are applied in order, each in its own transaction; a failure
// rolls back only the failing migration and re-running Migrate continues
// from there.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: If any migration fails (that migration is rolled back)
func (db *DB) Migrate(ctx context.Context) error {
	const table = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			rows.Close() //nolint:errcheck // Best effort cleanup on error path
			return fmt.Errorf("scanning migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close() //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("iterating applied migrations: %w", err)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("closing migration rows: %w", err)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting transaction for %s: %w", m.version, err)
		}

		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback() //nolint:errcheck // Rollback error is secondary
			return fmt.Errorf("applying migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			tx.Rollback() //nolint:errcheck // Rollback error is secondary
			return fmt.Errorf("recording migration %s: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", m.version, err)
		}
	}

	return nil
}
