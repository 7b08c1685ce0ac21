package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrSchemaVersionTooNew is returned when the database records a migration
// version this binary does not know about.
var ErrSchemaVersionTooNew = errors.New("database schema version is newer than supported")

// Migration is one forward-only schema step.  Required steps abort startup on
// failure; the others are logged and retried on the next start.
type Migration struct {
	Version  int
	Name     string
	Required bool
	Apply    func(ctx context.Context, tx *sql.Tx) error
}

const schemaCore = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY,
	username TEXT
);

CREATE TABLE IF NOT EXISTS tests (
	id INTEGER PRIMARY KEY,
	case_id INTEGER,
	user_id INTEGER,
	timestamp TEXT,
	approved INTEGER,
	developer_name TEXT,
	FOREIGN KEY(user_id) REFERENCES users(id)
);
`

// Migrations returns the ordered migration list.  Databases created by older
// revisions of the service already hold users and tests, possibly without the
// approved or developer_name columns; steps 2 and 3 patch those in place.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "core tables", Required: true, Apply: execSQL(schemaCore)},
		{Version: 2, Name: "tests.approved", Apply: addColumn("tests", "approved", "INTEGER")},
		{Version: 3, Name: "tests.developer_name", Apply: addColumn("tests", "developer_name", "TEXT")},
		{Version: 4, Name: "tests indexes", Apply: execSQL(`
CREATE INDEX IF NOT EXISTS idx_tests_case_id ON tests(case_id);
CREATE INDEX IF NOT EXISTS idx_tests_timestamp ON tests(timestamp);
`)},
	}
}

// LatestVersion is the highest version in Migrations.
func LatestVersion() int {
	return latest(Migrations())
}

func latest(ms []Migration) int {
	return ms[len(ms)-1].Version
}

// SchemaVersion returns the highest applied migration, or 0 for a database
// that has never been migrated.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return 0, err
	}
	version := 0
	for v := range applied {
		version = max(version, v)
	}
	return version, nil
}

// appliedVersions reads the recorded migrations.  A database without the
// bookkeeping table has none.
func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	var name string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name='schema_migrations'`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return map[int]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check schema_migrations: %w", err)
	}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema versions: %w", err)
	}
	defer rows.Close()
	applied := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("read schema versions: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// Migrate applies every pending migration and returns the schema version:
// the highest version up to which every step is recorded.  Steps are
// tracked one by one.  A failed optional step is logged and skipped, later
// steps still run, and the failed one is retried on the next start.
func Migrate(ctx context.Context, db *sql.DB) (int, error) {
	return migrate(ctx, db, Migrations())
}

func migrate(ctx context.Context, db *sql.DB, ms []Migration) (int, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return 0, err
	}
	for v := range applied {
		if v > latest(ms) {
			return v, fmt.Errorf("%w: database version %d, supported version %d",
				ErrSchemaVersionTooNew, v, latest(ms))
		}
	}

	for _, m := range ms {
		if applied[m.Version] {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			if m.Required {
				return contiguous(ms, applied), fmt.Errorf("migration v%d (%s): %w", m.Version, m.Name, err)
			}
			log.Printf("migrate: v%d (%s) failed, will retry on next start: %v", m.Version, m.Name, err)
			continue
		}
		applied[m.Version] = true
	}
	return contiguous(ms, applied), nil
}

// contiguous returns the last version of ms reached without a gap.
func contiguous(ms []Migration, applied map[int]bool) int {
	version := 0
	for _, m := range ms {
		if !applied[m.Version] {
			break
		}
		version = m.Version
	}
	return version
}

func apply(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if err := m.Apply(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		m.Version, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}

func execSQL(stmt string) func(context.Context, *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, stmt)
		return err
	}
}

// addColumn adds table.column only when the live table definition lacks it.
func addColumn(table, column, decl string) func(context.Context, *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		exists, err := hasColumn(ctx, tx, table, column)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		_, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
		return err
	}
}

func hasColumn(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
