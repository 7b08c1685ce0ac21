package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func columns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	require.NoError(t, err)
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		out = append(out, name)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestMigrate_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	version, err := Migrate(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, LatestVersion(), version)

	assert.ElementsMatch(t, []string{"id", "username"}, columns(t, db, "users"))
	assert.ElementsMatch(t,
		[]string{"id", "case_id", "user_id", "timestamp", "approved", "developer_name"},
		columns(t, db, "tests"))
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := Migrate(ctx, db)
	require.NoError(t, err)
	version, err := Migrate(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, LatestVersion(), version)

	var applied int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, len(Migrations()), applied)
}

func TestMigrate_PatchesLegacySchema(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Layout written by the first revision of the service: no approved or
	// developer_name column and no migration bookkeeping.
	_, err := db.Exec(`
CREATE TABLE users (id INTEGER PRIMARY KEY, username TEXT);
CREATE TABLE tests (id INTEGER PRIMARY KEY, case_id INTEGER, user_id INTEGER, timestamp TEXT);
INSERT INTO users (username) VALUES ('alice');
INSERT INTO tests (case_id, user_id, timestamp) VALUES (10, 1, '2024-01-01T00:00:00.000Z');
`)
	require.NoError(t, err)

	_, err = Migrate(ctx, db)
	require.NoError(t, err)

	assert.Contains(t, columns(t, db, "tests"), "approved")
	assert.Contains(t, columns(t, db, "tests"), "developer_name")

	var approved sql.NullInt64
	require.NoError(t, db.QueryRow(`SELECT approved FROM tests WHERE case_id = 10`).Scan(&approved))
	assert.False(t, approved.Valid)
}

func recorded(t *testing.T, db *sql.DB) []int {
	t.Helper()
	rows, err := db.Query(`SELECT version FROM schema_migrations ORDER BY version`)
	require.NoError(t, err)
	defer rows.Close()
	var out []int
	for rows.Next() {
		var v int
		require.NoError(t, rows.Scan(&v))
		out = append(out, v)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestMigrate_FailedOptionalStepDoesNotBlockLaterSteps(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	broken := true
	ms := []Migration{
		{Version: 1, Name: "core tables", Required: true, Apply: execSQL(schemaCore)},
		{Version: 2, Name: "flaky", Apply: func(ctx context.Context, tx *sql.Tx) error {
			if broken {
				return errors.New("disk hiccup")
			}
			return nil
		}},
		{Version: 3, Name: "users.email", Apply: addColumn("users", "email", "TEXT")},
	}

	version, err := migrate(ctx, db, ms)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, []int{1, 3}, recorded(t, db))
	assert.Contains(t, columns(t, db, "users"), "email")

	broken = false
	version, err = migrate(ctx, db, ms)
	require.NoError(t, err)
	assert.Equal(t, 3, version)
	assert.Equal(t, []int{1, 2, 3}, recorded(t, db))
}

func TestMigrate_TestsAsViewStillStarts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// A deployment that exposed tests through a view: columns cannot be
	// added and indexes cannot be built, but developer_name is present.
	_, err := db.Exec(`
CREATE TABLE users (id INTEGER PRIMARY KEY, username TEXT);
CREATE TABLE tests_data (id INTEGER PRIMARY KEY, case_id INTEGER, user_id INTEGER, timestamp TEXT, developer_name TEXT);
CREATE VIEW tests AS SELECT id, case_id, user_id, timestamp, developer_name FROM tests_data;
`)
	require.NoError(t, err)

	version, err := Migrate(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, []int{1, 3}, recorded(t, db))

	// Once tests is a real table again the skipped steps are applied.
	_, err = db.Exec(`
DROP VIEW tests;
CREATE TABLE tests (id INTEGER PRIMARY KEY, case_id INTEGER, user_id INTEGER, timestamp TEXT, developer_name TEXT);
`)
	require.NoError(t, err)

	version, err = Migrate(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, LatestVersion(), version)
	assert.Equal(t, []int{1, 2, 3, 4}, recorded(t, db))
	assert.Contains(t, columns(t, db, "tests"), "approved")
}

func TestMigrate_RefusesNewerSchema(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := Migrate(ctx, db)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, 'later')`, LatestVersion()+1)
	require.NoError(t, err)

	_, err = Migrate(ctx, db)
	require.ErrorIs(t, err, ErrSchemaVersionTooNew)
}

func TestSchemaVersion_Unmigrated(t *testing.T) {
	db := openTestDB(t)
	version, err := SchemaVersion(context.Background(), db)
	require.NoError(t, err)
	assert.Zero(t, version)
}
