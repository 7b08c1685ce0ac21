package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/case-approval-tracker/internal/model"
)

// TestRepo encapsulates queries on the tests table.  Ids arriving from URLs
// and query strings are bound as-is; SQLite's integer affinity on the
// columns makes a numeric string match its row while anything else matches
// nothing.
type TestRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewTestRepo(db *sql.DB) *TestRepo {
	return &TestRepo{db: db, now: time.Now}
}

// WithClock replaces the clock used to stamp new tests.
func (r *TestRepo) WithClock(now func() time.Time) *TestRepo {
	r.now = now
	return r
}

// Create inserts a test stamped with the current UTC time and no approval,
// returning its row id.  The supplied values are bound as-is: neither the
// case nor the user is checked against existing rows.
func (r *TestRepo) Create(ctx context.Context, in model.NewTest) (int64, error) {
	args, err := bindValues(in.CaseID, in.UserID, in.DeveloperName)
	if err != nil {
		return 0, err
	}
	args = append(args, model.FormatTimestamp(r.now()))
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO tests (case_id, user_id, developer_name, timestamp, approved) VALUES (?, ?, ?, ?, NULL)`,
		args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SetApproval overwrites the approval of test id with whatever value the
// client sent.  Updating a missing id is not an error.
func (r *TestRepo) SetApproval(ctx context.Context, id string, approved any) error {
	v, err := bindValue(approved)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, "UPDATE tests SET approved = ? WHERE id = ?", v, id)
	return err
}

// Delete removes test id.  Deleting a missing id is not an error.
func (r *TestRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM tests WHERE id = ?", id)
	return err
}

// ListByCase returns the tests of a case together with the username of the
// user who ran them.  It is an inner join: tests whose user_id matches no
// user are left out.
func (r *TestRepo) ListByCase(ctx context.Context, caseID string) ([]model.Test, error) {
	const q = `SELECT tests.id, tests.case_id, tests.user_id, tests.developer_name,
	                  tests.timestamp, tests.approved, users.username
	           FROM tests
	           JOIN users ON tests.user_id = users.id
	           WHERE tests.case_id = ?
	           ORDER BY tests.id`
	rows, err := r.db.QueryContext(ctx, q, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Test{}
	for rows.Next() {
		var (
			t                model.Test
			developer, uname sql.NullString
			timestamp        sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.CaseID, &t.UserID, &developer, &timestamp, &t.Approved, &uname); err != nil {
			return nil, err
		}
		t.DeveloperName = stringPtr(developer)
		t.Timestamp = timestamp.String
		t.Username = stringPtr(uname)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
