package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/case-approval-tracker/internal/model"
)

// topDevelopersLimit caps the developer lists in the approval summary.
const topDevelopersLimit = 10

// StatsRepo runs the aggregate queries behind the dashboard.  Nothing is
// cached; each call reads the tests table again.
type StatsRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewStatsRepo(db *sql.DB) *StatsRepo {
	return &StatsRepo{db: db, now: time.Now}
}

// WithClock replaces the clock used to resolve period windows.
func (r *StatsRepo) WithClock(now func() time.Time) *StatsRepo {
	r.now = now
	return r
}

// CountByPeriod counts tests created between startDate 00:00:00.000 and
// endDate 23:59:59.999 UTC inclusive.
func (r *StatsRepo) CountByPeriod(ctx context.Context, startDate, endDate string) (int64, error) {
	from, to := model.DayRange(startDate, endDate)
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tests WHERE timestamp BETWEEN ? AND ?", from, to).Scan(&n)
	return n, err
}

// CountByCase counts all tests per case.
func (r *StatsRepo) CountByCase(ctx context.Context) ([]model.CaseCount, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT case_id, COUNT(*) FROM tests GROUP BY case_id ORDER BY case_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CaseCount{}
	for rows.Next() {
		var c model.CaseCount
		if err := rows.Scan(&c.CaseID, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByCaseDeveloper counts tests created in the given day range per
// (case, developer) pair and splits each count by approval state.
func (r *StatsRepo) CountByCaseDeveloper(ctx context.Context, startDate, endDate string) ([]model.CaseDeveloperCount, error) {
	const q = `SELECT case_id, developer_name, COUNT(*),
	                  SUM(CASE WHEN approved = 1 THEN 1 ELSE 0 END),
	                  SUM(CASE WHEN approved = 0 THEN 1 ELSE 0 END),
	                  SUM(CASE WHEN approved IS NULL THEN 1 ELSE 0 END)
	           FROM tests
	           WHERE timestamp BETWEEN ? AND ?
	           GROUP BY case_id, developer_name
	           ORDER BY case_id, developer_name`
	from, to := model.DayRange(startDate, endDate)
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CaseDeveloperCount{}
	for rows.Next() {
		var (
			c         model.CaseDeveloperCount
			developer sql.NullString
		)
		if err := rows.Scan(&c.CaseID, &developer, &c.Count, &c.Approved, &c.Rejected, &c.Undecided); err != nil {
			return nil, err
		}
		c.DeveloperName = stringPtr(developer)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByApproval totals tests per approval state and lists the developers
// with the most approved and the most rejected tests.
func (r *StatsRepo) CountByApproval(ctx context.Context) (model.ApprovalCounts, error) {
	const q = `SELECT COALESCE(SUM(CASE WHEN approved = 1 THEN 1 ELSE 0 END), 0),
	                  COALESCE(SUM(CASE WHEN approved = 0 THEN 1 ELSE 0 END), 0),
	                  COALESCE(SUM(CASE WHEN approved IS NULL THEN 1 ELSE 0 END), 0)
	           FROM tests`
	var out model.ApprovalCounts
	if err := r.db.QueryRowContext(ctx, q).Scan(&out.Approved, &out.Rejected, &out.Undecided); err != nil {
		return out, err
	}

	approved, err := r.TopDevelopers(ctx, model.Approved, topDevelopersLimit)
	if err != nil {
		return out, err
	}
	rejected, err := r.TopDevelopers(ctx, model.Rejected, topDevelopersLimit)
	if err != nil {
		return out, err
	}
	out.TopApprovedDevelopers = FormatDevelopers(approved)
	out.TopRejectedDevelopers = FormatDevelopers(rejected)
	return out, nil
}

// TopDevelopers returns up to limit developers ordered by how many of their
// tests carry the given approval value.  Tests without a developer are
// ignored.
func (r *StatsRepo) TopDevelopers(ctx context.Context, approved int64, limit int) ([]model.DeveloperCount, error) {
	const q = `SELECT developer_name, COUNT(*) AS n
	           FROM tests
	           WHERE approved = ? AND developer_name IS NOT NULL
	           GROUP BY developer_name
	           ORDER BY n DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, approved, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DeveloperCount
	for rows.Next() {
		var d model.DeveloperCount
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// FormatDevelopers renders developers as "name (count), name (count)".
func FormatDevelopers(devs []model.DeveloperCount) string {
	parts := make([]string, 0, len(devs))
	for _, d := range devs {
		parts = append(parts, fmt.Sprintf("%s (%d)", d.Name, d.Count))
	}
	return strings.Join(parts, ", ")
}

// CountByUser counts tests per (calendar date, username) inside the period
// window, resolved against the repository clock.  Tests whose user is
// missing are excluded.
func (r *StatsRepo) CountByUser(ctx context.Context, period model.Period) ([]model.UserDayCount, error) {
	const base = `SELECT date(tests.timestamp) AS day, users.username, COUNT(*)
	              FROM tests
	              JOIN users ON tests.user_id = users.id
	              WHERE %s
	              GROUP BY day, users.username
	              ORDER BY day, users.username`
	w := period.Window(r.now())
	var (
		rows *sql.Rows
		err  error
	)
	if period == model.PeriodToday {
		rows, err = r.db.QueryContext(ctx, fmt.Sprintf(base, "date(tests.timestamp) = ?"), w.Day)
	} else {
		rows, err = r.db.QueryContext(ctx, fmt.Sprintf(base, "tests.timestamp >= ?"), w.Since)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.UserDayCount{}
	for rows.Next() {
		var (
			c     model.UserDayCount
			day   sql.NullString
			uname sql.NullString
		)
		if err := rows.Scan(&day, &uname, &c.Count); err != nil {
			return nil, err
		}
		c.Date = day.String
		c.Username = stringPtr(uname)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
