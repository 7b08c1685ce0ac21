package model

import "time"

// TimestampLayout is the ISO-8601 layout used for tests.timestamp: UTC with
// millisecond precision and a trailing Z, e.g. 2024-05-01T13:04:05.123Z.
// Lexicographic order of these strings matches chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// DateLayout is the calendar date format accepted in query strings.
const DateLayout = "2006-01-02"

// FormatTimestamp renders t in TimestampLayout after converting it to UTC.
func FormatTimestamp(t time.Time) string {
    return t.UTC().Format(TimestampLayout)
}

// Approval values stored in tests.approved.  A NULL column means the test
// is still undecided.
const (
    Rejected int64 = 0
    Approved int64 = 1
)

// Test models a row in the `tests` table joined with the username of the
// user who ran it.  The client-supplied columns are returned exactly as
// SQLite stored them: an integer when the column affinity could convert
// the value, otherwise the text or number as sent.
//
// Fields:
//  ID            – primary key identifier.
//  CaseID        – case the test belongs to.
//  UserID        – user who ran it (references users.id, not enforced).
//  DeveloperName – developer responsible for the case (nullable).
//  Timestamp     – creation time in TimestampLayout, never updated.
//  Approved      – 1 approved, 0 rejected, nil undecided.
//  Username      – users.username of the joined user (nullable).
type Test struct {
    ID            int64   `json:"id"`
    CaseID        any     `json:"case_id"`
    UserID        any     `json:"user_id"`
    DeveloperName *string `json:"developer_name"`
    Timestamp     string  `json:"timestamp"`
    Approved      any     `json:"approved"`
    Username      *string `json:"username"`
}

// NewTest carries the columns a client supplies when recording a test.
// Values keep whatever JSON type they arrived with.
type NewTest struct {
    CaseID        any `json:"case_id"`
    UserID        any `json:"user_id"`
    DeveloperName any `json:"developer_name"`
}
