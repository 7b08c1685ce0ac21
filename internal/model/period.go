package model

import (
    "errors"
    "time"
)

// ErrInvalidPeriod is returned by ParsePeriod for an unknown period name.
var ErrInvalidPeriod = errors.New("Invalid period")

// Period names a window used by the per-user aggregation.
type Period string

const (
    PeriodWeekly      Period = "weekly"
    PeriodFortnightly Period = "fortnightly"
    PeriodMonthly     Period = "monthly"
    PeriodToday       Period = "today"
)

var trailingDays = map[Period]int{
    PeriodWeekly:      7,
    PeriodFortnightly: 15,
    PeriodMonthly:     30,
}

// ParsePeriod validates a period path parameter.
func ParsePeriod(s string) (Period, error) {
    p := Period(s)
    if p == PeriodToday {
        return p, nil
    }
    if _, ok := trailingDays[p]; ok {
        return p, nil
    }
    return "", ErrInvalidPeriod
}

// Window describes which tests fall into a period at a given instant.  For
// trailing periods Since is the inclusive lower bound on the timestamp; for
// PeriodToday Day is the UTC calendar date the timestamp must fall on.
type Window struct {
    Since string
    Day   string
}

// Window computes the period's bounds relative to now.
func (p Period) Window(now time.Time) Window {
    now = now.UTC()
    if p == PeriodToday {
        return Window{Day: now.Format(DateLayout)}
    }
    return Window{Since: FormatTimestamp(now.AddDate(0, 0, -trailingDays[p]))}
}

// DayRange expands two calendar dates into inclusive timestamp bounds
// covering start 00:00:00.000 through end 23:59:59.999 UTC.  The dates are
// not validated; a malformed date simply yields bounds no stored timestamp
// can satisfy.
func DayRange(startDate, endDate string) (from, to string) {
    return startDate + "T00:00:00.000Z", endDate + "T23:59:59.999Z"
}
