package model

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
    for _, name := range []string{"weekly", "fortnightly", "monthly", "today"} {
        p, err := ParsePeriod(name)
        require.NoError(t, err, name)
        assert.Equal(t, Period(name), p)
    }

    for _, name := range []string{"", "xyz", "Weekly", "daily"} {
        _, err := ParsePeriod(name)
        assert.ErrorIs(t, err, ErrInvalidPeriod, name)
    }
}

func TestPeriodWindow(t *testing.T) {
    now := time.Date(2024, 3, 20, 15, 30, 0, 0, time.FixedZone("X", 3*3600))

    assert.Equal(t, Window{Since: "2024-03-13T12:30:00.000Z"}, PeriodWeekly.Window(now))
    assert.Equal(t, Window{Since: "2024-03-05T12:30:00.000Z"}, PeriodFortnightly.Window(now))
    assert.Equal(t, Window{Since: "2024-02-19T12:30:00.000Z"}, PeriodMonthly.Window(now))
    assert.Equal(t, Window{Day: "2024-03-20"}, PeriodToday.Window(now))
}

func TestDayRange(t *testing.T) {
    from, to := DayRange("2024-01-01", "2024-01-31")
    assert.Equal(t, "2024-01-01T00:00:00.000Z", from)
    assert.Equal(t, "2024-01-31T23:59:59.999Z", to)
}

func TestFormatTimestamp(t *testing.T) {
    ts := time.Date(2024, 5, 1, 13, 4, 5, 123456789, time.UTC)
    assert.Equal(t, "2024-05-01T13:04:05.123Z", FormatTimestamp(ts))
}
