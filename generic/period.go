package generic

import (
	"strconv"
	"time"
)

// =============================================================================
// PERIOD - The boundary for leave balance summaries
// =============================================================================

// Period defines the time boundary of a leave wallet.
// Leave balances are ALWAYS computed for a period, not at a point in time.
// Periods are calendar years; the key is the year ("2025").
type Period struct {
	Start time.Time
	End   time.Time
}

// YearPeriod returns [Jan 1, Dec 31] of year, in UTC.
func YearPeriod(year int) Period {
	return Period{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// PeriodFor returns the period that contains t.
func PeriodFor(t time.Time) Period {
	return YearPeriod(t.UTC().Year())
}

// ParsePeriod parses a period key such as "2025".
func ParsePeriod(key string) (Period, error) {
	year, err := strconv.Atoi(key)
	if err != nil || year < 1900 || year > 9999 {
		return Period{}, NewValidationError("period", "period must be a four digit year")
	}
	return YearPeriod(year), nil
}

// Contains returns true if t falls on a day within [Start, End].
func (p Period) Contains(t time.Time) bool {
	day := truncateDay(t)
	return !day.Before(p.Start) && !day.After(p.End)
}

// Key identifies the period in wallet ids and accrual cause ids.
func (p Period) Key() string {
	return strconv.Itoa(p.Start.Year())
}

// Months returns the number of calendar months in the period.
func (p Period) Months() int {
	return (p.End.Year()-p.Start.Year())*12 + int(p.End.Month()-p.Start.Month()) + 1
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + "]"
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
