package domain

import (
	"fmt"
	"time"
)

// rocEpochOffset converts a Gregorian year to the Republic-era (民國) year.
const rocEpochOffset = 1911

// Period is a calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the month containing t, in t's location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("parse period %q: %w", s, err)
	}
	return PeriodOf(t), nil
}

// Prev returns the calendar month before p: the first of p minus one day.
func (p Period) Prev() Period {
	first := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	return PeriodOf(first.AddDate(0, 0, -1))
}

// ROCYear is the Republic-era year used by Tainan open-data file naming.
func (p Period) ROCYear() int {
	return p.Year - rocEpochOffset
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// IsZero reports whether p is unset.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}
