package util

import (
	"fmt"
	"time"
)

// AddMonths returns the year and month that lies n months after year/month.
// n may be negative.
func AddMonths(year, month, n int) (int, int) {
	total := year*12 + (month - 1) + n
	return total / 12, total%12 + 1
}

// MonthIndex returns year*12+month, the ordinal used for whole-month differences
func MonthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month())
}

// MonthsBetween returns the whole calendar-month difference to - from, ignoring the day of month
func MonthsBetween(from, to time.Time) int {
	return MonthIndex(to) - MonthIndex(from)
}

// CalculateActualDate returns the actual date for a target day in a given month,
// handling months with fewer days (e.g., day 31 in February returns Feb 28/29)
func CalculateActualDate(year int, month time.Month, targetDay int) time.Time {
	// Get last day of month by going to day 0 of next month
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	actualDay := targetDay
	if actualDay > lastDay {
		actualDay = lastDay
	}

	return time.Date(year, month, actualDay, 0, 0, 0, 0, time.UTC)
}

// MonthLabel formats a short month label like "Apr 2025"
func MonthLabel(year, month int) string {
	return fmt.Sprintf("%s %d", time.Month(month).String()[:3], year)
}
