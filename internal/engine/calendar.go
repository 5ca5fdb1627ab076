// Package engine holds the pure, request-scoped portfolio math: weights, one-day
// return, the valuation timeline and benchmark alignment.
package engine

import (
	"time"

	"portpulse/internal/models"
)

// IsBusinessDay reports whether d falls on a weekday. Market holidays are not
// modelled here; they surface as missing benchmark prices and are removed by Align.
func IsBusinessDay(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// BusinessDays returns the last n weekdays up to and including end, oldest first.
func BusinessDays(end time.Time, n int) []time.Time {
	if n <= 0 {
		return []time.Time{}
	}
	days := make([]time.Time, 0, n)
	for d := models.Day(end); len(days) < n; d = d.AddDate(0, 0, -1) {
		if IsBusinessDay(d) {
			days = append(days, d)
		}
	}
	for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
		days[i], days[j] = days[j], days[i]
	}
	return days
}

// ISODates formats days as YYYY-MM-DD.
func ISODates(days []time.Time) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Format(models.DateFormat)
	}
	return out
}
