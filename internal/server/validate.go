package server

import (
	"fmt"
	"time"
)

// Accepted year range for every date in the system (manufacture, birth,
// loan).
const (
	yearMin = 1920
	yearMax = 2021
)

// buildDate validates the three client-supplied date components and folds
// them into a single date. Impossible calendar dates (February 31st) are
// caught here, before anything reaches the backing store.
func buildDate(year, month, day int) (time.Time, error) {
	if year < yearMin || year > yearMax {
		return time.Time{}, fmt.Errorf("year %d out of accepted range (%d-%d)", year, yearMin, yearMax)
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month %d out of range (1-12)", month)
	}
	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("date %d out of range (1-31)", day)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 31 -> Mar 3); a changed component
	// means the date never existed
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, fmt.Errorf("%d-%d-%d is not a real calendar date", year, month, day)
	}
	return t, nil
}
