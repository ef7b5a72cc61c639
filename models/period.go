package models

import (
	"fmt"
	"time"
)

// PeriodBoundary resolves a period type and reference date to a concrete
// inclusive [start, end] range of calendar days (midnight UTC).
//
// - daily:     the reference day
// - weekly:    Monday through Sunday of the reference week
// - monthly:   first through last day of the reference month
// - quarterly: first through last day of the reference calendar quarter
// - yearly:    Jan 1 through Dec 31 of the reference year
// - custom:    requires explicit start and end; referenceDate is ignored
func PeriodBoundary(periodType string, referenceDate time.Time, customStart, customEnd *time.Time) (time.Time, time.Time, error) {
	ref := dateOnly(referenceDate)

	switch periodType {
	case PeriodTypeDaily:
		return ref, ref, nil

	case PeriodTypeWeekly:
		weekday := int(ref.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday closes the week
		}
		start := ref.AddDate(0, 0, -(weekday - 1))
		return start, start.AddDate(0, 0, 6), nil

	case PeriodTypeMonthly:
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, -1), nil

	case PeriodTypeQuarterly:
		quarterFirstMonth := time.Month((int(ref.Month())-1)/3*3 + 1)
		start := time.Date(ref.Year(), quarterFirstMonth, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 3, -1), nil

	case PeriodTypeYearly:
		start := time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, time.Date(ref.Year(), time.December, 31, 0, 0, 0, 0, time.UTC), nil

	case PeriodTypeCustom:
		if customStart == nil || customEnd == nil {
			return time.Time{}, time.Time{}, fmt.Errorf("custom period requires explicit startDate and endDate")
		}
		start := dateOnly(*customStart)
		end := dateOnly(*customEnd)
		if end.Before(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("custom period end %s is before start %s",
				end.Format("2006-01-02"), start.Format("2006-01-02"))
		}
		return start, end, nil
	}

	return time.Time{}, time.Time{}, fmt.Errorf("unknown period type %q", periodType)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PeriodDays is the inclusive day count of a boundary.
func PeriodDays(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}
