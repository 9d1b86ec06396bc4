package planner

import (
	"time"

	"cloud.google.com/go/civil"
)

// Clock returns the current time. Entry points that default to "this week"
// take a Clock so tests do not depend on the wall clock.
type Clock func() time.Time

// SystemClock is the production Clock.
func SystemClock() time.Time { return time.Now() }

// WeekStartOf returns the Monday of the week containing d.
func WeekStartOf(d civil.Date) civil.Date {
	offset := (int(d.In(time.UTC).Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// CurrentWeekStart returns the Monday of the week containing clock().
func CurrentWeekStart(clock Clock) civil.Date {
	return WeekStartOf(civil.DateOf(clock()))
}

// GetNextMonday returns the Monday of the week after the one containing d.
func GetNextMonday(d civil.Date) civil.Date {
	return WeekStartOf(d).AddDays(7)
}

// DatesOfWeek returns Monday through Sunday of the week containing weekStart.
func DatesOfWeek(weekStart civil.Date) [7]civil.Date {
	monday := WeekStartOf(weekStart)
	var dates [7]civil.Date
	for i := range dates {
		dates[i] = monday.AddDays(i)
	}
	return dates
}

// weekdayIndex returns d's position within the week starting at weekStart,
// or -1 when d lies outside it.
func weekdayIndex(weekStart, d civil.Date) int {
	idx := d.DaysSince(weekStart)
	if idx < 0 || idx > 6 {
		return -1
	}
	return idx
}
