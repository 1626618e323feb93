// internal/engine/dates.go
package engine

import (
	"time"

	"peakform/coach-app/internal/domain"
)

// Plans address sessions by (weekIndex, dayOfWeek) with dayOfWeek in the
// raw 0-6 encoding, 0 = Sunday. The resolver pins those onto calendar
// dates: midnight in the plan's time zone, no time-of-day component.

const (
	minWeeksToEvent = 1
	maxWeeksToEvent = 52
)

// ValidateSetup checks the scheduling parameters of a plan setup. It is the
// same check the resolver applies, exposed so plan creation can reject a
// malformed setup up front.
func ValidateSetup(setup domain.PlanSetup) error {
	if setup.WeekStart != domain.WeekStartMonday && setup.WeekStart != domain.WeekStartSunday {
		return Invalidf("unknown week start %q", setup.WeekStart)
	}
	if _, err := time.LoadLocation(setup.TimeZone); err != nil {
		return InvalidErr("invalid plan time zone", err)
	}
	if setup.StartDate == nil {
		if setup.CompletionDate == nil {
			return Invalidf("plan setup requires a start date or a completion date")
		}
		if setup.WeeksToEvent < minWeeksToEvent || setup.WeeksToEvent > maxWeeksToEvent {
			return Invalidf("weeks to event must be between %d and %d, got %d", minWeeksToEvent, maxWeeksToEvent, setup.WeeksToEvent)
		}
	}
	if setup.LongSessionDay != nil && (*setup.LongSessionDay < 0 || *setup.LongSessionDay > 6) {
		return Invalidf("long session day must be 0-6, got %d", *setup.LongSessionDay)
	}
	return nil
}

// ResolveSessionDate maps a session address to its calendar date.
//
// With a start date, week 0 begins at startOfWeek(startDate). Without one
// (legacy plans), weeks count backwards from the completion-date week:
// weekIndex weeksToEvent-1 is the event week itself.
//
// Incrementing weekIndex by one always advances the result by exactly seven
// days.
func ResolveSessionDate(setup domain.PlanSetup, weekIndex, dayOfWeek int) (time.Time, error) {
	if err := ValidateSetup(setup); err != nil {
		return time.Time{}, err
	}
	if weekIndex < 0 {
		return time.Time{}, Invalidf("week index must be >= 0, got %d", weekIndex)
	}
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return time.Time{}, Invalidf("day of week must be 0-6, got %d", dayOfWeek)
	}

	loc, err := time.LoadLocation(setup.TimeZone)
	if err != nil {
		return time.Time{}, InvalidErr("invalid plan time zone", err)
	}

	var weekBoundary time.Time
	if setup.StartDate != nil {
		anchor := startOfWeek(setup.StartDate.In(loc), setup.WeekStart)
		weekBoundary = anchor.AddDate(0, 0, 7*weekIndex)
	} else {
		anchor := startOfWeek(setup.CompletionDate.In(loc), setup.WeekStart)
		remaining := setup.WeeksToEvent - 1 - weekIndex
		weekBoundary = anchor.AddDate(0, 0, -7*remaining)
	}

	return weekBoundary.AddDate(0, 0, weekOffset(dayOfWeek, setup.WeekStart)), nil
}

// weekOffset is the position (0-6) of a raw day-of-week within a week that
// begins on the given convention's first day.
func weekOffset(dayOfWeek int, weekStart domain.WeekStart) int {
	if weekStart == domain.WeekStartMonday {
		return (dayOfWeek + 6) % 7
	}
	return dayOfWeek
}

// startOfWeek truncates t to midnight of the first day of its week.
func startOfWeek(t time.Time, weekStart domain.WeekStart) time.Time {
	day := startOfDay(t)
	return day.AddDate(0, 0, -weekOffset(int(day.Weekday()), weekStart))
}

// startOfDay truncates t to midnight in its own location. Reconstructing
// with time.Date keeps the day key clean across DST transitions.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
