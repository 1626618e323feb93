package engine

import (
	"testing"
	"time"

	"peakform/coach-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func startedSetup(start time.Time, weekStart domain.WeekStart) domain.PlanSetup {
	return domain.PlanSetup{
		WeekStart: weekStart,
		StartDate: &start,
		TimeZone:  "UTC",
	}
}

func TestResolveSessionDate_MondayWeeks(t *testing.T) {
	// Wednesday 2026-01-07 anchors week 0 at Monday 2026-01-05.
	setup := startedSetup(date(2026, time.January, 7), domain.WeekStartMonday)

	got, err := ResolveSessionDate(setup, 0, 1) // Monday
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 5), got)

	got, err = ResolveSessionDate(setup, 0, 0) // Sunday closes the week
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 11), got)

	got, err = ResolveSessionDate(setup, 0, 6) // Saturday
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 10), got)
}

func TestResolveSessionDate_SundayWeeks(t *testing.T) {
	setup := startedSetup(date(2026, time.January, 7), domain.WeekStartSunday)

	got, err := ResolveSessionDate(setup, 0, 0) // Sunday opens the week
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 4), got)

	got, err = ResolveSessionDate(setup, 0, 6) // Saturday closes it
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 10), got)
}

func TestResolveSessionDate_WeekIncrementIsSevenDays(t *testing.T) {
	setup := startedSetup(date(2026, time.January, 7), domain.WeekStartMonday)

	for week := 0; week < 5; week++ {
		got, err := ResolveSessionDate(setup, week, 3) // Wednesday
		require.NoError(t, err)
		want := date(2026, time.January, 7).AddDate(0, 0, 7*week)
		assert.Equal(t, want, got, "week %d", week)
	}
}

func TestResolveSessionDate_LegacyCompletionDate(t *testing.T) {
	// Event on Sunday 2026-03-01; a 4-week plan counts backwards so week 3
	// is the event week itself.
	completion := date(2026, time.March, 1)
	setup := domain.PlanSetup{
		WeekStart:      domain.WeekStartMonday,
		CompletionDate: &completion,
		WeeksToEvent:   4,
		TimeZone:       "UTC",
	}

	got, err := ResolveSessionDate(setup, 3, 1) // Monday of the event week
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.February, 23), got)

	got, err = ResolveSessionDate(setup, 0, 1) // three weeks earlier
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.February, 2), got)
}

func TestResolveSessionDate_PlanTimeZone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 01:00 UTC on Monday 2026-01-05 is still Sunday evening in New York,
	// so the plan week anchors a day earlier than the UTC date suggests.
	start := time.Date(2026, time.January, 5, 1, 0, 0, 0, time.UTC)
	setup := domain.PlanSetup{
		WeekStart: domain.WeekStartMonday,
		StartDate: &start,
		TimeZone:  "America/New_York",
	}

	got, err := ResolveSessionDate(setup, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.December, 29, 0, 0, 0, 0, loc), got)
	assert.Equal(t, "America/New_York", got.Location().String())

	// Midnight, no time-of-day component.
	assert.Zero(t, got.Hour())
	assert.Zero(t, got.Minute())
}

func TestResolveSessionDate_Validation(t *testing.T) {
	valid := startedSetup(date(2026, time.January, 7), domain.WeekStartMonday)

	_, err := ResolveSessionDate(valid, -1, 1)
	assert.Equal(t, FaultValidation, Classify(err))

	_, err = ResolveSessionDate(valid, 0, 7)
	assert.Equal(t, FaultValidation, Classify(err))
}

func TestValidateSetup(t *testing.T) {
	start := date(2026, time.January, 7)
	completion := date(2026, time.March, 1)

	cases := []struct {
		name  string
		setup domain.PlanSetup
		ok    bool
	}{
		{
			name:  "start date anchored",
			setup: domain.PlanSetup{WeekStart: domain.WeekStartMonday, StartDate: &start, TimeZone: "UTC"},
			ok:    true,
		},
		{
			name: "legacy completion date",
			setup: domain.PlanSetup{
				WeekStart: domain.WeekStartSunday, CompletionDate: &completion,
				WeeksToEvent: 12, TimeZone: "Europe/Amsterdam",
			},
			ok: true,
		},
		{
			name:  "unknown week start",
			setup: domain.PlanSetup{WeekStart: "tuesday", StartDate: &start, TimeZone: "UTC"},
		},
		{
			name:  "bad time zone",
			setup: domain.PlanSetup{WeekStart: domain.WeekStartMonday, StartDate: &start, TimeZone: "Mars/Olympus"},
		},
		{
			name:  "no anchor at all",
			setup: domain.PlanSetup{WeekStart: domain.WeekStartMonday, TimeZone: "UTC"},
		},
		{
			name: "weeks to event too small",
			setup: domain.PlanSetup{
				WeekStart: domain.WeekStartMonday, CompletionDate: &completion,
				WeeksToEvent: 0, TimeZone: "UTC",
			},
		},
		{
			name: "weeks to event too large",
			setup: domain.PlanSetup{
				WeekStart: domain.WeekStartMonday, CompletionDate: &completion,
				WeeksToEvent: 53, TimeZone: "UTC",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSetup(tc.setup)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, FaultValidation, Classify(err))
			}
		})
	}
}

func TestValidateSetup_LongSessionDayBounds(t *testing.T) {
	start := date(2026, time.January, 7)
	bad := 7
	setup := domain.PlanSetup{
		WeekStart: domain.WeekStartMonday, StartDate: &start,
		TimeZone: "UTC", LongSessionDay: &bad,
	}
	assert.Equal(t, FaultValidation, Classify(ValidateSetup(setup)))

	good := 6
	setup.LongSessionDay = &good
	assert.NoError(t, ValidateSetup(setup))
}
