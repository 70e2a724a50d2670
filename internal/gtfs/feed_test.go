package gtfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func feedWithCalendar() Feed {
	return Feed{
		Services: map[string]Service{
			"WEEKDAY": {
				ID:        "WEEKDAY",
				Weekdays:  [7]bool{true, true, true, true, true, false, false},
				StartDate: Date{Year: 2026, Month: 1, Day: 1},
				EndDate:   Date{Year: 2026, Month: 6, Day: 30},
			},
			"SPECIAL": {ID: "SPECIAL"}, // no weekly mask, exception-driven only
		},
		CalendarExceptions: []CalendarException{
			{ServiceID: "SPECIAL", Date: Date{Year: 2026, Month: 3, Day: 8}, Added: true},
			{ServiceID: "SPECIAL", Date: Date{Year: 2026, Month: 3, Day: 9}, Added: false},
		},
	}
}

func TestRunsOnWeeklyMask(t *testing.T) {
	feed := feedWithCalendar()

	runs, known := feed.RunsOn("WEEKDAY", Date{Year: 2026, Month: 3, Day: 4}, 2) // a Wednesday
	assert.True(t, known)
	assert.True(t, runs)

	runs, known = feed.RunsOn("WEEKDAY", Date{Year: 2026, Month: 3, Day: 7}, 5) // a Saturday
	assert.True(t, known)
	assert.False(t, runs)
}

func TestRunsOnOutsideValidityRange(t *testing.T) {
	feed := feedWithCalendar()

	runs, known := feed.RunsOn("WEEKDAY", Date{Year: 2026, Month: 7, Day: 1}, 2)
	assert.True(t, known)
	assert.False(t, runs)
}

func TestRunsOnCalendarExceptionFallback(t *testing.T) {
	feed := feedWithCalendar()

	runs, known := feed.RunsOn("SPECIAL", Date{Year: 2026, Month: 3, Day: 8}, 6)
	assert.True(t, known)
	assert.True(t, runs)

	runs, known = feed.RunsOn("SPECIAL", Date{Year: 2026, Month: 3, Day: 9}, 0)
	assert.True(t, known)
	assert.False(t, runs)

	// A known exception-only service with no entry for the date simply doesn't run.
	runs, known = feed.RunsOn("SPECIAL", Date{Year: 2026, Month: 3, Day: 10}, 1)
	assert.True(t, known)
	assert.False(t, runs)
}

func TestRunsOnUnknownService(t *testing.T) {
	feed := feedWithCalendar()

	_, known := feed.RunsOn("GHOST", Date{Year: 2026, Month: 3, Day: 4}, 2)
	assert.False(t, known)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("20260302")
	assert.NoError(t, err)
	assert.Equal(t, Date{Year: 2026, Month: 3, Day: 2}, d)

	for _, in := range []string{"", "2026-03-02", "202603", "20261302", "20260332", "2026030a"} {
		_, err := ParseDate(in)
		assert.ErrorIs(t, err, ErrInvalidDate, in)
	}
}

func TestWeekday(t *testing.T) {
	assert.Equal(t, 0, Date{Year: 2026, Month: 7, Day: 27}.Weekday()) // Monday
	assert.Equal(t, 2, Date{Year: 2026, Month: 7, Day: 29}.Weekday()) // Wednesday
	assert.Equal(t, 6, Date{Year: 2026, Month: 8, Day: 2}.Weekday())  // Sunday
}

func TestDateOrdering(t *testing.T) {
	a := Date{Year: 2026, Month: 3, Day: 4}
	b := Date{Year: 2026, Month: 3, Day: 5}
	c := Date{Year: 2027, Month: 1, Day: 1}

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, b.Before(c))
	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b))
}
