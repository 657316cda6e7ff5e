package pattern

import "time"

// DateLayout is the ISO date format used for schedule keys.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// DateKey formats t as a schedule key.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// Midnight truncates t to midnight UTC of its calendar date, keeping the
// date as seen in t's own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AnchorDate returns the first Sunday on or after January 1 of year. Week 0,
// day 0 of the calendar grid is this date.
func AnchorDate(year int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Sunday) - int(jan1.Weekday()) + 7) % 7
	return jan1.AddDate(0, 0, offset)
}

// CellDate returns the date at a 0-based week and day-of-week (0 = Sunday)
// of the grid anchored at anchor.
func CellDate(anchor time.Time, week, weekday int) time.Time {
	return anchor.AddDate(0, 0, week*7+weekday)
}

// YearBounds returns Jan 1 of anchor's year and Jan 1 of the following year.
func YearBounds(anchor time.Time) (start, end time.Time) {
	start = time.Date(anchor.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// DaysBetween counts whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Midnight(b).Sub(Midnight(a)) / day)
}
