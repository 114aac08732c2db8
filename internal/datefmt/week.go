package datefmt

import "time"

// minimalDays is the number of days the first week of a year or month must
// contain: 4 for Monday-start weeks (ISO-8601), 1 otherwise.
func minimalDays(ws time.Weekday) int {
	if ws == time.Monday {
		return 4
	}
	return 1
}

// civil drops the clock and zone so that day arithmetic is exact.
func civil(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// firstWeekStart returns the first day of week 1 of year.
func firstWeekStart(year int, ws time.Weekday) time.Time {
	jan1 := civil(year, time.January, 1)
	offset := (int(jan1.Weekday()) - int(ws) + 7) % 7
	if 7-offset >= minimalDays(ws) {
		return jan1.AddDate(0, 0, -offset)
	}
	return jan1.AddDate(0, 0, 7-offset)
}

// weekOfYear returns the week-based year and week number of t.
func weekOfYear(t time.Time, ws time.Weekday) (int, int) {
	d := civil(t.Year(), t.Month(), t.Day())
	year := t.Year()

	if next := firstWeekStart(year+1, ws); !d.Before(next) {
		return year + 1, 1
	}
	start := firstWeekStart(year, ws)
	if d.Before(start) {
		year--
		start = firstWeekStart(year, ws)
	}
	days := int(d.Sub(start).Hours() / 24)
	return year, days/7 + 1
}

// weekOfMonth returns the week of the month; days before the first full
// week (per minimalDays) are in week 0.
func weekOfMonth(t time.Time, ws time.Weekday) int {
	first := civil(t.Year(), t.Month(), 1)
	offset := (int(first.Weekday()) - int(ws) + 7) % 7
	w := (t.Day() - 1 + offset) / 7
	if 7-offset >= minimalDays(ws) {
		w++
	}
	return w
}
