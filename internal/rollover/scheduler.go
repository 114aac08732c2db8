package rollover

import (
	"fmt"
	"time"
)

// NextRolloverTime returns the first boundary of granularity g that lies
// strictly after current, advanced by interval units. Fields finer than g
// are zeroed; the result is expressed in loc (nil means current's zone).
// Week boundaries fall on weekStart.
//
// The function is pure: identical inputs give identical results.
func NextRolloverTime(current time.Time, g Granularity, interval int, weekStart time.Weekday, loc *time.Location) time.Time {
	return Schedule{Granularity: g, Interval: interval, WeekStart: weekStart, Location: loc}.Next(current)
}

// Schedule is a rollover cadence. It satisfies cron.Schedule, so a
// *cron.Cron can fire rotations directly.
type Schedule struct {
	Granularity Granularity
	Interval    int
	WeekStart   time.Weekday
	Location    *time.Location
	// Modulate aligns boundaries to multiples of Interval within the
	// enclosing unit: every 4 hours rolls at 00, 04, 08 and so on instead of
	// 4 hours after the current hour.
	Modulate bool
}

func (s Schedule) String() string {
	loc := "local"
	if s.Location != nil {
		loc = s.Location.String()
	}
	return fmt.Sprintf("every %d %s (week starts %s, %s, modulate=%t)",
		s.interval(), s.Granularity, s.WeekStart, loc, s.Modulate)
}

func (s Schedule) interval() int { return max(1, s.Interval) }

// Next returns the next boundary strictly after t. It panics on an invalid
// granularity.
//
// A boundary inside a spring-forward gap resolves to the first instant after
// the gap (02:00 in a 02:00-03:00 gap is 03:00). At a fall-back the repeated
// wall-clock hour is not a boundary of its own: hourly from 01:30 on the
// first pass rolls at 02:00 on the second offset.
func (s Schedule) Next(t time.Time) time.Time {
	if !s.Granularity.Valid() {
		panic(fmt.Sprintf("rollover: invalid granularity %d", int(s.Granularity)))
	}
	loc := s.Location
	if loc == nil {
		loc = t.Location()
	}
	local := t.In(loc)
	n := s.interval()

	next := s.step(local, n)
	for !next.After(t) {
		// An ambiguous wall time resolved to its first occurrence while t is
		// already on the second one.
		if later := laterOccurrence(next, local); later.After(t) {
			return later
		}
		// step always moves the wall clock forward, so this terminates.
		next = s.step(next, n)
	}
	return next
}

func (s Schedule) step(t time.Time, n int) time.Time {
	y, mo, d := t.Date()
	h, mi, sec := t.Clock()
	ms := t.Nanosecond() / int(time.Millisecond)
	loc := t.Location()

	switch s.Granularity {
	case Millisecond:
		return wallDate(y, mo, d, h, mi, sec, s.advance(ms, n, 1000)*int(time.Millisecond), loc)
	case Second:
		return wallDate(y, mo, d, h, mi, s.advance(sec, n, 60), 0, loc)
	case Minute:
		return wallDate(y, mo, d, h, s.advance(mi, n, 60), 0, 0, loc)
	case Hour:
		return wallDate(y, mo, d, s.advance(h, n, 24), 0, 0, 0, loc)
	case Day:
		return wallDate(y, mo, s.advance(d-1, n, daysIn(y, mo))+1, 0, 0, 0, 0, loc)
	case Week:
		back := (int(t.Weekday()) - int(s.WeekStart) + 7) % 7
		return wallDate(y, mo, d-back+7*n, 0, 0, 0, 0, loc)
	case Month:
		return wallDate(y, time.Month(s.advance(int(mo)-1, n, 12)+1), 1, 0, 0, 0, 0, loc)
	case Year:
		if s.Modulate {
			return wallDate((y/n+1)*n, time.January, 1, 0, 0, 0, 0, loc)
		}
		return wallDate(y+n, time.January, 1, 0, 0, 0, 0, loc)
	}
	panic("unreachable")
}

// wallDate is time.Date with gap handling: a wall time that does not exist
// in loc maps to the first instant after the gap. time.Date itself resolves
// it with the pre-transition offset, which lands before the gap.
func wallDate(y int, mo time.Month, d, h, mi, sec, nsec int, loc *time.Location) time.Time {
	t := time.Date(y, mo, d, h, mi, sec, nsec, loc)
	want := time.Date(y, mo, d, h, mi, sec, nsec, time.UTC)
	if gap := want.Sub(wallOf(t)); gap > 0 {
		return t.Add(gap)
	}
	return t
}

// laterOccurrence returns the second instant showing t's wall clock when t
// falls in a repeated hour and ref carries the later offset; otherwise t.
func laterOccurrence(t, ref time.Time) time.Time {
	_, offT := t.Zone()
	_, offRef := ref.Zone()
	shift := time.Duration(offT-offRef) * time.Second
	if shift <= 0 {
		return t
	}
	later := t.Add(shift)
	if !wallOf(later).Equal(wallOf(t)) {
		return t
	}
	return later
}

// wallOf returns t's wall clock reinterpreted in UTC.
func wallOf(t time.Time) time.Time {
	y, mo, d := t.Date()
	h, mi, sec := t.Clock()
	return time.Date(y, mo, d, h, mi, sec, t.Nanosecond(), time.UTC)
}

// advance moves a zero-based field value forward by n. With Modulate the
// value snaps to the next multiple of n, and a result past the end of the
// enclosing unit (size) becomes size, which time.Date carries into the next
// unit's first value.
func (s Schedule) advance(v, n, size int) int {
	if !s.Modulate {
		return v + n
	}
	return min((v/n+1)*n, size)
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
