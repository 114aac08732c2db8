package rollover

import (
	"time"

	"patternlog/internal/datefmt"
)

// FirstDayOfWeek returns the first weekday of locale's region.
func FirstDayOfWeek(locale string) time.Weekday { return datefmt.FirstDayOfWeek(locale) }

// ResolveWeekStart picks the week start for a target: the locale's first
// day when useLocale is set, ISO Monday otherwise.
func ResolveWeekStart(locale string, useLocale bool) time.Weekday {
	if !useLocale {
		return time.Monday
	}
	return FirstDayOfWeek(locale)
}
