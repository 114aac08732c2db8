package rollover

import (
	"fmt"
	"strings"
)

// Granularity is the calendar field that sets the rollover cadence. Smaller
// values are finer.
type Granularity int

const (
	Millisecond Granularity = iota + 1
	Second
	Minute
	Hour
	Day
	Week
	Month
	Year
)

var granularityNames = [...]string{
	Millisecond: "millisecond",
	Second:      "second",
	Minute:      "minute",
	Hour:        "hour",
	Day:         "day",
	Week:        "week",
	Month:       "month",
	Year:        "year",
}

func (g Granularity) Valid() bool { return g >= Millisecond && g <= Year }

func (g Granularity) String() string {
	if !g.Valid() {
		return fmt.Sprintf("granularity(%d)", int(g))
	}
	return granularityNames[g]
}

// Finer reports whether g is a smaller unit than o.
func (g Granularity) Finer(o Granularity) bool { return g < o }

// ParseGranularity accepts the names printed by String, plus the
// adverbial forms used in configs ("hourly", "daily", ...).
func ParseGranularity(s string) (Granularity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "hourly":
		return Hour, nil
	case "daily":
		return Day, nil
	case "weekly":
		return Week, nil
	case "monthly":
		return Month, nil
	case "yearly", "annually":
		return Year, nil
	}
	s = strings.TrimSuffix(s, "s")
	for g := Millisecond; g <= Year; g++ {
		if granularityNames[g] == s {
			return g, nil
		}
	}
	return 0, fmt.Errorf("rollover: unknown granularity %q", s)
}

// letterGranularity maps calendar letters to the field they display. Letters
// without cadence (era, AM/PM, zones) are absent.
var letterGranularity = map[byte]Granularity{
	'S': Millisecond,
	's': Second,
	'm': Minute,
	'H': Hour, 'h': Hour, 'k': Hour, 'K': Hour,
	'd': Day, 'D': Day, 'E': Day, 'F': Day, 'u': Day,
	'w': Week, 'W': Week,
	'M': Month,
	'y': Year, 'Y': Year,
}

// GranularityOf returns the finest field among letters, or false when none
// carries a cadence.
func GranularityOf(letters string) (Granularity, bool) {
	var best Granularity
	for i := 0; i < len(letters); i++ {
		g, ok := letterGranularity[letters[i]]
		if ok && (best == 0 || g.Finer(best)) {
			best = g
		}
	}
	return best, best != 0
}
