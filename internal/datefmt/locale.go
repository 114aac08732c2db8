package datefmt

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Regions whose weeks do not start on Monday (CLDR weekData firstDay).
var (
	sundayStart = map[string]bool{
		"AG": true, "AS": true, "BD": true, "BR": true, "BS": true, "BT": true, "BW": true, "BZ": true,
		"CA": true, "CN": true, "CO": true, "DM": true, "DO": true, "ET": true, "GT": true, "GU": true,
		"HK": true, "HN": true, "ID": true, "IL": true, "IN": true, "JM": true, "JP": true, "KE": true,
		"KH": true, "KR": true, "LA": true, "MH": true, "MM": true, "MO": true, "MT": true, "MX": true,
		"MZ": true, "NI": true, "NP": true, "PA": true, "PE": true, "PH": true, "PK": true, "PR": true,
		"PT": true, "PY": true, "SA": true, "SG": true, "SV": true, "TH": true, "TT": true, "TW": true,
		"UM": true, "US": true, "VE": true, "VI": true, "WS": true, "YE": true, "ZA": true, "ZW": true,
	}
	saturdayStart = map[string]bool{
		"AE": true, "AF": true, "BH": true, "DJ": true, "DZ": true, "EG": true, "IQ": true, "IR": true,
		"JO": true, "KW": true, "LY": true, "OM": true, "QA": true, "SD": true, "SY": true,
	}
)

// FirstDayOfWeek returns the first weekday for a BCP 47 (or en_US style)
// locale. Unknown or region-less locales fall back to Monday.
func FirstDayOfWeek(locale string) time.Weekday {
	locale = strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
	if locale == "" {
		return time.Monday
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return time.Monday
	}
	region, conf := tag.Region()
	if conf == language.No {
		return time.Monday
	}
	switch code := region.String(); {
	case sundayStart[code]:
		return time.Sunday
	case saturdayStart[code]:
		return time.Saturday
	default:
		return time.Monday
	}
}

// ParseWeekday accepts full or three-letter English weekday names.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}
