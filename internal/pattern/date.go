package pattern

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"patternlog/internal/datefmt"
)

// dateConverter renders Record.Time.
//
//	%d                       DEFAULT layout
//	%d{ISO8601}              named layout
//	%d{HH:mm:ss,SSS}         letter layout
//	%d{...}{Europe/Paris}    render in a zone
//	%d{...}{UTC}{en-US}      locale picks the first day of week for w/W/u
//	%d{UNIX} / %d{UNIX_MILLIS}
type dateConverter struct {
	layout    *datefmt.Layout
	loc       *time.Location
	weekStart time.Weekday
	unix      int // 0 off, 1 seconds, 2 millis
}

func newDateConverter(spec Spec) (Converter, error) {
	c := &dateConverter{weekStart: time.Monday}

	src := strings.TrimSpace(spec.Block(0))
	switch strings.ToUpper(src) {
	case "UNIX":
		c.unix = 1
	case "UNIX_MILLIS":
		c.unix = 2
	default:
		if src == "" {
			src = "DEFAULT"
		}
		if p, ok := datefmt.Named(src); ok {
			src = p
		}
		l, err := datefmt.Parse(src)
		if err != nil {
			return nil, err
		}
		c.layout = l
	}

	if zone := strings.TrimSpace(spec.Block(1)); zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("date zone %q: %w", zone, err)
		}
		c.loc = loc
	}
	// The third block is a locale ("en_US") or a full weekday name
	// ("sunday"); three-letter forms would collide with language codes
	// such as "mon" and "sat".
	if ws := strings.TrimSpace(spec.Block(2)); ws != "" {
		if d, ok := datefmt.ParseWeekday(ws); ok && len(ws) > 3 {
			c.weekStart = d
		} else {
			c.weekStart = datefmt.FirstDayOfWeek(ws)
		}
	}
	return c, nil
}

func (c *dateConverter) AppendRecord(dst []byte, rec *Record) ([]byte, error) {
	t := rec.Time
	if t.IsZero() {
		t = time.Now()
	}
	switch c.unix {
	case 1:
		return strconv.AppendInt(dst, t.Unix(), 10), nil
	case 2:
		return strconv.AppendInt(dst, t.UnixMilli(), 10), nil
	}
	if c.loc != nil {
		t = t.In(c.loc)
	}
	return c.layout.AppendFormat(dst, t, c.weekStart), nil
}

// Layout exposes the parsed layout; nil for the UNIX forms.
func (c *dateConverter) Layout() *datefmt.Layout { return c.layout }

// Location returns the configured zone or nil.
func (c *dateConverter) Location() *time.Location { return c.loc }
