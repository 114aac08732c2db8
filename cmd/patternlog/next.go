package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"patternlog/internal/rollover"
)

func runNext(c *nextCmd, out io.Writer) error {
	loc := time.Local
	if tz := strings.TrimSpace(c.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
		loc = l
	}
	at := time.Now()
	if c.At != "" {
		t, err := time.Parse(time.RFC3339Nano, c.At)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		at = t
	}
	if c.Interval < 1 {
		return fmt.Errorf("--interval must be >= 1")
	}

	ws := rollover.ResolveWeekStart(c.Locale, c.Locale != "")
	target, err := rollover.NewTarget("cli", c.FilePattern, c.Interval, ws, loc, c.Modulate)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "granularity: %s\n", target.Schedule.Granularity)
	fmt.Fprintf(out, "schedule:    %s\n", target.Schedule)
	fmt.Fprintf(out, "current:     %s\n", target.Pattern.FormatFileName(at, 0, loc, ws))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BOUNDARY\tCLOSES\tOPENS")
	prev := at
	for i := 0; i < c.Count; i++ {
		next := target.Schedule.Next(prev)
		if !next.After(prev) {
			break
		}
		closes := target.Pattern.FormatFileName(next.Add(-time.Millisecond), 0, loc, ws)
		opens := target.Pattern.FormatFileName(next, 0, loc, ws)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", next.In(loc).Format(time.RFC3339), closes, opens)
		prev = next
	}
	return tw.Flush()
}
