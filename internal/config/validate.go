package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"patternlog/internal/datefmt"
	"patternlog/internal/layout"
	"patternlog/internal/pattern"
	"patternlog/internal/rollover"
	"patternlog/internal/storage"
)

// Validate checks everything that would fail at construction time: every
// layout compiles, every rollover pattern carries a date cadence, and every
// referenced layout or zone exists. All problems are reported together.
func Validate(cfg *Config, reg *pattern.Registry) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	for _, name := range sortedNames(cfg.Layouts) {
		if _, err := layout.New(name, cfg.Layouts[name].Layout(), reg, cfg.Properties); err != nil {
			errs = append(errs, fmt.Errorf("layouts.%s.pattern: %w", name, err))
		}
	}

	for _, name := range sortedNames(cfg.Rollovers) {
		rc := cfg.Rollovers[name]
		if _, err := rc.Target(name); err != nil {
			errs = append(errs, fmt.Errorf("rollovers.%s: %w", name, err))
		}
		if rc.Layout != "" {
			if _, ok := cfg.Layouts[rc.Layout]; !ok {
				errs = append(errs, fmt.Errorf("rollovers.%s.layout: unknown layout %q", name, rc.Layout))
			}
		}
	}

	if l := strings.TrimSpace(cfg.Logging.Layout); l != "" {
		if _, ok := cfg.Layouts[l]; !ok {
			errs = append(errs, fmt.Errorf("logging.layout: unknown layout %q", l))
		}
	}

	if cfg.Storage != nil {
		if _, err := cfg.Storage.Storage(); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := cfg.WatchDebounce(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Layout converts the config entry to layout.Config.
func (lc LayoutConfig) Layout() layout.Config {
	out := layout.Config{
		Pattern:           lc.Pattern,
		AlwaysWriteErrors: lc.AlwaysWriteErrors,
		DisableEscapes:    lc.DisableEscapes,
		Header:            lc.Header,
		Footer:            lc.Footer,
	}
	if lc.Replace != nil {
		out.Replace = &layout.Replace{Regex: lc.Replace.Regex, Replacement: lc.Replace.Replacement}
	}
	return out
}

// LayoutConfigs converts every layout entry.
func (c *Config) LayoutConfigs() map[string]layout.Config {
	out := make(map[string]layout.Config, len(c.Layouts))
	for name, lc := range c.Layouts {
		out[name] = lc.Layout()
	}
	return out
}

// Location resolves Timezone; empty means time.Local.
func (rc RolloverConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(rc.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timezone: invalid %q: %w", tz, err)
	}
	return loc, nil
}

// Target builds the rollover target this entry describes.
func (rc RolloverConfig) Target(name string) (rollover.Target, error) {
	if strings.TrimSpace(rc.FilePattern) == "" {
		return rollover.Target{}, errors.New("file_pattern: required")
	}
	if rc.Interval < 0 {
		return rollover.Target{}, fmt.Errorf("interval: must be >= 0, got %d", rc.Interval)
	}
	loc, err := rc.Location()
	if err != nil {
		return rollover.Target{}, err
	}
	weekStart := rollover.ResolveWeekStart(rc.Locale, rc.UseLocaleWeekStart)
	if ws := strings.TrimSpace(rc.WeekStart); ws != "" {
		d, ok := datefmt.ParseWeekday(ws)
		if !ok {
			return rollover.Target{}, fmt.Errorf("week_start: unknown weekday %q", ws)
		}
		weekStart = d
	}
	t, err := rollover.NewTarget(name, rc.FilePattern, max(1, rc.Interval), weekStart, loc, rc.Modulate)
	if err != nil {
		return rollover.Target{}, fmt.Errorf("file_pattern: %w", err)
	}
	if g := strings.TrimSpace(rc.Granularity); g != "" {
		want, err := rollover.ParseGranularity(g)
		if err != nil {
			return rollover.Target{}, fmt.Errorf("granularity: %w", err)
		}
		if got := t.Schedule.Granularity; got != want {
			return rollover.Target{}, fmt.Errorf("granularity: file_pattern %q rolls every %s, not every %s", rc.FilePattern, got, want)
		}
	}
	return t, nil
}

// Storage converts the section to storage.Config.
func (sc *StorageConfig) Storage() (storage.Config, error) {
	if sc == nil {
		return storage.Config{}, nil
	}
	busy, err := ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      strings.TrimSpace(sc.Driver),
		Path:        strings.TrimSpace(sc.Path),
		BusyTimeout: busy,
	}, nil
}

func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
