package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration fields hold Go duration strings ("250ms", "2s"). A bare integer
// is read as milliseconds, which is what YAML users tend to type for
// timeouts. Empty means unset.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	var d time.Duration
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		d = time.Duration(ms) * time.Millisecond
	} else if d, err = time.ParseDuration(s); err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0, got %s", path, d)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def standing in for an
// unset or zero value.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}

// watchDebounceRange bounds watch.debounce: shorter windows split one editor
// save into several reloads, longer ones make edits look ignored.
const (
	minWatchDebounce = 10 * time.Millisecond
	maxWatchDebounce = 10 * time.Second
)

// WatchDebounce resolves watch.debounce, defaulting to 250ms.
func (c *Config) WatchDebounce() (time.Duration, error) {
	d, err := ParseDurationOrDefault("watch.debounce", c.Watch.Debounce, reloadDebounce)
	if err != nil {
		return 0, err
	}
	if d < minWatchDebounce || d > maxWatchDebounce {
		return 0, fmt.Errorf("watch.debounce: %s outside [%s, %s]", d, minWatchDebounce, maxWatchDebounce)
	}
	return d, nil
}
