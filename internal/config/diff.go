package config

import (
	"reflect"
	"sort"
	"strings"

	logx "patternlog/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections,
// (2) structured fields for the reload log line, and (3) the names of
// layouts and rollovers that were added, removed or changed.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)
	var entries []string

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.String("logging.layout", newCfg.Logging.Layout),
		)
	}

	var oDriver, nDriver string
	var oPathSet, nPathSet bool
	if oldCfg.Storage != nil {
		oDriver = strings.TrimSpace(oldCfg.Storage.Driver)
		oPathSet = strings.TrimSpace(oldCfg.Storage.Path) != ""
	}
	if newCfg.Storage != nil {
		nDriver = strings.TrimSpace(newCfg.Storage.Driver)
		nPathSet = strings.TrimSpace(newCfg.Storage.Path) != ""
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.driver_changed", oDriver != nDriver),
			logx.Bool("storage.path_set", nPathSet),
			logx.Bool("storage.path_was_set", oPathSet),
		)
	}

	// Property values may hold secrets; only the count is logged.
	if !reflect.DeepEqual(nonNil(oldCfg.Properties), nonNil(newCfg.Properties)) {
		changed = append(changed, "properties")
		attrs = append(attrs, logx.Int("properties.count", len(newCfg.Properties)))
	}

	if diff := diffKeys(oldCfg.Layouts, newCfg.Layouts); len(diff) > 0 {
		changed = append(changed, "layouts")
		attrs = append(attrs,
			logx.Int("layouts.changed_count", len(diff)),
			logx.Int("layouts.count", len(newCfg.Layouts)),
		)
		for _, n := range diff {
			entries = append(entries, "layouts."+n)
		}
	}

	if diff := diffKeys(oldCfg.Rollovers, newCfg.Rollovers); len(diff) > 0 {
		changed = append(changed, "rollovers")
		attrs = append(attrs,
			logx.Int("rollovers.changed_count", len(diff)),
			logx.Int("rollovers.count", len(newCfg.Rollovers)),
		)
		for _, n := range diff {
			entries = append(entries, "rollovers."+n)
		}
	}

	if oldCfg.Reporter != newCfg.Reporter {
		changed = append(changed, "reporter")
		attrs = append(attrs, logx.Int("reporter.rate_per_sec", newCfg.Reporter.RatePerSec))
	}

	if oldCfg.Watch != newCfg.Watch {
		changed = append(changed, "watch")
		attrs = append(attrs, logx.String("watch.debounce", newCfg.Watch.Debounce))
	}

	sort.Strings(changed)
	return changed, attrs, entries
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// diffKeys lists the names whose entry differs between oldM and newM.
func diffKeys[V any](oldM, newM map[string]V) []string {
	set := map[string]struct{}{}
	for k := range oldM {
		set[k] = struct{}{}
	}
	for k := range newM {
		set[k] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		o, okOld := oldM[name]
		n, okNew := newM[name]
		if okOld != okNew || !reflect.DeepEqual(o, n) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
