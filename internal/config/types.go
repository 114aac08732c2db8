package config

type Config struct {
	Logging LoggingConfig  `json:"logging"`
	Storage *StorageConfig `json:"storage,omitempty"`

	// Properties feed ${name} substitution in layout headers and footers.
	Properties map[string]string `json:"properties,omitempty"`

	Layouts   map[string]LayoutConfig   `json:"layouts"`
	Rollovers map[string]RolloverConfig `json:"rollovers,omitempty"`

	// Reporter limits converter-failure diagnostics.
	Reporter ReporterConfig `json:"reporter,omitempty"`

	Watch WatchConfig `json:"watch,omitempty"`
}

// WatchConfig tunes the config file watcher.
type WatchConfig struct {
	// Debounce is the quiet period after a change before reloading
	// (duration string or milliseconds; default 250ms).
	Debounce string `json:"debounce,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`

	// Layout renders the console output through a named layout instead of
	// zerolog's console writer.
	Layout string `json:"layout,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls persistence of rollover state.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./patternlog_state" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite; duration string or milliseconds, default 1s
}

// LayoutConfig describes one conversion pattern layout.
//
// always_write_errors is a pointer so an omitted key keeps the default (true).
type LayoutConfig struct {
	Pattern           string         `json:"pattern"`
	Replace           *ReplaceConfig `json:"replace,omitempty"`
	AlwaysWriteErrors *bool          `json:"always_write_errors,omitempty"`
	DisableEscapes    bool           `json:"disable_escapes,omitempty"`
	Header            string         `json:"header,omitempty"`
	Footer            string         `json:"footer,omitempty"`
}

type ReplaceConfig struct {
	Regex       string `json:"regex"`
	Replacement string `json:"replacement"`
}

// RolloverConfig describes one time-based rotation target.
//
// Defaults (when fields are omitted/zero):
//   - interval: 1
//   - timezone: local time
//   - week start: week_start, else the locale's when use_locale_week_start
//     is set, else Monday
type RolloverConfig struct {
	FilePattern string `json:"file_pattern"`
	Interval    int    `json:"interval,omitempty"`
	Modulate    bool   `json:"modulate,omitempty"`

	// Timezone is an IANA zone name (e.g. "Europe/Berlin").
	Timezone string `json:"timezone,omitempty"`

	Locale             string `json:"locale,omitempty"`
	UseLocaleWeekStart bool   `json:"use_locale_week_start,omitempty"`

	// WeekStart names the first weekday ("sunday", "sat") and wins over the
	// locale.
	WeekStart string `json:"week_start,omitempty"`

	// Granularity, when set, must equal the cadence derived from
	// FilePattern ("hourly", "day", ...). It catches mm/MM mix-ups.
	Granularity string `json:"granularity,omitempty"`

	// Layout names the layout used for records of this target.
	Layout string `json:"layout,omitempty"`
}

type ReporterConfig struct {
	// RatePerSec caps converter-failure log lines; 0 means 5.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}
