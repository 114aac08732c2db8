package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"patternlog/internal/pattern"
	"patternlog/internal/rollover"
)

const sampleYAML = `
logging:
  level: debug
  console: true
  layout: console
storage:
  driver: file
  path: ./state
  busy_timeout: 2s
properties:
  app: shop
layouts:
  console:
    pattern: "%d{HH:mm:ss.SSS} %-5p [%c] %m%n"
  audit:
    pattern: "%m"
    always_write_errors: false
    replace:
      regex: "\\d{4}"
      replacement: "****"
    header: "# ${app}\n"
rollovers:
  app:
    file_pattern: "logs/app-%d{yyyy-MM-dd-HH}.log"
    interval: 4
    modulate: true
    timezone: UTC
    layout: audit
  weekly:
    file_pattern: "logs/week-%d{yyyy-ww}.log"
    locale: en-US
    use_locale_week_start: true
`

func TestParseYAML(t *testing.T) {
	cfg, err := ParseBytes("config.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console || cfg.Logging.Layout != "console" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	audit := cfg.Layouts["audit"]
	if audit.AlwaysWriteErrors == nil || *audit.AlwaysWriteErrors {
		t.Fatalf("always_write_errors = %v", audit.AlwaysWriteErrors)
	}
	if audit.Replace == nil || audit.Replace.Regex != `\d{4}` {
		t.Fatalf("replace = %+v", audit.Replace)
	}
	if cfg.Layouts["console"].AlwaysWriteErrors != nil {
		t.Fatal("omitted always_write_errors is not nil")
	}
	if r := cfg.Rollovers["app"]; r.Interval != 4 || !r.Modulate || r.Timezone != "UTC" {
		t.Fatalf("rollover = %+v", r)
	}
	if err := Validate(cfg, pattern.NewDefaultRegistry()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseYAMLScalarsAsStrings(t *testing.T) {
	doc := `
storage:
  driver: sqlite
  path: ./state.db
  busy_timeout: 1500
watch:
  debounce: 100
properties:
  port: 8080
  debug: true
  ratio: 0.5
layouts:
  main:
    pattern: "%m%n"
`
	cfg, err := ParseBytes("c.yml", []byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.BusyTimeout != "1500" || cfg.Watch.Debounce != "100" {
		t.Fatalf("durations = %q, %q", cfg.Storage.BusyTimeout, cfg.Watch.Debounce)
	}
	want := map[string]string{"port": "8080", "debug": "true", "ratio": "0.5"}
	for k, v := range want {
		if cfg.Properties[k] != v {
			t.Fatalf("properties[%s] = %q, want %q", k, cfg.Properties[k], v)
		}
	}

	_, err = ParseBytes("c.yaml", []byte("layouts:\n  main:\n    pattern: %m%n\n"))
	if err == nil || !strings.Contains(err.Error(), "quote patterns") {
		t.Fatalf("unquoted pattern error = %v", err)
	}
}

func TestParseStrict(t *testing.T) {
	if _, err := ParseBytes("c.json", []byte(`{"layouts":{},"bogus":1}`)); err == nil {
		t.Fatal("unknown key accepted")
	}
	if _, err := ParseBytes("c.json", []byte(`{"layouts":{}} {}`)); err == nil {
		t.Fatal("trailing data accepted")
	}
	if _, err := ParseBytes("c.yml", []byte("layouts: [")); err == nil {
		t.Fatal("broken yaml accepted")
	}
	cfg, err := ParseBytes("c.yaml", nil)
	if err != nil || cfg == nil {
		t.Fatalf("empty yaml = %v, %v", cfg, err)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Layout: "missing"},
		Storage: &StorageConfig{Driver: "sqlite", BusyTimeout: "soon"},
		Watch:   WatchConfig{Debounce: "1h"},
		Layouts: map[string]LayoutConfig{
			"ok":  {Pattern: "%m%n"},
			"bad": {Pattern: "%d{yyyy"},
		},
		Rollovers: map[string]RolloverConfig{
			"nodate": {FilePattern: "logs/app-%i.log"},
			"zone":   {FilePattern: "logs/app-%d.log", Timezone: "Nowhere/City"},
			"ref":    {FilePattern: "logs/app-%d.log", Layout: "nope"},
			"empty":  {},
		},
	}
	err := Validate(cfg, pattern.NewDefaultRegistry())
	if err == nil {
		t.Fatal("Validate accepted a broken config")
	}
	for _, want := range []string{
		"layouts.bad.pattern",
		"rollovers.nodate",
		"rollovers.zone: timezone",
		`rollovers.ref.layout: unknown layout "nope"`,
		"rollovers.empty: file_pattern: required",
		`logging.layout: unknown layout "missing"`,
		"storage.busy_timeout",
		"watch.debounce",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error lacks %q:\n%v", want, err)
		}
	}
	if strings.Contains(err.Error(), "layouts.ok") {
		t.Errorf("valid layout reported: %v", err)
	}
}

func TestRolloverTarget(t *testing.T) {
	rc := RolloverConfig{FilePattern: "logs/w-%d{yyyy-ww}.log", Locale: "en_US", UseLocaleWeekStart: true, Timezone: "UTC"}
	target, err := rc.Target("w")
	if err != nil {
		t.Fatal(err)
	}
	s := target.Schedule
	if s.Granularity != rollover.Week || s.WeekStart != time.Sunday || s.Interval != 1 || s.Location != time.UTC {
		t.Fatalf("schedule = %+v", s)
	}

	rc.UseLocaleWeekStart = false
	target, _ = rc.Target("w")
	if target.Schedule.WeekStart != time.Monday {
		t.Fatalf("week start = %v", target.Schedule.WeekStart)
	}

	rc.WeekStart = "sat"
	target, _ = rc.Target("w")
	if target.Schedule.WeekStart != time.Saturday {
		t.Fatalf("explicit week start = %v", target.Schedule.WeekStart)
	}
	rc.WeekStart = "someday"
	if _, err := rc.Target("w"); err == nil || !strings.Contains(err.Error(), "week_start") {
		t.Fatalf("unknown weekday: %v", err)
	}

	if _, err := (RolloverConfig{FilePattern: "a-%d.log", Interval: -1}).Target("x"); err == nil {
		t.Fatal("negative interval accepted")
	}
}

func TestRolloverGranularityGuard(t *testing.T) {
	tests := []struct {
		pattern, granularity string
		ok                   bool
	}{
		{"app-%d{yyyy-MM-dd-HH}.log", "hourly", true},
		{"app-%d{yyyy-MM-dd}.log", "day", true},
		// mm is minutes, so this rolls every minute, not monthly.
		{"app-%d{yyyy-mm}.log", "monthly", false},
		{"app-%d{yyyy-MM}.log", "fortnight", false},
	}
	for _, tt := range tests {
		_, err := RolloverConfig{FilePattern: tt.pattern, Granularity: tt.granularity, Timezone: "UTC"}.Target("g")
		if (err == nil) != tt.ok {
			t.Errorf("%s as %s: err = %v", tt.pattern, tt.granularity, err)
		}
		if err != nil && !strings.Contains(err.Error(), "granularity") {
			t.Errorf("%s as %s: error lacks field name: %v", tt.pattern, tt.granularity, err)
		}
	}
}

func TestStorageConfig(t *testing.T) {
	sc := &StorageConfig{Driver: " file ", Path: " ./s ", BusyTimeout: "3s"}
	got, err := sc.Storage()
	if err != nil {
		t.Fatal(err)
	}
	if got.Driver != "file" || got.Path != "./s" || got.BusyTimeout != 3*time.Second {
		t.Fatalf("storage = %+v", got)
	}
	sc.BusyTimeout = ""
	if got, _ := sc.Storage(); got.BusyTimeout != time.Second {
		t.Fatalf("default busy timeout = %v", got.BusyTimeout)
	}
	sc.BusyTimeout = "1500"
	if got, _ := sc.Storage(); got.BusyTimeout != 1500*time.Millisecond {
		t.Fatalf("millisecond busy timeout = %v", got.BusyTimeout)
	}
	var nilSC *StorageConfig
	if got, err := nilSC.Storage(); err != nil || got.Driver != "" {
		t.Fatalf("nil storage = %+v, %v", got, err)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	oldCfg := &Config{
		Logging: LoggingConfig{Level: "info"},
		Layouts: map[string]LayoutConfig{"a": {Pattern: "%m"}, "b": {Pattern: "%p"}},
		Rollovers: map[string]RolloverConfig{
			"r": {FilePattern: "x-%d.log"},
		},
	}
	newCfg := &Config{
		Logging:    LoggingConfig{Level: "debug"},
		Properties: map[string]string{"secret": "s3cr3t"},
		Layouts:    map[string]LayoutConfig{"a": {Pattern: "%m%n"}, "c": {Pattern: "%c"}},
		Rollovers: map[string]RolloverConfig{
			"r": {FilePattern: "x-%d.log"},
		},
	}
	changed, attrs, entries := SummarizeConfigChange(oldCfg, newCfg)
	if strings.Join(changed, ",") != "layouts,logging,properties" {
		t.Fatalf("changed = %q", changed)
	}
	if strings.Join(entries, ",") != "layouts.a,layouts.b,layouts.c" {
		t.Fatalf("entries = %q", entries)
	}
	if len(attrs) == 0 {
		t.Fatal("no attrs")
	}

	if changed, _, _ := SummarizeConfigChange(newCfg, newCfg); len(changed) != 0 {
		t.Fatalf("identical configs changed %q", changed)
	}
	if changed, _, _ := SummarizeConfigChange(nil, &Config{Properties: map[string]string{}}); len(changed) != 0 {
		t.Fatalf("nil vs empty changed %q", changed)
	}
}

func TestHashIgnoresMapOrder(t *testing.T) {
	a := &Config{Properties: map[string]string{"a": "1", "b": "2", "c": "3"}}
	b := &Config{Properties: map[string]string{"c": "3", "b": "2", "a": "1"}}
	if Hash(a) != Hash(b) || Hash(a) == 0 {
		t.Fatalf("Hash = %x / %x", Hash(a), Hash(b))
	}
	if Hash(nil) != 0 {
		t.Fatal("Hash(nil) != 0")
	}
}

func TestManagerLoadAndWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patternlog.json")
	write := func(body string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(`{"layouts":{"main":{"pattern":"%m"}}}`)

	reg := pattern.NewDefaultRegistry()
	m := NewConfigManager(path)
	m.SetValidator(func(_ context.Context, cfg *Config) error { return Validate(cfg, reg) })
	cfg, err := m.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if m.Get() != cfg || m.Path() != path {
		t.Fatal("Load did not commit")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := m.Subscribe(1)
	defer m.Unsubscribe(updates)
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()
	select {
	case <-m.Watching():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never became ready")
	}

	// Invalid content is rejected; the next valid write gets through.
	write(`{"layouts":{"main":{"pattern":"%d{yyyy"}}}`)
	time.Sleep(500 * time.Millisecond)
	write(`{"layouts":{"main":{"pattern":"%p %m"}}}`)

	select {
	case got := <-updates:
		if got.Layouts["main"].Pattern != "%p %m" {
			t.Fatalf("published pattern = %q", got.Layouts["main"].Pattern)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload published")
	}
	if m.Get().Layouts["main"].Pattern != "%p %m" {
		t.Fatal("reload not committed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop")
	}
}

func TestWatchCatchesUpOnStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patternlog.json")
	if err := os.WriteFile(path, []byte(`{"layouts":{"main":{"pattern":"%m"}}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewConfigManager(path)
	if _, err := m.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Changed after Load but before any watch exists.
	if err := os.WriteFile(path, []byte(`{"layouts":{"main":{"pattern":"[%m]"}}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	updates := m.Subscribe(1)
	defer m.Unsubscribe(updates)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()

	select {
	case got := <-updates:
		if got.Layouts["main"].Pattern != "[%m]" {
			t.Fatalf("published pattern = %q", got.Layouts["main"].Pattern)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("write made before Watch was never published")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	if err := os.WriteFile(path, []byte(`{"rollovers":{"r":{"file_pattern":"x.log"}}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewConfigManager(path)
	m.SetValidator(func(_ context.Context, cfg *Config) error { return Validate(cfg, pattern.NewDefaultRegistry()) })
	if _, err := m.Load(context.Background()); err == nil {
		t.Fatal("Load accepted a rollover without a date")
	}
	if m.Get() != nil {
		t.Fatal("rejected config committed")
	}
}

func TestParseDurationField(t *testing.T) {
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty = %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatal("negative duration accepted")
	}
	if d, err := ParseDurationOrDefault("x", "0s", time.Second); err != nil || d != time.Second {
		t.Fatalf("default = %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", "250"); err != nil || d != 250*time.Millisecond {
		t.Fatalf("bare number = %v, %v", d, err)
	}
	if _, err := ParseDurationOrDefault("x", "later", time.Second); err == nil {
		t.Fatal("garbage accepted")
	}

	var cfg Config
	if d, err := cfg.WatchDebounce(); err != nil || d != reloadDebounce {
		t.Fatalf("default debounce = %v, %v", d, err)
	}
	cfg.Watch.Debounce = "50ms"
	if d, err := cfg.WatchDebounce(); err != nil || d != 50*time.Millisecond {
		t.Fatalf("debounce = %v, %v", d, err)
	}
	cfg.Watch.Debounce = "1ms"
	if _, err := cfg.WatchDebounce(); err == nil {
		t.Fatal("1ms debounce accepted")
	}
}
