package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"patternlog/internal/config"
	"patternlog/internal/eventbus"
	"patternlog/internal/layout"
	"patternlog/internal/pattern"
	"patternlog/internal/rollover"
	"patternlog/internal/runtime/supervisor"
	"patternlog/internal/storage"
	logx "patternlog/pkg/logx"
)

// ErrUnknownLayout is returned when a render names a layout the current
// configuration does not define.
var ErrUnknownLayout = errors.New("unknown layout")

// ReloadHook observes configuration reloads; err is nil on success.
type ReloadHook struct {
	Begin func()
	End   func(err error)
}

type Option func(*App)

// WithReloadHook installs h, e.g. to report reloads to a service manager.
func WithReloadHook(h ReloadHook) Option { return func(a *App) { a.hook = h } }

// WithRegistry replaces the built-in converter registry.
func WithRegistry(reg *pattern.Registry) Option { return func(a *App) { a.reg = reg } }

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log      logx.Logger
	logs     *logx.Service
	bus      eventbus.Bus
	store    storage.Store
	reg      *pattern.Registry
	reporter *pattern.LogReporter
	trigger  *rollover.Trigger

	rt   atomic.Pointer[Runtime]
	hook ReloadHook
}

func New(cfgPath string, opts ...Option) (*App, error) {
	a := &App{}
	for _, o := range opts {
		o(a)
	}
	if a.reg == nil {
		a.reg = pattern.NewDefaultRegistry()
	}

	a.cfgm = config.NewConfigManager(cfgPath)
	a.cfgm.SetValidator(a.validate)
	cfg, err := a.cfgm.Load(context.Background())
	if err != nil {
		return nil, err
	}

	// The console writer reads the live runtime, so a reload can switch the
	// process log to another layout without touching logx.
	console := layout.NewDynamicZerologWriter(logx.Stderr(), func() *layout.Layout {
		return a.rt.Load().ConsoleLayout()
	})
	console.Fallback = logx.ConsoleWriter(logx.Stderr())
	logCfg := mapLogConfig(cfg)
	logCfg.ConsoleOut = console
	logSvc, log := logx.New(logCfg)
	a.logs = logSvc
	a.log = log.With(logx.String("comp", "app"))
	a.cfgm.SetLogger(log.With(logx.String("comp", "config")))

	a.bus = eventbus.New()

	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		a.store = st
		a.log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	a.reporter = pattern.NewLogReporter(log.With(logx.String("comp", "render")), reporterRate(cfg))
	rt, err := BuildRuntime(cfg, a.reg, reportersFor(a.reporter, a.bus))
	if err != nil {
		a.closeStore()
		return nil, err
	}
	a.rt.Store(rt)

	a.trigger = rollover.NewTrigger(log, a.bus, a.store, time.Local)
	return a, nil
}

func (a *App) validate(_ context.Context, cfg *config.Config) error {
	if err := config.Validate(cfg, a.reg); err != nil {
		return err
	}
	_, _, err := mapStorageConfig(cfg)
	return err
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func reporterRate(cfg *config.Config) int {
	if cfg.Reporter.RatePerSec > 0 {
		return cfg.Reporter.RatePerSec
	}
	return 5
}

func (a *App) Logger() logx.Logger            { return a.log }
func (a *App) Bus() eventbus.Bus              { return a.bus }
func (a *App) Trigger() *rollover.Trigger     { return a.trigger }
func (a *App) Runtime() *Runtime              { return a.rt.Load() }
func (a *App) Reporter() *pattern.LogReporter { return a.reporter }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Render formats rec with the named layout of the current configuration.
func (a *App) Render(layoutName string, rec *pattern.Record) (string, error) {
	l, ok := a.rt.Load().Layout(layoutName)
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownLayout, layoutName)
	}
	return l.Format(rec), nil
}

// RenderTarget is the append path of a rotating output: it rotates target
// when the record's instant reached the boundary, then renders rec with the
// target's layout. rotated reports whether this call rotated.
func (a *App) RenderTarget(target string, rec *pattern.Record) (out string, rotated bool, err error) {
	rt := a.rt.Load()
	if _, ok := rt.Target(target); !ok {
		return "", false, fmt.Errorf("unknown rollover target %q", target)
	}
	now := time.Now()
	if rec != nil && !rec.Time.IsZero() {
		now = rec.Time
	}
	rotated = a.trigger.Check(target, now)

	l, ok := rt.TargetLayout(target)
	if !ok {
		return "", rotated, fmt.Errorf("rollover target %q: %w", target, ErrUnknownLayout)
	}
	return l.Format(rec), rotated, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	rt := a.rt.Load()
	names := make([]string, 0, len(rt.targets))
	for name := range rt.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := a.trigger.Add(a.sup.Context(), rt.targets[name]); err != nil {
			return err
		}
	}
	a.trigger.Start()

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.logEvent(e)
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: apply only the latest config.
				for drained := false; !drained; {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						drained = true
					}
				}
				a.apply(c, newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})
	select {
	case <-a.cfgm.Watching():
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		a.log.Warn("config watcher not ready; continuing", logx.String("path", a.cfgm.Path()))
	}

	a.log.Info("app started",
		logx.Int("layouts", rt.layouts.Len()),
		logx.Int("rollovers", len(names)),
	)
	return nil
}

func (a *App) logEvent(e eventbus.Event) {
	switch p := e.Data.(type) {
	case eventbus.RolloverDue:
		a.log.Info("rollover due",
			logx.String("target", p.Target),
			logx.String("file", p.FileName),
			logx.Time("boundary", p.Boundary),
			logx.Time("next", p.Next),
			logx.Err(p.Err),
		)
	case eventbus.RenderFailed:
		a.log.Debug("render failed", logx.String("layout", p.Layout), logx.String("converter", p.Converter), logx.Err(p.Err))
	default:
		a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
	}
}

// apply swaps in the runtime compiled from newCfg. The config manager only
// publishes validated configs, so a build failure here means the registry
// changed underneath; the previous runtime stays.
func (a *App) apply(ctx context.Context, newCfg *config.Config) {
	if a.hook.Begin != nil {
		a.hook.Begin()
	}
	err := a.applyConfig(ctx, newCfg)
	if a.hook.End != nil {
		a.hook.End(err)
	}
}

func (a *App) applyConfig(ctx context.Context, newCfg *config.Config) error {
	old := a.rt.Load()
	sections, attrs, entries := config.SummarizeConfigChange(old.Config(), newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return nil
	}

	rt, err := BuildRuntime(newCfg, a.reg, reportersFor(a.reporter, a.bus))
	if err != nil {
		a.log.Warn("config reload failed; keeping previous", logx.Err(err))
		return err
	}
	a.rt.Store(rt)
	a.logs.Apply(mapLogConfig(newCfg))

	for _, s := range sections {
		if s == "storage" {
			a.log.Warn("storage config changed; restart required for changes to take effect")
		}
	}

	var errs []error
	for _, e := range entries {
		name, ok := strings.CutPrefix(e, "rollovers.")
		if !ok {
			continue
		}
		a.trigger.Remove(name)
		if t, ok := rt.Target(name); ok {
			if _, err := a.trigger.Add(ctx, t); err != nil {
				errs = append(errs, err)
			}
		}
	}

	summary := strings.Join(sections, ",")
	a.bus.Publish(eventbus.Event{
		Type: eventbus.TopicConfigReloaded,
		Data: eventbus.ConfigReloaded{Hash: fmt.Sprintf("%x", rt.Hash()), Summary: summary},
	})

	fields := append([]logx.Field{logx.String("changed", summary)}, attrs...)
	if len(entries) > 0 {
		fields = append(fields, logx.Strs("entries", entries))
	}
	a.log.Info("config reloaded", fields...)

	err = errors.Join(errs...)
	if err != nil {
		a.log.Warn("rollover re-registration failed", logx.Err(err))
	}
	return err
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		a.closeStore()
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sup.Cancel()

	a.step(ctx, "rollover", 2*time.Second, func(c context.Context) error { a.trigger.Stop(c); return nil })
	a.step(ctx, "supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	a.step(ctx, "storage", 1*time.Second, func(context.Context) error { return a.closeStore() })

	a.log.Info("stopped")
	if a.logs != nil {
		return a.logs.Close()
	}
	return nil
}

func (a *App) closeStore() error {
	if a.store == nil {
		return nil
	}
	st := a.store
	a.store = nil
	return st.Close()
}

// step runs one shutdown step bounded by max and the caller's deadline, so
// one component cannot stall the whole stop.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	if dl, ok := ctx.Deadline(); ok {
		max = min(max, time.Until(dl))
	}
	if max <= 0 {
		a.log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Duration("elapsed", time.Since(start)),
		)
	}
}
