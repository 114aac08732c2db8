package app

import (
	"fmt"
	"strings"

	"patternlog/internal/config"
	"patternlog/internal/layout"
	"patternlog/internal/pattern"
	"patternlog/internal/rollover"
)

// Runtime is everything compiled from one configuration snapshot. It is
// immutable; a reload builds a new one and swaps it in whole.
type Runtime struct {
	cfg     *config.Config
	hash    uint64
	layouts *layout.Cache
	targets map[string]rollover.Target
}

// BuildRuntime compiles cfg. reporters may be nil.
func BuildRuntime(cfg *config.Config, reg *pattern.Registry, reporters layout.ReporterFor) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	layouts, err := layout.NewCache(cfg.LayoutConfigs(), reg, cfg.Properties, reporters)
	if err != nil {
		return nil, err
	}
	targets := make(map[string]rollover.Target, len(cfg.Rollovers))
	for name, rc := range cfg.Rollovers {
		t, err := rc.Target(name)
		if err != nil {
			return nil, fmt.Errorf("rollovers.%s: %w", name, err)
		}
		targets[name] = t
	}
	return &Runtime{cfg: cfg, hash: config.Hash(cfg), layouts: layouts, targets: targets}, nil
}

func (r *Runtime) Config() *config.Config { return r.cfg }
func (r *Runtime) Hash() uint64           { return r.hash }
func (r *Runtime) Layouts() *layout.Cache { return r.layouts }

// Layout looks up a compiled layout by name.
func (r *Runtime) Layout(name string) (*layout.Layout, bool) {
	if r == nil {
		return nil, false
	}
	return r.layouts.Get(name)
}

// ConsoleLayout returns the layout selected for process logs, if any.
func (r *Runtime) ConsoleLayout() *layout.Layout {
	if r == nil {
		return nil
	}
	name := strings.TrimSpace(r.cfg.Logging.Layout)
	if name == "" {
		return nil
	}
	l, _ := r.layouts.Get(name)
	return l
}

// Target returns the rollover target of name.
func (r *Runtime) Target(name string) (rollover.Target, bool) {
	if r == nil {
		return rollover.Target{}, false
	}
	t, ok := r.targets[name]
	return t, ok
}

// TargetLayout returns the layout a rollover target renders with.
func (r *Runtime) TargetLayout(name string) (*layout.Layout, bool) {
	rc, ok := r.cfg.Rollovers[name]
	if !ok || rc.Layout == "" {
		return nil, false
	}
	return r.layouts.Get(rc.Layout)
}
