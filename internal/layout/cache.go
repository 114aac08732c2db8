package layout

import (
	"errors"
	"fmt"
	"sort"

	"patternlog/internal/pattern"
)

// Cache holds the compiled layouts of one configuration generation. It is
// built once and never mutated; a reload builds a new Cache.
type Cache struct {
	layouts map[string]*Layout
}

// ReporterFor returns the failure reporter of one named layout.
type ReporterFor func(layout string) pattern.Reporter

// NewCache compiles every entry of cfgs. All compile errors are returned
// together and no Cache is produced when any layout fails. reporters may be
// nil.
func NewCache(cfgs map[string]Config, reg *pattern.Registry, props map[string]string, reporters ReporterFor, opts ...pattern.Option) (*Cache, error) {
	c := &Cache{layouts: make(map[string]*Layout, len(cfgs))}
	var errs []error
	for _, name := range sortedKeys(cfgs) {
		lopts := opts
		if reporters != nil {
			if r := reporters(name); r != nil {
				lopts = append(append([]pattern.Option(nil), opts...), pattern.WithReporter(r))
			}
		}
		l, err := New(name, cfgs[name], reg, props, lopts...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.layouts[name] = l
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) Get(name string) (*Layout, bool) {
	if c == nil {
		return nil, false
	}
	l, ok := c.layouts[name]
	return l, ok
}

// MustGet is Get for names already checked by configuration validation.
func (c *Cache) MustGet(name string) *Layout {
	l, ok := c.Get(name)
	if !ok {
		panic(fmt.Sprintf("layout: unknown layout %q", name))
	}
	return l
}

func (c *Cache) Names() []string {
	if c == nil {
		return nil
	}
	return sortedKeys(c.layouts)
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.layouts)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
