package pattern

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Spec is what a Factory receives for one specifier occurrence.
type Spec struct {
	Name    string
	Options []string
	Blocks  []string

	compile func(pattern string) (*Pipeline, error)
}

// Option returns the i-th option or "".
func (s Spec) Option(i int) string {
	if i < 0 || i >= len(s.Options) {
		return ""
	}
	return s.Options[i]
}

// Block returns the raw content of the i-th brace block or "".
func (s Spec) Block(i int) string {
	if i < 0 || i >= len(s.Blocks) {
		return ""
	}
	return s.Blocks[i]
}

// Compile compiles a nested pattern against the same registry.
func (s Spec) Compile(pattern string) (*Pipeline, error) {
	if s.compile == nil {
		return nil, fmt.Errorf("pattern: %%%s cannot compile nested patterns here", s.Name)
	}
	return s.compile(pattern)
}

// Factory builds a converter for one specifier. It runs once per compile,
// never per record.
type Factory func(spec Spec) (Converter, error)

// Registry maps specifier names to factories. It is filled by explicit
// Register calls at startup and read concurrently afterwards.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// NewDefaultRegistry returns a registry holding the built-in converters.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// Register binds f to every name. Names must be ASCII letters and unused.
func (r *Registry) Register(f Factory, names ...string) error {
	if f == nil {
		return fmt.Errorf("pattern: nil factory for %v", names)
	}
	if len(names) == 0 {
		return fmt.Errorf("pattern: factory registered without a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		if name == "" || strings.IndexFunc(name, func(c rune) bool { return c > 0x7f || !isLetter(byte(c)) }) >= 0 {
			return fmt.Errorf("pattern: invalid converter name %q", name)
		}
		if _, dup := r.factories[name]; dup {
			return fmt.Errorf("pattern: converter %q already registered", name)
		}
	}
	for _, name := range names {
		r.factories[name] = f
	}
	return nil
}

func (r *Registry) MustRegister(f Factory, names ...string) {
	if err := r.Register(f, names...); err != nil {
		panic(err)
	}
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	return f, ok
}

// Names lists every registered name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
