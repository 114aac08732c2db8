package pattern

import (
	"fmt"
	"sync"
)

// Pipeline is a compiled pattern: an ordered, immutable list of formatters.
// A Pipeline is safe for concurrent use; every call renders into its own
// buffer.
type Pipeline struct {
	pattern    string
	formatters []Formatter
	replace    *Replacement
	reporter   Reporter
}

type options struct {
	replace  *Replacement
	reporter Reporter
}

// Option configures Compile.
type Option func(*options)

// WithReplacement applies r once to every fully rendered record.
func WithReplacement(r *Replacement) Option { return func(o *options) { o.replace = r } }

// WithReporter routes converter failures to r.
func WithReporter(r Reporter) Option { return func(o *options) { o.reporter = r } }

// Compile tokenizes pattern against reg and builds one formatter per token.
// It never returns a partial pipeline: any syntax or factory error aborts.
func Compile(pattern string, reg *Registry, opts ...Option) (*Pipeline, error) {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	toks, err := Tokenize(pattern, reg)
	if err != nil {
		return nil, err
	}

	nested := func(sub string) (*Pipeline, error) {
		return Compile(sub, reg, WithReporter(o.reporter))
	}

	formatters := make([]Formatter, 0, len(toks))
	for _, tok := range toks {
		if tok.Kind == Literal {
			formatters = append(formatters, NewFormatter("literal", literal(tok.Text), FieldSpec{}))
			continue
		}
		factory, _ := reg.Lookup(tok.Name)
		conv, err := factory(Spec{Name: tok.Name, Options: tok.Options, Blocks: tok.Blocks, compile: nested})
		if err != nil {
			return nil, fmt.Errorf("pattern: %%%s at offset %d: %w", tok.Name, tok.Offset, err)
		}
		formatters = append(formatters, NewFormatter(tok.Name, conv, tok.Field()))
	}

	return &Pipeline{
		pattern:    pattern,
		formatters: formatters,
		replace:    o.replace,
		reporter:   o.reporter,
	}, nil
}

// MustCompile is Compile for patterns known to be valid.
func MustCompile(pattern string, reg *Registry, opts ...Option) *Pipeline {
	p, err := Compile(pattern, reg, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pipeline) Pattern() string { return p.pattern }
func (p *Pipeline) Len() int        { return len(p.formatters) }

// Formatters returns a copy of the compiled formatters.
func (p *Pipeline) Formatters() []Formatter {
	return append([]Formatter(nil), p.formatters...)
}

// RendersError reports whether any formatter prints Record.Err.
func (p *Pipeline) RendersError() bool {
	for _, f := range p.formatters {
		if er, ok := f.conv.(ErrorRenderer); ok && er.RendersError() {
			return true
		}
	}
	return false
}

// Append returns a new pipeline with f added after the existing formatters.
func (p *Pipeline) Append(f Formatter) *Pipeline {
	cp := *p
	cp.formatters = append(append(make([]Formatter, 0, len(p.formatters)+1), p.formatters...), f)
	return &cp
}

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 256)
		return &b
	},
}

// maxPooledBuffer keeps one huge record from pinning memory in the pool.
const maxPooledBuffer = 64 << 10

// Format renders rec to a string. It never fails.
func (p *Pipeline) Format(rec *Record) string {
	bp := bufPool.Get().(*[]byte)
	b := p.AppendFormat((*bp)[:0], rec)
	s := string(b)
	if cap(b) <= maxPooledBuffer {
		*bp = b[:0]
		bufPool.Put(bp)
	}
	return s
}

// AppendFormat renders rec onto dst.
func (p *Pipeline) AppendFormat(dst []byte, rec *Record) []byte {
	if rec == nil {
		rec = &Record{}
	}
	start := len(dst)
	for _, f := range p.formatters {
		var err error
		dst, err = f.appendTo(dst, rec)
		if err != nil && p.reporter != nil {
			p.reporter.ConverterFailed(f.name, err)
		}
	}
	if p.replace != nil {
		out := p.replace.Apply(string(dst[start:]))
		dst = append(dst[:start], out...)
	}
	return dst
}

func (p *Pipeline) String() string { return p.pattern }

type literal string

func (l literal) AppendRecord(dst []byte, _ *Record) ([]byte, error) { return append(dst, l...), nil }
