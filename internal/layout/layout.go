package layout

import (
	"fmt"
	"os"
	"strings"

	"patternlog/internal/pattern"
)

const (
	// DefaultConversionPattern renders the message and a newline.
	DefaultConversionPattern = "%m%n"
	// SimpleConversionPattern is the classic date, thread, level, logger layout.
	SimpleConversionPattern = "%d [%t] %p %c - %m%n"
	// TTCCConversionPattern is SimpleConversionPattern with relative time
	// and the diagnostic stack.
	TTCCConversionPattern = "%r [%t] %p %c %x - %m%n"
)

// Replace is a regex substitution over every rendered record.
type Replace struct {
	Regex       string
	Replacement string
}

// Config describes one layout.
type Config struct {
	Pattern string
	Replace *Replace
	// AlwaysWriteErrors appends the error field when Pattern prints none.
	// Nil means true.
	AlwaysWriteErrors *bool
	// DisableEscapes keeps \n, \t and friends in Pattern literal.
	DisableEscapes bool
	Header         string
	Footer         string
}

func (c Config) alwaysWriteErrors() bool { return c.AlwaysWriteErrors == nil || *c.AlwaysWriteErrors }

// Layout renders records with a compiled pattern plus optional header and
// footer text. It is immutable and safe for concurrent use.
type Layout struct {
	name     string
	pattern  string
	pipeline *pattern.Pipeline
	header   string
	footer   string
}

// New compiles cfg against reg. props feeds ${name} lookups in the header
// and footer; ${env:NAME} reads the environment.
func New(name string, cfg Config, reg *pattern.Registry, props map[string]string, opts ...pattern.Option) (*Layout, error) {
	src := cfg.Pattern
	if strings.TrimSpace(src) == "" {
		src = DefaultConversionPattern
	}
	if !cfg.DisableEscapes {
		src = ConvertEscapes(src)
	}

	if cfg.Replace != nil && cfg.Replace.Regex != "" {
		repl, err := pattern.NewReplacement(cfg.Replace.Regex, cfg.Replace.Replacement)
		if err != nil {
			return nil, fmt.Errorf("layout %s: %w", name, err)
		}
		opts = append(opts, pattern.WithReplacement(repl))
	}

	pl, err := pattern.Compile(src, reg, opts...)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", name, err)
	}
	if cfg.alwaysWriteErrors() && !pl.RendersError() && reg.Has("ex") {
		if ex, err := pattern.Compile("%ex", reg, opts...); err == nil {
			pl = pl.Append(ex.Formatters()[0])
		}
	}

	return &Layout{
		name:     name,
		pattern:  src,
		pipeline: pl,
		header:   Substitute(cfg.Header, props),
		footer:   Substitute(cfg.Footer, props),
	}, nil
}

func (l *Layout) Name() string                { return l.name }
func (l *Layout) ConversionPattern() string   { return l.pattern }
func (l *Layout) Pipeline() *pattern.Pipeline { return l.pipeline }

// Format renders rec. It never fails.
func (l *Layout) Format(rec *pattern.Record) string { return l.pipeline.Format(rec) }

// Encode appends the rendered record to dst.
func (l *Layout) Encode(dst []byte, rec *pattern.Record) []byte {
	return l.pipeline.AppendFormat(dst, rec)
}

// Header is written once when an output opens; nil if unset.
func (l *Layout) Header() []byte {
	if l.header == "" {
		return nil
	}
	return []byte(l.header)
}

// Footer is written once when an output closes; nil if unset.
func (l *Layout) Footer() []byte {
	if l.footer == "" {
		return nil
	}
	return []byte(l.footer)
}

// ContentFormat describes the output for collaborators that negotiate
// formats.
func (l *Layout) ContentFormat() map[string]string {
	return map[string]string{
		"structured": "false",
		"formatType": "conversion",
		"format":     l.pattern,
	}
}

func (l *Layout) String() string { return l.pattern }

// ConvertEscapes turns \n, \r, \t, \f and \\ into the characters they name.
// Other backslashes are kept.
func ConvertEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'f':
			b.WriteByte('\f')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(c)
			continue
		}
		i++
	}
	return b.String()
}

// Substitute expands ${name}, ${name:-default} and ${env:NAME} in s.
// Unresolved references stay as written.
func Substitute(s string, props map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	var b strings.Builder
	for {
		i := strings.Index(s, "${")
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		j := strings.IndexByte(s[i+2:], '}')
		if j < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		ref := s[i+2 : i+2+j]
		if v, ok := lookup(ref, props); ok {
			b.WriteString(v)
		} else {
			b.WriteString(s[i : i+3+j])
		}
		s = s[i+3+j:]
	}
}

func lookup(ref string, props map[string]string) (string, bool) {
	key, def, hasDef := strings.Cut(ref, ":-")
	var (
		v  string
		ok bool
	)
	if env, isEnv := strings.CutPrefix(key, "env:"); isEnv {
		v, ok = os.LookupEnv(env)
	} else {
		v, ok = props[key]
	}
	if !ok && hasDef {
		return def, true
	}
	return v, ok
}
