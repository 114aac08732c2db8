package rollover

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"patternlog/internal/datefmt"
	"patternlog/internal/pattern"
)

// ErrNoDatePattern is wrapped by ConfigurationError when a time-based
// rollover was requested for a naming pattern without a usable %d.
var ErrNoDatePattern = errors.New("no date pattern")

// ConfigurationError reports a naming pattern that cannot drive rotation.
type ConfigurationError struct {
	Pattern string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("rollover: %s in %q", e.Reason, e.Pattern)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// defaultFileDate is used for a bare %d in a file name.
var defaultFileDate = datefmt.MustParse("yyyy-MM-dd")

type nameSet map[string]bool

func (s nameSet) Has(name string) bool { return s[name] }

var namingSpecifiers = nameSet{"d": true, "date": true, "i": true, "index": true}

type segment struct {
	lit   string
	date  *datefmt.Layout
	loc   *time.Location
	index bool
	width int
}

// Pattern is a parsed file-naming pattern: literal text, one or more
// %d{layout}[{zone}] date specifiers and optional %i archive indexes.
type Pattern struct {
	src         string
	segments    []segment
	granularity Granularity
	hasIndex    bool
}

// ParsePattern parses a file-naming pattern. A pattern without a date is
// valid (size-only rotation) and reports a zero Granularity.
func ParsePattern(naming string) (*Pattern, error) {
	toks, err := pattern.Tokenize(naming, namingSpecifiers)
	if err != nil {
		return nil, &ConfigurationError{Pattern: naming, Reason: "invalid naming pattern", Err: err}
	}

	p := &Pattern{src: naming}
	for _, tok := range toks {
		switch {
		case tok.Kind == pattern.Literal:
			p.segments = append(p.segments, segment{lit: tok.Text})
		case tok.Name == "i" || tok.Name == "index":
			p.hasIndex = true
			p.segments = append(p.segments, segment{index: true, width: tok.MinWidth})
		default:
			seg, err := dateSegment(naming, tok)
			if err != nil {
				return nil, err
			}
			if g, ok := GranularityOf(seg.date.Letters()); ok && (p.granularity == 0 || g.Finer(p.granularity)) {
				p.granularity = g
			}
			p.segments = append(p.segments, seg)
		}
	}
	return p, nil
}

func dateSegment(naming string, tok pattern.Token) (segment, error) {
	seg := segment{date: defaultFileDate}
	if src := strings.TrimSpace(firstBlock(tok)); src != "" {
		if named, ok := datefmt.Named(src); ok {
			src = named
		}
		layout, err := datefmt.Parse(src)
		if err != nil {
			return segment{}, &ConfigurationError{Pattern: naming, Reason: fmt.Sprintf("date layout at offset %d", tok.Offset), Err: err}
		}
		seg.date = layout
	}
	if len(tok.Blocks) > 1 && strings.TrimSpace(tok.Blocks[1]) != "" {
		loc, err := time.LoadLocation(strings.TrimSpace(tok.Blocks[1]))
		if err != nil {
			return segment{}, &ConfigurationError{Pattern: naming, Reason: "date zone", Err: err}
		}
		seg.loc = loc
	}
	return seg, nil
}

func firstBlock(tok pattern.Token) string {
	if len(tok.Blocks) == 0 {
		return ""
	}
	return tok.Blocks[0]
}

// Analyze returns the rollover granularity of a naming pattern. When the
// date layout mixes fields of different scope the finest one wins, so
// %d{yyyy-ww-dd} rolls daily.
func Analyze(naming string) (Granularity, error) {
	p, err := ParsePattern(naming)
	if err != nil {
		return 0, err
	}
	if p.granularity == 0 {
		return 0, &ConfigurationError{Pattern: naming, Reason: "time-based rollover needs a %d{...} with calendar fields", Err: ErrNoDatePattern}
	}
	return p.granularity, nil
}

func (p *Pattern) String() string           { return p.src }
func (p *Pattern) Granularity() Granularity { return p.granularity }
func (p *Pattern) HasIndex() bool           { return p.hasIndex }

// FormatFileName renders the pattern for instant t and archive index. Date
// segments with their own zone ignore loc; a nil loc keeps t's zone.
func (p *Pattern) FormatFileName(t time.Time, index int, loc *time.Location, weekStart time.Weekday) string {
	if loc != nil {
		t = t.In(loc)
	}
	var b []byte
	for _, seg := range p.segments {
		switch {
		case seg.date != nil:
			at := t
			if seg.loc != nil {
				at = t.In(seg.loc)
			}
			b = seg.date.AppendFormat(b, at, weekStart)
		case seg.index:
			s := strconv.Itoa(index)
			for k := len(s); k < seg.width; k++ {
				b = append(b, '0')
			}
			b = append(b, s...)
		default:
			b = append(b, seg.lit...)
		}
	}
	return string(b)
}
