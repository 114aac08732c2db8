package datefmt

import (
	"fmt"
	"strings"
	"time"
)

// Letters lists every calendar letter the grammar understands.
const Letters = "GyYMwWDdFEuaHkKhmsSzZX"

var named = map[string]string{
	"DEFAULT":       "yyyy-MM-dd HH:mm:ss,SSS",
	"ISO8601":       "yyyy-MM-dd'T'HH:mm:ss,SSS",
	"ISO8601_BASIC": "yyyyMMdd'T'HHmmss,SSS",
	"ABSOLUTE":      "HH:mm:ss,SSS",
	"DATE":          "dd MMM yyyy HH:mm:ss,SSS",
	"COMPACT":       "yyyyMMddHHmmssSSS",
}

// Named resolves a well-known layout name (DEFAULT, ISO8601, ...) to its
// letter pattern.
func Named(name string) (string, bool) {
	p, ok := named[strings.ToUpper(strings.TrimSpace(name))]
	return p, ok
}

// Layout is a parsed calendar-letter pattern. It holds no mutable state, so
// one Layout can format from any number of goroutines.
type Layout struct {
	src     string
	parts   []part
	letters string
}

type part struct {
	letter byte // 0 for literal text
	count  int
	lit    string
}

// Parse compiles a SimpleDateFormat-style letter pattern. Unquoted ASCII
// letters must be known calendar letters; other characters are literal;
// text in single quotes is literal and '' is a single quote.
func Parse(pattern string) (*Layout, error) {
	l := &Layout{src: pattern}
	var lit strings.Builder
	flush := func() {
		if lit.Len() == 0 {
			return
		}
		l.parts = append(l.parts, part{lit: lit.String()})
		lit.Reset()
	}

	for i := 0; i < len(pattern); {
		ch := pattern[i]
		switch {
		case ch == '\'':
			if i+1 < len(pattern) && pattern[i+1] == '\'' {
				lit.WriteByte('\'')
				i += 2
				continue
			}
			j := i + 1
			closed := false
			for j < len(pattern) {
				if pattern[j] == '\'' {
					if j+1 < len(pattern) && pattern[j+1] == '\'' {
						lit.WriteByte('\'')
						j += 2
						continue
					}
					closed = true
					break
				}
				lit.WriteByte(pattern[j])
				j++
			}
			if !closed {
				return nil, fmt.Errorf("datefmt: unterminated quote at offset %d in %q", i, pattern)
			}
			i = j + 1
		case isASCIILetter(ch):
			if strings.IndexByte(Letters, ch) < 0 {
				return nil, fmt.Errorf("datefmt: unsupported pattern letter %q at offset %d in %q", ch, i, pattern)
			}
			j := i
			for j < len(pattern) && pattern[j] == ch {
				j++
			}
			flush()
			l.parts = append(l.parts, part{letter: ch, count: j - i})
			if strings.IndexByte(l.letters, ch) < 0 {
				l.letters += string(ch)
			}
			i = j
		default:
			lit.WriteByte(ch)
			i++
		}
	}
	flush()
	return l, nil
}

// MustParse is Parse for package-level layouts known to be valid.
func MustParse(pattern string) *Layout {
	l, err := Parse(pattern)
	if err != nil {
		panic(err)
	}
	return l
}

func (l *Layout) String() string { return l.src }

// Letters returns the distinct calendar letters in order of first use.
func (l *Layout) Letters() string { return l.letters }

// Has reports whether the calendar letter occurs outside quoted text.
func (l *Layout) Has(letter byte) bool { return strings.IndexByte(l.letters, letter) >= 0 }

// Format renders t; see AppendFormat.
func (l *Layout) Format(t time.Time, weekStart time.Weekday) string {
	return string(l.AppendFormat(make([]byte, 0, len(l.src)+8), t, weekStart))
}

// AppendFormat renders t in t's own location. weekStart selects the first
// day of the week for the week fields (w, W, Y): Monday uses ISO-8601 rules
// (first week has at least four days), any other day uses a one-day minimum.
func (l *Layout) AppendFormat(dst []byte, t time.Time, weekStart time.Weekday) []byte {
	for _, p := range l.parts {
		if p.letter == 0 {
			dst = append(dst, p.lit...)
			continue
		}
		dst = appendField(dst, p.letter, p.count, t, weekStart)
	}
	return dst
}

func appendField(dst []byte, letter byte, count int, t time.Time, ws time.Weekday) []byte {
	switch letter {
	case 'G':
		if t.Year() <= 0 {
			return append(dst, "BC"...)
		}
		return append(dst, "AD"...)
	case 'y':
		if count == 2 {
			return appendInt(dst, t.Year()%100, 2)
		}
		return appendInt(dst, t.Year(), count)
	case 'Y':
		y, _ := weekOfYear(t, ws)
		if count == 2 {
			return appendInt(dst, y%100, 2)
		}
		return appendInt(dst, y, count)
	case 'M':
		switch {
		case count >= 4:
			return append(dst, t.Month().String()...)
		case count == 3:
			return append(dst, t.Month().String()[:3]...)
		default:
			return appendInt(dst, int(t.Month()), count)
		}
	case 'w':
		_, w := weekOfYear(t, ws)
		return appendInt(dst, w, count)
	case 'W':
		return appendInt(dst, weekOfMonth(t, ws), count)
	case 'D':
		return appendInt(dst, t.YearDay(), count)
	case 'd':
		return appendInt(dst, t.Day(), count)
	case 'F':
		return appendInt(dst, (t.Day()-1)/7+1, count)
	case 'E':
		if count >= 4 {
			return append(dst, t.Weekday().String()...)
		}
		return append(dst, t.Weekday().String()[:3]...)
	case 'u':
		u := int(t.Weekday())
		if u == 0 {
			u = 7
		}
		return appendInt(dst, u, count)
	case 'a':
		if t.Hour() < 12 {
			return append(dst, "AM"...)
		}
		return append(dst, "PM"...)
	case 'H':
		return appendInt(dst, t.Hour(), count)
	case 'k':
		h := t.Hour()
		if h == 0 {
			h = 24
		}
		return appendInt(dst, h, count)
	case 'K':
		return appendInt(dst, t.Hour()%12, count)
	case 'h':
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		return appendInt(dst, h, count)
	case 'm':
		return appendInt(dst, t.Minute(), count)
	case 's':
		return appendInt(dst, t.Second(), count)
	case 'S':
		return appendInt(dst, t.Nanosecond()/int(time.Millisecond), count)
	case 'z':
		name, _ := t.Zone()
		return append(dst, name...)
	case 'Z':
		return t.AppendFormat(dst, "-0700")
	case 'X':
		switch count {
		case 1:
			return t.AppendFormat(dst, "Z07")
		case 2:
			return t.AppendFormat(dst, "Z0700")
		default:
			return t.AppendFormat(dst, "Z07:00")
		}
	}
	return dst
}

func appendInt(dst []byte, v, width int) []byte {
	if v < 0 {
		dst = append(dst, '-')
		v = -v
	}
	var tmp [20]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	for n := len(tmp) - i; n < width; n++ {
		dst = append(dst, '0')
	}
	return append(dst, tmp[i:]...)
}

func isASCIILetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
