package pattern

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Record is the read-only input of a render call.
type Record struct {
	Time    time.Time
	Level   zerolog.Level
	Logger  string
	Message string
	Err     error
	Thread  string
	Context map[string]string
	// Stack is the nested diagnostic context, outermost entry first.
	Stack []string
}

// Converter appends the text it derives from rec to dst. Implementations
// must be safe for concurrent use.
type Converter interface {
	AppendRecord(dst []byte, rec *Record) ([]byte, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(dst []byte, rec *Record) ([]byte, error)

func (f ConverterFunc) AppendRecord(dst []byte, rec *Record) ([]byte, error) { return f(dst, rec) }

// TruncateSide says which end of a field is cut when it exceeds MaxWidth.
type TruncateSide int

const (
	// TruncateLeading drops leading runes and keeps the tail. Default.
	TruncateLeading TruncateSide = iota
	// TruncateTrailing drops trailing runes and keeps the head.
	TruncateTrailing
)

func (s TruncateSide) String() string {
	if s == TruncateTrailing {
		return "trailing"
	}
	return "leading"
}

// Truncator is implemented by converters that declare a truncation side.
type Truncator interface {
	TruncateSide() TruncateSide
}

// ErrorRenderer is implemented by converters that print Record.Err.
type ErrorRenderer interface {
	RendersError() bool
}

// FailureMarker replaces the output of a converter that failed.
const FailureMarker = "<?>"

// FieldSpec holds the optional width rules of a specifier.
type FieldSpec struct {
	MinWidth  int
	MaxWidth  int
	LeftAlign bool
}

// Formatter is one converter plus its field rules.
type Formatter struct {
	name  string
	conv  Converter
	field FieldSpec
	side  TruncateSide
}

func NewFormatter(name string, conv Converter, field FieldSpec) Formatter {
	f := Formatter{name: name, conv: conv, field: field}
	if t, ok := conv.(Truncator); ok {
		f.side = t.TruncateSide()
	}
	return f
}

func (f Formatter) Name() string               { return f.name }
func (f Formatter) Converter() Converter       { return f.conv }
func (f Formatter) Field() FieldSpec           { return f.field }
func (f Formatter) TruncateSide() TruncateSide { return f.side }

// appendTo converts and then applies width rules to the appended segment.
// A failing or panicking converter leaves FailureMarker in place of its
// output and returns the cause.
func (f Formatter) appendTo(dst []byte, rec *Record) (out []byte, err error) {
	start := len(dst)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			out = f.applyWidth(append(dst[:start], FailureMarker...), start)
		}
	}()

	out, err = f.conv.AppendRecord(dst, rec)
	if err != nil {
		out = append(dst[:start], FailureMarker...)
	}
	return f.applyWidth(out, start), err
}

func (f Formatter) applyWidth(buf []byte, start int) []byte {
	if f.field.MaxWidth > 0 {
		seg := buf[start:]
		if n := utf8.RuneCount(seg); n > f.field.MaxWidth {
			if f.side == TruncateTrailing {
				buf = buf[:start+runeOffset(seg, f.field.MaxWidth)]
			} else {
				buf = append(buf[:start], seg[runeOffset(seg, n-f.field.MaxWidth):]...)
			}
		}
	}
	if f.field.MinWidth > 0 {
		n := utf8.RuneCount(buf[start:])
		if pad := f.field.MinWidth - n; pad > 0 {
			if f.field.LeftAlign {
				buf = appendSpaces(buf, pad)
			} else {
				end := len(buf)
				buf = appendSpaces(buf, pad)
				copy(buf[start+pad:], buf[start:end])
				for k := start; k < start+pad; k++ {
					buf[k] = ' '
				}
			}
		}
	}
	return buf
}

// runeOffset returns the byte offset of the n-th rune of b.
func runeOffset(b []byte, n int) int {
	off := 0
	for ; n > 0 && off < len(b); n-- {
		_, size := utf8.DecodeRune(b[off:])
		off += size
	}
	return off
}

func appendSpaces(b []byte, n int) []byte {
	for ; n > 0; n-- {
		b = append(b, ' ')
	}
	return b
}
