package pattern

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RegisterBuiltins registers the stock converters on r.
func RegisterBuiltins(r *Registry) {
	r.MustRegister(newDateConverter, "d", "date")
	r.MustRegister(newLevelConverter, "p", "level")
	r.MustRegister(newLoggerConverter, "c", "logger")
	r.MustRegister(newMessageConverter, "m", "msg", "message")
	r.MustRegister(newLineSeparator, "n")
	r.MustRegister(newThreadConverter, "t", "thread")
	r.MustRegister(newContextConverter, "X", "mdc", "MDC")
	r.MustRegister(newStackConverter, "x", "NDC")
	r.MustRegister(newErrorConverter, "ex", "throwable", "exception")
	r.MustRegister(newUUIDConverter, "u", "uuid")
	r.MustRegister(newSequenceConverter, "sn", "sequenceNumber")
	r.MustRegister(newRelativeConverter, "r", "relative")
	r.MustRegister(newPidConverter, "pid")
	r.MustRegister(newReplaceConverter, "replace")
}

// ---- level ----

var allLevels = []zerolog.Level{
	zerolog.TraceLevel, zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel,
	zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel,
}

type levelConverter struct {
	labels map[zerolog.Level]string
}

// newLevelConverter accepts length=N, lowerCase=true and LEVEL=label options,
// e.g. %p{WARN=W, ERROR=E} or %level{length=1}.
func newLevelConverter(spec Spec) (Converter, error) {
	length, lower := 0, false
	custom := map[string]string{}
	for _, opt := range spec.Options {
		if opt == "" {
			continue
		}
		k, v, ok := strings.Cut(opt, "=")
		if !ok {
			return nil, fmt.Errorf("level option %q: want key=value", opt)
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		switch strings.ToLower(k) {
		case "length":
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("level length %q: want a positive integer", v)
			}
			length = n
		case "lowercase":
			lower = strings.EqualFold(v, "true")
		default:
			custom[strings.ToUpper(k)] = v
		}
	}

	labels := make(map[zerolog.Level]string, len(allLevels))
	for _, lvl := range allLevels {
		name := strings.ToUpper(lvl.String())
		label, ok := custom[name]
		if !ok {
			label = name
			if length > 0 && len(label) > length {
				label = label[:length]
			}
			if lower {
				label = strings.ToLower(label)
			}
		}
		labels[lvl] = label
	}
	return &levelConverter{labels: labels}, nil
}

func (c *levelConverter) AppendRecord(dst []byte, rec *Record) ([]byte, error) {
	if label, ok := c.labels[rec.Level]; ok {
		return append(dst, label...), nil
	}
	return append(dst, strings.ToUpper(rec.Level.String())...), nil
}

// ---- logger ----

type loggerConverter struct {
	precision int
}

// newLoggerConverter takes an optional precision: N keeps the rightmost N
// dot-separated segments, -N drops the leftmost N.
func newLoggerConverter(spec Spec) (Converter, error) {
	c := &loggerConverter{}
	if opt := spec.Option(0); opt != "" {
		n, err := strconv.Atoi(opt)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("logger precision %q: want a non-zero integer", opt)
		}
		c.precision = n
	}
	return c, nil
}

func (c *loggerConverter) AppendRecord(dst []byte, rec *Record) ([]byte, error) {
	name := rec.Logger
	switch {
	case c.precision > 0:
		cut := len(name)
		for k := 0; k < c.precision; k++ {
			i := strings.LastIndexByte(name[:cut], '.')
			if i < 0 {
				return append(dst, name...), nil
			}
			cut = i
		}
		name = name[cut+1:]
	case c.precision < 0:
		for k := 0; k < -c.precision; k++ {
			i := strings.IndexByte(name, '.')
			if i < 0 {
				break
			}
			name = name[i+1:]
		}
	}
	return append(dst, name...), nil
}

// ---- message / thread / newline ----

type messageConverter struct{}

func newMessageConverter(Spec) (Converter, error) { return messageConverter{}, nil }

func (messageConverter) AppendRecord(dst []byte, rec *Record) ([]byte, error) {
	return append(dst, rec.Message...), nil
}

// A long message keeps its beginning.
func (messageConverter) TruncateSide() TruncateSide { return TruncateTrailing }

func newThreadConverter(Spec) (Converter, error) {
	return ConverterFunc(func(dst []byte, rec *Record) ([]byte, error) {
		return append(dst, rec.Thread...), nil
	}), nil
}

func newLineSeparator(Spec) (Converter, error) { return literal("\n"), nil }

// ---- context (MDC) ----

type contextConverter struct {
	keys []string
}

// newContextConverter renders one key's value, several keys as
// {a=1, b=2}, or the whole context as a JSON object when no key is given.
func newContextConverter(spec Spec) (Converter, error) {
	c := &contextConverter{}
	for _, k := range spec.Options {
		if k != "" {
			c.keys = append(c.keys, k)
		}
	}
	return c, nil
}

func (c *contextConverter) AppendRecord(dst []byte, rec *Record) ([]byte, error) {
	switch len(c.keys) {
	case 0:
		if len(rec.Context) == 0 {
			return append(dst, "{}"...), nil
		}
		b, err := json.Marshal(rec.Context)
		if err != nil {
			return dst, err
		}
		return append(dst, b...), nil
	case 1:
		return append(dst, rec.Context[c.keys[0]]...), nil
	}

	dst = append(dst, '{')
	first := true
	for _, k := range c.keys {
		v, ok := rec.Context[k]
		if !ok {
			continue
		}
		if !first {
			dst = append(dst, ", "...)
		}
		first = false
		dst = append(dst, k...)
		dst = append(dst, '=')
		dst = append(dst, v...)
	}
	return append(dst, '}'), nil
}

// ---- stack (NDC) ----

type stackConverter struct{}

func newStackConverter(Spec) (Converter, error) { return stackConverter{}, nil }

// AppendRecord writes the stack entries separated by spaces; an empty stack
// renders nothing.
func (stackConverter) AppendRecord(dst []byte, rec *Record) ([]byte, error) {
	for i, s := range rec.Stack {
		if i > 0 {
			dst = append(dst, ' ')
		}
		dst = append(dst, s...)
	}
	return dst, nil
}

// ---- error ----

type errorConverter struct {
	mode  string // "full", "short", "none" or "lines"
	lines int
}

func newErrorConverter(spec Spec) (Converter, error) {
	c := &errorConverter{mode: "full"}
	switch opt := strings.ToLower(spec.Option(0)); opt {
	case "", "full":
	case "none", "short":
		c.mode = opt
	default:
		n, err := strconv.Atoi(opt)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("error option %q: want full, short, none or a line count", opt)
		}
		c.mode, c.lines = "lines", n
	}
	return c, nil
}

func (c *errorConverter) AppendRecord(dst []byte, rec *Record) ([]byte, error) {
	if rec.Err == nil || c.mode == "none" {
		return dst, nil
	}
	var text string
	switch c.mode {
	case "short":
		text, _, _ = strings.Cut(rec.Err.Error(), "\n")
	case "lines":
		lines := strings.SplitN(fmt.Sprintf("%+v", rec.Err), "\n", c.lines+1)
		if len(lines) > c.lines {
			lines = lines[:c.lines]
		}
		text = strings.Join(lines, "\n")
	default:
		text = fmt.Sprintf("%+v", rec.Err)
	}
	if n := len(dst); n > 0 && !isSpace(dst[n-1]) {
		dst = append(dst, ' ')
	}
	return append(dst, text...), nil
}

// %ex{none} still counts, so it suppresses the implicit error field.
func (c *errorConverter) RendersError() bool { return true }

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// ---- uuid ----

func newUUIDConverter(spec Spec) (Converter, error) {
	gen := uuid.NewRandom
	switch strings.ToUpper(spec.Option(0)) {
	case "", "RANDOM":
	case "TIME":
		gen = uuid.NewUUID
	default:
		return nil, fmt.Errorf("uuid type %q: want RANDOM or TIME", spec.Option(0))
	}
	return ConverterFunc(func(dst []byte, _ *Record) ([]byte, error) {
		id, err := gen()
		if err != nil {
			return dst, err
		}
		return append(dst, id.String()...), nil
	}), nil
}

// ---- sequence / relative / pid ----

func newSequenceConverter(Spec) (Converter, error) {
	var seq atomic.Uint64
	return ConverterFunc(func(dst []byte, _ *Record) ([]byte, error) {
		return strconv.AppendUint(dst, seq.Add(1), 10), nil
	}), nil
}

// newRelativeConverter renders milliseconds between compile time and the
// record.
func newRelativeConverter(Spec) (Converter, error) {
	start := time.Now()
	return ConverterFunc(func(dst []byte, rec *Record) ([]byte, error) {
		t := rec.Time
		if t.IsZero() {
			t = time.Now()
		}
		return strconv.AppendInt(dst, t.Sub(start).Milliseconds(), 10), nil
	}), nil
}

func newPidConverter(Spec) (Converter, error) {
	return literal(strconv.Itoa(os.Getpid())), nil
}

// ---- replace ----

type replaceConverter struct {
	inner *Pipeline
	repl  *Replacement
}

// newReplaceConverter handles %replace{pattern}{regex}{substitution}.
func newReplaceConverter(spec Spec) (Converter, error) {
	if len(spec.Blocks) < 2 {
		return nil, fmt.Errorf("replace wants {pattern}{regex}{substitution}")
	}
	inner, err := spec.Compile(spec.Block(0))
	if err != nil {
		return nil, err
	}
	repl, err := NewReplacement(spec.Block(1), spec.Block(2))
	if err != nil {
		return nil, err
	}
	return &replaceConverter{inner: inner, repl: repl}, nil
}

func (c *replaceConverter) AppendRecord(dst []byte, rec *Record) ([]byte, error) {
	return append(dst, c.repl.Apply(c.inner.Format(rec))...), nil
}

func (c *replaceConverter) RendersError() bool { return c.inner.RendersError() }
