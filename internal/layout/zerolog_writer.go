package layout

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"patternlog/internal/pattern"
	logx "patternlog/pkg/logx"
)

// ZerologWriter turns zerolog JSON lines into Records and writes them through
// a Layout. Plug it into logx.Config.ConsoleOut to give the process log a
// conversion pattern.
//
// Field mapping: time, level and message fill the matching Record fields,
// err becomes Err, comp (or component) becomes Logger, thread becomes
// Thread. Everything else, caller included, lands in Context.
type ZerologWriter struct {
	out    io.Writer
	mu     *sync.Mutex
	layout func() *Layout

	// Fallback receives the raw line while no layout is selected. Nil
	// writes the raw line to the output.
	Fallback io.Writer
}

// NewZerologWriter renders with a fixed layout.
func NewZerologWriter(out io.Writer, l *Layout) *ZerologWriter {
	return NewDynamicZerologWriter(out, func() *Layout { return l })
}

// NewDynamicZerologWriter looks up the layout on every write, so a config
// reload can swap it.
func NewDynamicZerologWriter(out io.Writer, current func() *Layout) *ZerologWriter {
	return &ZerologWriter{out: out, mu: &sync.Mutex{}, layout: current}
}

func (w *ZerologWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter.
func (w *ZerologWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	l := w.layout()
	if l == nil {
		dst := w.out
		if w.Fallback != nil {
			dst = w.Fallback
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		if _, err := dst.Write(p); err != nil {
			return 0, err
		}
		return len(p), nil
	}

	rec, err := DecodeZerolog(p)
	if err != nil {
		return 0, err
	}
	if rec.Level == zerolog.NoLevel {
		rec.Level = level
	}

	buf := l.Encode(make([]byte, 0, len(p)), rec)

	w.mu.Lock()
	_, err = w.out.Write(buf)
	w.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// DecodeZerolog parses one zerolog JSON line.
func DecodeZerolog(p []byte) (*pattern.Record, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		return nil, fmt.Errorf("decode log line: %w", err)
	}

	rec := &pattern.Record{Level: zerolog.NoLevel}
	for k, v := range raw {
		switch k {
		case zerolog.TimestampFieldName:
			rec.Time = parseTime(v)
		case zerolog.LevelFieldName:
			if s, ok := v.(string); ok {
				if lvl, err := zerolog.ParseLevel(s); err == nil {
					rec.Level = lvl
				}
			}
		case zerolog.MessageFieldName:
			rec.Message = stringOf(v)
		case zerolog.ErrorFieldName, "err", "error":
			if s := stringOf(v); s != "" {
				rec.Err = errors.New(s)
			}
		case "comp", "component":
			rec.Logger = stringOf(v)
		case "thread":
			rec.Thread = stringOf(v)
		case "ndc":
			rec.Stack = stackOf(v)
		default:
			if rec.Context == nil {
				rec.Context = make(map[string]string, len(raw))
			}
			rec.Context[k] = stringOf(v)
		}
	}
	return rec, nil
}

func parseTime(v any) time.Time {
	switch t := v.(type) {
	case string:
		if ts, err := time.Parse(logx.TimeFormat, t); err == nil {
			return ts
		}
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts
		}
	case float64:
		return time.Unix(int64(t), 0)
	}
	return time.Time{}
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// stackOf reads an "ndc" field: an array of entries or a single string.
func stackOf(v any) []string {
	switch x := v.(type) {
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			out = append(out, stringOf(e))
		}
		return out
	case nil:
		return nil
	default:
		return []string{stringOf(x)}
	}
}
