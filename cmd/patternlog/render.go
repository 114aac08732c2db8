package main

import (
	"bufio"
	"bytes"
	"io"
	"time"

	"github.com/rs/zerolog"

	"patternlog/internal/layout"
	"patternlog/internal/pattern"
)

func runRender(c *renderCmd, in io.Reader, out io.Writer) error {
	cfg := layout.Config{Pattern: c.Pattern}
	if c.Replace != "" {
		cfg.Replace = &layout.Replace{Regex: c.Replace, Replacement: c.With}
	}
	l, err := layout.New("render", cfg, pattern.NewDefaultRegistry(), nil)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	defer w.Flush()
	return scanRecords(in, func(rec *pattern.Record) error {
		_, err := w.Write(l.Encode(nil, rec))
		return err
	})
}

// scanRecords turns each input line into a record.
func scanRecords(in io.Reader, fn func(*pattern.Record) error) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := fn(lineRecord(sc.Bytes())); err != nil {
			return err
		}
	}
	return sc.Err()
}

func lineRecord(line []byte) *pattern.Record {
	if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 && trimmed[0] == '{' {
		if rec, err := layout.DecodeZerolog(trimmed); err == nil {
			if rec.Time.IsZero() {
				rec.Time = time.Now()
			}
			return rec
		}
	}
	return &pattern.Record{
		Time:    time.Now(),
		Level:   zerolog.InfoLevel,
		Logger:  "stdin",
		Message: string(line),
		Thread:  "main",
	}
}
