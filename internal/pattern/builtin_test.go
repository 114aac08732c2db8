package pattern

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func render(t *testing.T, p string, rec *Record) string {
	t.Helper()
	return mustCompile(t, p, NewDefaultRegistry()).Format(rec)
}

func TestBuiltinConverters(t *testing.T) {
	rec := testRecord()
	rec.Level = zerolog.WarnLevel
	rec.Logger = "org.example.app.Service"
	rec.Err = fmt.Errorf("write failed\nsecond line\nthird line")

	tests := []struct {
		pattern string
		want    string
	}{
		{"%d", "2014-03-04 10:31:53,123"},
		{"%d{ISO8601}", "2014-03-04T10:31:53,123"},
		{"%date{HH:mm:ss,SSS}", "10:31:53,123"},
		{"%d{UNIX}", "1393929113"},
		{"%d{UNIX_MILLIS}", "1393929113123"},
		{"%d{HH:mm}{Asia/Tokyo}", "19:31"},
		{"%d{yyyy-ww}{UTC}{en-US}", "2014-10"},
		{"%d{W}{UTC}{en-US}", "2"},
		{"%d{W}{UTC}{sunday}", "2"},
		{"%d{W}{UTC}{Monday}", "1"},
		{"%d{yyyy-ww}", "2014-10"},
		{"%d{E u}", "Tue 2"},
		{"%p", "WARN"},
		{"%level{lowerCase=true}", "warn"},
		{"%p{length=1}", "W"},
		{"%p{WARN=Warning, ERROR=Oops}", "Warning"},
		{"%c", "org.example.app.Service"},
		{"%c{2}", "app.Service"},
		{"%c{-1}", "example.app.Service"},
		{"%c{9}", "org.example.app.Service"},
		{"%logger{-9}", "Service"},
		{"%m%n", "hello world\n"},
		{"%t", "main"},
		{"%X{user}", "bob"},
		{"%X{missing}", ""},
		{"%X{user,long}", "{user=bob, long=abcdefgh}"},
		{"%X{user,missing}", "{user=bob}"},
		{"%m%ex", "hello world write failed\nsecond line\nthird line"},
		{"%m %ex{short}", "hello world write failed"},
		{"%m%ex{2}", "hello world write failed\nsecond line"},
		{"%m%ex{none}", "hello world"},
		{"%m%n%throwable{short}", "hello world\nwrite failed"},
		{"%replace{%m}{\\s+}{_}", "hello_world"},
		{"%replace{%c{1}: %m}{o}{0}", "Service: hell0 w0rld"},
	}
	for _, tt := range tests {
		if got := render(t, tt.pattern, rec); got != tt.want {
			t.Fatalf("%q rendered %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestContextAsJSON(t *testing.T) {
	rec := &Record{Context: map[string]string{"b": "2", "a": "1"}}
	if got := render(t, "%X", rec); got != `{"a":"1","b":"2"}` {
		t.Fatalf("%%X rendered %q", got)
	}
	if got := render(t, "%MDC", &Record{}); got != "{}" {
		t.Fatalf("empty context rendered %q", got)
	}
}

func TestErrorConverterSkipsNilError(t *testing.T) {
	if got := render(t, "%m%ex", &Record{Message: "ok"}); got != "ok" {
		t.Fatalf("rendered %q", got)
	}
}

func TestUUIDConverter(t *testing.T) {
	for _, p := range []string{"%u", "%uuid{RANDOM}", "%uuid{TIME}"} {
		pl := mustCompile(t, p, NewDefaultRegistry())
		a, b := pl.Format(&Record{}), pl.Format(&Record{})
		if a == b {
			t.Fatalf("%q repeated %q", p, a)
		}
		if _, err := uuid.Parse(a); err != nil {
			t.Fatalf("%q rendered %q: %v", p, a, err)
		}
	}
	if _, err := Compile("%u{SOMETIMES}", NewDefaultRegistry()); err == nil {
		t.Fatal("unknown uuid type accepted")
	}
}

func TestSequenceAndPid(t *testing.T) {
	pl := mustCompile(t, "%sn:%pid", NewDefaultRegistry())
	pid := strconv.Itoa(os.Getpid())
	for i := 1; i <= 3; i++ {
		if got, want := pl.Format(&Record{}), strconv.Itoa(i)+":"+pid; got != want {
			t.Fatalf("Format = %q, want %q", got, want)
		}
	}
	// Each compiled pipeline counts on its own.
	if got := render(t, "%sequenceNumber", &Record{}); got != "1" {
		t.Fatalf("fresh sequence = %q", got)
	}
}

func TestRelativeConverter(t *testing.T) {
	pl := mustCompile(t, "%r", NewDefaultRegistry())
	got, err := strconv.ParseInt(pl.Format(&Record{Time: time.Now().Add(2 * time.Second)}), 10, 64)
	if err != nil {
		t.Fatal(err)
	}
	if got < 1900 || got > 2500 {
		t.Fatalf("relative = %d", got)
	}
}

func TestBuiltinOptionErrors(t *testing.T) {
	reg := NewDefaultRegistry()
	for _, p := range []string{
		"%p{length=0}",
		"%p{bogus}",
		"%c{0}",
		"%ex{-3}",
		"%d{HH}{Mars/Olympus}",
		"%replace{%m}",
		"%replace{%m}{(}{x}",
	} {
		_, err := Compile(p, reg)
		if err == nil {
			t.Fatalf("Compile(%q) succeeded", p)
		}
		var se *SyntaxError
		if errors.As(err, &se) {
			t.Fatalf("Compile(%q) = syntax error %v, want a converter error", p, err)
		}
		if !strings.Contains(err.Error(), "at offset 0") {
			t.Fatalf("Compile(%q) = %v", p, err)
		}
	}
}

func TestStackConverter(t *testing.T) {
	rec := testRecord()
	if got := render(t, "[%x]", rec); got != "[]" {
		t.Fatalf("empty stack = %q", got)
	}
	rec.Stack = []string{"outer", "inner"}
	if got := render(t, "%x|%NDC", rec); got != "outer inner|outer inner" {
		t.Fatalf("stack = %q", got)
	}
}
