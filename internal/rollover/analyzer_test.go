package rollover

import (
	"errors"
	"testing"
	"time"

	"patternlog/internal/pattern"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		naming string
		want   Granularity
	}{
		{"logs/app-%d{yyyy-MM}.log.gz", Month},
		{"logs/app-%d{yyyy-MM-W}.log.gz", Week},
		{"logs/app-%d{yyyy-MM-dd-HH}.log.gz", Hour},
		{"logs/app-%d{yyyy-MM-dd-HH-mm}.log.gz", Minute},
		{"logs/app-%d{yyyy-MM-dd-HH-mm-ss}.log.gz", Second},
		{"logs/app-%d{yyyy-MM-dd-HH-mm-ss.SSS}.log.gz", Millisecond},
		{"logs/app-%d{yyyy}.log", Year},
		{"logs/app-%d{yyyy-ww}.log", Week},
		{"logs/app-%d{yyyy-ww-dd}.log", Day},
		{"logs/app-%d{hh a}.log", Hour},
		{"logs/app-%d{yyyy-MM-dd'T'HH'h'}.log", Hour},
		{"logs/app-%d.log", Day},
		{"logs/app-%date{COMPACT}.log", Millisecond},
		{"logs/%d{yyyy-MM}/app-%d{yyyy-MM-dd}-%i.log.gz", Day},
		{"logs/app-%d{yyyy-MM-dd}{UTC}.log", Day},
	}
	for _, tt := range tests {
		got, err := Analyze(tt.naming)
		if err != nil {
			t.Fatalf("Analyze(%q): %v", tt.naming, err)
		}
		if got != tt.want {
			t.Fatalf("Analyze(%q) = %v, want %v", tt.naming, got, tt.want)
		}
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		naming string
		is     error
	}{
		{"logs/app.log", ErrNoDatePattern},
		{"logs/app-%i.log", ErrNoDatePattern},
		{"logs/app-%d{'static'}.log", ErrNoDatePattern},
		{"logs/app-%d{G a}.log", ErrNoDatePattern},
		{"logs/app-%d{yyyy.log", pattern.ErrUnterminatedOptionBrace},
		{"logs/app-%x.log", pattern.ErrUnknownSpecifier},
		{"logs/app-%d{qq}.log", nil},
		{"logs/app-%d{yyyy}{Nowhere/City}.log", nil},
	}
	for _, tt := range tests {
		_, err := Analyze(tt.naming)
		var ce *ConfigurationError
		if !errors.As(err, &ce) {
			t.Fatalf("Analyze(%q) err = %v, want *ConfigurationError", tt.naming, err)
		}
		if ce.Pattern != tt.naming {
			t.Fatalf("error pattern = %q", ce.Pattern)
		}
		if tt.is != nil && !errors.Is(err, tt.is) {
			t.Fatalf("Analyze(%q) = %v, want errors.Is %v", tt.naming, err, tt.is)
		}
	}
}

func TestParsePatternWithoutDate(t *testing.T) {
	p, err := ParsePattern("logs/app-%3i.log")
	if err != nil {
		t.Fatal(err)
	}
	if p.Granularity() != 0 || !p.HasIndex() {
		t.Fatalf("granularity = %v, index = %v", p.Granularity(), p.HasIndex())
	}
	if got := p.FormatFileName(time.Time{}, 7, nil, time.Monday); got != "logs/app-007.log" {
		t.Fatalf("FormatFileName = %q", got)
	}
}

func TestFormatFileName(t *testing.T) {
	ts := at(2014, 3, 4, 10, 31, 53, 123)
	tests := []struct {
		naming    string
		index     int
		loc       *time.Location
		weekStart time.Weekday
		want      string
	}{
		{"logs/app-%d{yyyy-MM-dd}-%i.log.gz", 3, nil, time.Monday, "logs/app-2014-03-04-3.log.gz"},
		{"logs/app-%d{yyyy-MM-dd}-%3i.log.gz", 7, nil, time.Monday, "logs/app-2014-03-04-007.log.gz"},
		{"logs/%d{yyyy-MM}/app-%d{HH-mm}.log", 0, nil, time.Monday, "logs/2014-03/app-10-31.log"},
		{"logs/app-%d{HH}.log", 0, time.FixedZone("X", 9*3600), time.Monday, "logs/app-19.log"},
		{"logs/app-%d{HH}{UTC}.log", 0, time.FixedZone("X", 9*3600), time.Monday, "logs/app-10.log"},
		{"logs/app-%d{yyyy-ww}.log", 0, nil, time.Monday, "logs/app-2014-10.log"},
		{"logs/app-%d.log", 0, nil, time.Monday, "logs/app-2014-03-04.log"},
		{"100%%-%d{yyyy}.log", 0, nil, time.Monday, "100%-2014.log"},
	}
	for _, tt := range tests {
		p, err := ParsePattern(tt.naming)
		if err != nil {
			t.Fatalf("ParsePattern(%q): %v", tt.naming, err)
		}
		if got := p.FormatFileName(ts, tt.index, tt.loc, tt.weekStart); got != tt.want {
			t.Fatalf("%q formatted %q, want %q", tt.naming, got, tt.want)
		}
	}
}

func TestGranularityOf(t *testing.T) {
	if g, ok := GranularityOf("yMdHms"); !ok || g != Second {
		t.Fatalf("GranularityOf = %v, %v", g, ok)
	}
	if _, ok := GranularityOf("aGzZX"); ok {
		t.Fatal("letters without cadence produced a granularity")
	}
}

func TestResolveWeekStart(t *testing.T) {
	if got := ResolveWeekStart("en-US", false); got != time.Monday {
		t.Fatalf("ISO default = %v", got)
	}
	if got := ResolveWeekStart("en-US", true); got != time.Sunday {
		t.Fatalf("en-US = %v", got)
	}
	if got := ResolveWeekStart("fr-FR", true); got != time.Monday {
		t.Fatalf("fr-FR = %v", got)
	}
}
