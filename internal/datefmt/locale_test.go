package datefmt

import (
	"testing"
	"time"
)

func TestFirstDayOfWeek(t *testing.T) {
	t.Parallel()
	tests := []struct {
		locale string
		want   time.Weekday
	}{
		{"en-US", time.Sunday},
		{"en_US", time.Sunday},
		{"fr-FR", time.Monday},
		{"de", time.Monday},
		{"ar-EG", time.Saturday},
		{"ja-JP", time.Sunday},
		{"", time.Monday},
		{"!!", time.Monday},
	}
	for _, tt := range tests {
		if got := FirstDayOfWeek(tt.locale); got != tt.want {
			t.Fatalf("FirstDayOfWeek(%q) = %v, want %v", tt.locale, got, tt.want)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()
	if d, ok := ParseWeekday("Sun"); !ok || d != time.Sunday {
		t.Fatalf("ParseWeekday(Sun) = %v, %v", d, ok)
	}
	if d, ok := ParseWeekday(" monday "); !ok || d != time.Monday {
		t.Fatalf("ParseWeekday(monday) = %v, %v", d, ok)
	}
	if _, ok := ParseWeekday("someday"); ok {
		t.Fatal("expected failure")
	}
}
