package utils

import (
	"testing"
	"time"
)

func TestParseDateSpellings(t *testing.T) {
	want := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"24-08-2026", "24/08/2026", "2026-08-24"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parse %q = %v, want %v", in, got, want)
		}
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, in := range []string{"", "24-13-2026", "yesterday", "08-24-2026"} {
		if _, err := ParseDate(in); err == nil {
			t.Fatalf("parse %q should fail", in)
		}
	}
}

func TestFormatDateRoundTrip(t *testing.T) {
	d := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	got, err := ParseDate(FormatDate(d))
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if !got.Equal(d) {
		t.Fatalf("round trip = %v, want %v", got, d)
	}
}

func TestMondayOf(t *testing.T) {
	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		in   time.Time
	}{
		{"monday itself", monday},
		{"midweek", time.Date(2026, 8, 26, 15, 30, 0, 0, time.UTC)},
		{"saturday", time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)},
		{"sunday", time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := MondayOf(tc.in); !got.Equal(monday) {
			t.Fatalf("%s: MondayOf = %v, want %v", tc.name, got, monday)
		}
	}
}

func TestEndOfDay(t *testing.T) {
	in := time.Date(2026, 8, 24, 9, 15, 0, 0, time.UTC)
	got := EndOfDay(in)
	want := time.Date(2026, 8, 24, 23, 59, 59, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("EndOfDay = %v, want %v", got, want)
	}
}
