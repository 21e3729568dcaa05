package main

import (
	"testing"
	"time"
)

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"100", 100},
		{"1K", 1000},
		{"1KiB", 1024},
		{"1MB", 1000000},
		{"50M", 50000000},
	}
	for _, c := range cases {
		got, err := parseSize(c.in)
		if err != nil {
			t.Errorf("parseSize(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("parseSize(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseSizeRejectsGarbage(t *testing.T) {
	if _, err := parseSize("not-a-size"); err == nil {
		t.Error("expected an error for an unparseable size string")
	}
}

func TestParseLocalTimestamp(t *testing.T) {
	got, err := parseLocalTimestamp("2026-03-05T14:30:00")
	if err != nil {
		t.Fatalf("parseLocalTimestamp: %v", err)
	}
	want := time.Date(2026, 3, 5, 14, 30, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("parseLocalTimestamp = %v, want %v", got, want)
	}
}

func TestParseLocalTimestampRejectsTimezoneSuffix(t *testing.T) {
	if _, err := parseLocalTimestamp("2026-03-05T14:30:00Z"); err == nil {
		t.Error("expected an error for a timestamp carrying a timezone suffix")
	}
}

func TestParseLocalTimestampRejectsMalformed(t *testing.T) {
	if _, err := parseLocalTimestamp("not-a-timestamp"); err == nil {
		t.Error("expected an error for a malformed timestamp")
	}
}
