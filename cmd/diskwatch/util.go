package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// parseSize parses a human-readable size string into bytes.
// Supports formats: "100", "1K", "1MB", "1GiB", etc.
func parseSize(s string) (int64, error) {
	bytes, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(bytes), nil
}

// isoNoTZLayout matches the timezone-free ISO 8601 timestamps --start-report
// and --end-report accept; the system's local timezone is applied to them.
const isoNoTZLayout = "2006-01-02T15:04:05"

// parseLocalTimestamp parses s in isoNoTZLayout against the local timezone.
func parseLocalTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(isoNoTZLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q (want YYYY-MM-DDTHH:MM:SS): %w", s, err)
	}
	return t, nil
}
