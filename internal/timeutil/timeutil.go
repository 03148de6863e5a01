// Package timeutil formats and parses the ISO-8601 create_time column §6 of
// the spec pins down for the cache table.
//
// Adapted from the teacher's internal/time_parser.go: that file converted
// provider-specific duration strings ("1s", "6m0s") to milliseconds, a
// concern this domain no longer has once the per-provider adapters were
// dropped (DESIGN.md). What survives is the general shape — a small
// internal time-helpers file — rebuilt around the RFC3339 timestamp format
// the cache table's create_time column actually needs.
package timeutil

import "time"

// FormatISO8601 renders t as the ISO-8601 string §6 specifies for create_time.
func FormatISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseISO8601 parses a create_time column value back into a time.Time.
func ParseISO8601(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
