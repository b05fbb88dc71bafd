package database

import (
	"fmt"
	"time"
)

// timestampFormats contains the timestamp formats the backends may return
// as text. The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
	"2006-01-02 15:04:05.999999999-07:00",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// nullTime scans a nullable timestamp column. modernc.org/sqlite returns
// DATETIME columns as time.Time or as text depending on how the value was
// written, while lib/pq always returns time.Time.
type nullTime struct {
	Time *time.Time
}

// Scan implements sql.Scanner.
func (n *nullTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		n.Time = nil
	case time.Time:
		t := v
		n.Time = &t
	case string:
		t := parseTimestamp(v)
		n.Time = &t
	case []byte:
		t := parseTimestamp(string(v))
		n.Time = &t
	default:
		return fmt.Errorf("unsupported timestamp type %T", value)
	}
	return nil
}
