package record

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a date string matches none of the
// accepted layouts.
var ErrInvalidDate = errors.New("invalid date")

// dateLayouts are tried in order. Layouts without a zone are read as UTC
// so that a key computed on one machine matches one computed on another.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2 15:04:05",
	"2006-1-2",
	"2006-01",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"1/2/2006 15:04:05",
	"1/2/2006",
	time.RFC1123Z,
	time.RFC1123,
	"Mon Jan _2 2006 15:04:05 GMT-0700",
	"Mon Jan _2 2006 15:04:05",
	"Mon Jan _2 2006",
	"Jan _2, 2006",
	"Jan _2 2006",
	"2 Jan 2006",
}

// ParseTimestamp parses a date string into Unix milliseconds. It accepts
// ISO 8601 forms (with or without zero padding), slash dates in US
// month/day/year order, and the RFC 1123 and "Sun Jan 01 2023" shapes
// browsers print. Leading and trailing whitespace is ignored.
func ParseTimestamp(s string) (int64, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// FormatTimestamp renders a Unix millisecond key as RFC 3339 in UTC.
// ParseTimestamp(FormatTimestamp(k)) == k for every k.
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}
