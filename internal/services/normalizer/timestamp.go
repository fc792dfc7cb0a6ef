package normalizer

import (
	"strconv"
	"strings"
	"time"
)

// unixMillisThreshold separates unix seconds from unix milliseconds.
const unixMillisThreshold = 1e12

var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02-15-04-05",
}

// ParseTimestamp converts a raw timestamp value into a UTC instant.
// Accepts unix seconds, unix milliseconds (split at ~1e12), and the
// ISO-8601 variants the venues emit. Returns false when unparseable, which
// excludes the record downstream.
func ParseTimestamp(value any) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return v.UTC(), true
	case int:
		return fromUnix(float64(v)), true
	case int64:
		return fromUnix(float64(v)), true
	case float64:
		return fromUnix(v), true
	case string:
		return parseText(v)
	}
	return time.Time{}, false
}

func parseText(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	if isDigits(text) {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return fromUnix(float64(n)), true
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func fromUnix(ts float64) time.Time {
	if ts > unixMillisThreshold {
		ts = ts / 1000.0
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
