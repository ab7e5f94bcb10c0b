// Package normalize converts loosely-typed JSON values into typed scalars.
//
// Every function is total: malformed or missing input never produces an
// error, it produces ok=false (or the zero flag for Flag).
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order before the ISO-8601 fallback. Day-first wins
// over month-first for slash separated input.
var dateLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"2006/1/2",
}

// isoDateLayouts cover the basic (no separator) ISO calendar date.
var isoDateLayouts = []string{
	"20060102",
}

// timestampLayouts accept a 'T' or space separator with or without an offset.
// Offsets may be +hh:mm, +hhmm or +hh. Fractional seconds are accepted after
// the seconds field by time.Parse even when the layout omits them.
var timestampLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05-0700",
	"2006-01-02T15:04:05-07",
	"2006-01-02 15:04:05-07",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04-0700",
	"2006-01-02 15:04-0700",
	"2006-01-02T15:04-07",
	"2006-01-02 15:04-07",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02T15",
	"2006-01-02 15",
	// basic format
	"20060102T150405Z07:00",
	"20060102T150405-0700",
	"20060102T150405-07",
	"20060102T150405",
}

// Date parses v as a calendar date at midnight UTC.
func Date(v any) (time.Time, bool) {
	s, ok := nonEmptyString(v)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, ok := parseTimestamp(s); ok {
		return truncateDay(t), true
	}
	return time.Time{}, false
}

// DateTime parses v as an instant. A bare YYYY-MM-DD is midnight and a
// trailing Z is read as +00:00. Timestamps without an offset are UTC.
func DateTime(v any) (time.Time, bool) {
	s, ok := nonEmptyString(v)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if len(s) == 10 && strings.Count(s, "-") == 2 {
		s += " 00:00:00"
	}
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	return parseTimestamp(s)
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Int converts v to an integer. Floats are truncated toward zero.
func Int(v any) (int64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint32:
		return int64(x), true
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
		if f, err := x.Float64(); err == nil {
			return floatToInt(f)
		}
		return 0, false
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// Float converts v to a float64.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Flag maps exactly true, "true", "1" and the number 1 to 1. Anything else,
// including a missing value, is 0.
func Flag(v any) uint8 {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
	case string:
		if x == "true" || x == "1" {
			return 1
		}
	case json.Number:
		if f, err := x.Float64(); err == nil && f == 1 {
			return 1
		}
	case int:
		if x == 1 {
			return 1
		}
	case int64:
		if x == 1 {
			return 1
		}
	case float64:
		if x == 1 {
			return 1
		}
	}
	return 0
}

// Text renders scalar JSON values as a string. Objects and arrays are absent.
func Text(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
