package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

const (
	MinRetentionDays     = 0
	MaxRetentionDays     = 3650
	DefaultRetentionDays = 14

	// DayMillis is the length of one retention day in epoch milliseconds.
	DayMillis int64 = 24 * 60 * 60 * 1000
)

// ClampRetentionDays forces days into [MinRetentionDays, MaxRetentionDays].
func ClampRetentionDays(days int) int {
	if days < MinRetentionDays {
		return MinRetentionDays
	}
	if days > MaxRetentionDays {
		return MaxRetentionDays
	}
	return days
}

// ParseRetentionDays parses a retention setting and clamps it. ok is false when
// raw carries no leading integer at all.
func ParseRetentionDays(raw string) (days int, ok bool) {
	n, ok := ParseLeadingInt(raw)
	if !ok {
		return 0, false
	}
	return ClampRetentionDays(n), true
}

// ParseRetentionValue is ParseRetentionDays for a raw JSON value, which may be
// a number or a numeric string.
func ParseRetentionValue(raw json.RawMessage) (int, bool) {
	n, ok := leadingIntValue(raw)
	if !ok {
		return 0, false
	}
	return ClampRetentionDays(n), true
}

// ParseLeadingInt reads an optionally signed run of decimal digits after any
// leading whitespace and ignores whatever follows, so "7", " 7 days" and
// "+7.5" all give 7. Values beyond the int range saturate.
func ParseLeadingInt(raw string) (int, bool) {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	sign := ""
	if s != "" && (s[0] == '-' || s[0] == '+') {
		sign, s = s[:1], s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	n, err := strconv.ParseInt(sign+s[:end], 10, 64)
	if err != nil {
		// Only range errors are possible here.
		if sign == "-" {
			return math.MinInt, true
		}
		return math.MaxInt, true
	}
	if n > math.MaxInt {
		return math.MaxInt, true
	}
	if n < math.MinInt {
		return math.MinInt, true
	}
	return int(n), true
}

// leadingIntValue applies ParseLeadingInt to a JSON number or string.
func leadingIntValue(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		t := math.Trunc(f)
		switch {
		case t >= math.MaxInt:
			return math.MaxInt, true
		case t <= math.MinInt:
			return math.MinInt, true
		}
		return int(t), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseLeadingInt(s)
	}
	return 0, false
}
