// Package coerce turns loosely typed listing fields into numbers.
//
// Listing data arrives from scraped pages, hand-edited JSON and form posts, so
// the same field can be a number, a currency string, a distance string or a
// placeholder such as "N/A". Every function here is total: a value that cannot
// be read reports ok=false and the caller treats the field as missing.
package coerce

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// trailing per-period unit, e.g. "/mo", "/ month", "per month".
	periodSuffix = regexp.MustCompile(`(?i)\s*(?:/\s*|per\s+)(?:mo|month|mon|wk|week|yr|year)\.?\s*$`)
	// a dash between two amounts marks a range; the lower bound is kept.
	rangeSep = regexp.MustCompile(`\s*[-–—]\s*|\s+to\s+`)
	isoPrefix = regexp.MustCompile(`(?i)^(?:usd|us\$|cad|eur|gbp)\s*`)

	currencySymbols = strings.NewReplacer(
		"$", "", "€", "", "£", "", "¥", "", "₹", "",
		",", "", " ", "", " ", "",
	)

	firstNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

	// plain decimal notation only; strconv alone would also take hex
	// floats, "Inf" and "NaN".
	decimal = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`)
)

// Currency reads a rent-like value. Strings such as "$1,234.56/mo" or
// "$1,000 - $1,200" are accepted; ranges yield their lower bound.
func Currency(v any) (float64, bool) {
	if f, ok := numeric(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}

	s = strings.TrimSpace(s)
	if s == "" || isPlaceholder(s) {
		return 0, false
	}
	s = periodSuffix.ReplaceAllString(s, "")
	s = isoPrefix.ReplaceAllString(s, "")
	if parts := rangeSep.Split(s, 2); len(parts) == 2 && parts[0] != "" {
		s = parts[0]
	}
	s = strings.TrimSuffix(currencySymbols.Replace(s), "+")
	return parseDecimal(s)
}

// Distance reads a commute distance. Strings yield their first numeric
// literal, so "5.2 mi" and "12 miles" both work.
func Distance(v any) (float64, bool) {
	if f, ok := numeric(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" || isPlaceholder(s) {
		return 0, false
	}
	m := firstNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Number reads a numeric-or-placeholder value. Numeric strings are parsed,
// placeholders and anything else report false.
func Number(v any) (float64, bool) {
	if f, ok := numeric(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || isPlaceholder(s) {
		return 0, false
	}
	return parseDecimal(s)
}

// Count reads a non-negative whole count such as a bedroom or occupant
// number. Fractions like 2.5 are rejected rather than truncated. The -1
// "unknown" sentinel used by scraped records reports false.
func Count(v any) (int, bool) {
	f, ok := Number(v)
	if !ok || f < 0 || f > math.MaxInt32 || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func parseDecimal(s string) (float64, bool) {
	if !decimal.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(f) {
		return 0, false
	}
	return f, true
}

func numeric(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	return f, finite(f)
}

func isPlaceholder(s string) bool {
	switch strings.ToLower(s) {
	case "n/a", "na", "none", "null", "-", "not listed", "unknown":
		return true
	}
	return false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
