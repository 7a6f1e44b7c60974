// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package medallion

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// SalesRecord is the validated unit of work. One exists only if all three
// required fields parsed successfully; it is immutable after creation.
type SalesRecord struct {
	OrderID  int64
	SaleDate time.Time // calendar date, UTC midnight
	Amount   float64
	Region   *string // nil when the source has no region column
}

// HasRegion reports whether the record carries a region value.
func (r SalesRecord) HasRegion() bool {
	return r.Region != nil
}

// dateLayouts are tried in order when coercing a string to a calendar date.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006",
	"01/02/2006",
}

// coerceInt64 interprets val as a whole number. Fractional floats, values
// out of int64 range and unparseable strings all fail soft: the caller gets
// ok=false, never an error.
func coerceInt64(val interface{}) (int64, bool) {
	switch v := val.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		return floatToInt64(v)
	case float32:
		return floatToInt64(float64(v))
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		// "3.0" style inputs show up when a numeric column passed
		// through a float representation upstream.
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt64(f)
		}
		return 0, false
	default:
		return 0, false
	}
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// coerceFloat64 interprets val as a finite float.
func coerceFloat64(val interface{}) (float64, bool) {
	var f float64
	switch v := val.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int64:
		f = float64(v)
	case int:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// coerceDate interprets val as a calendar date, discarding any time of day.
func coerceDate(val interface{}) (time.Time, bool) {
	switch v := val.(type) {
	case time.Time:
		return midnightUTC(v), true
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return midnightUTC(t), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// coerceString interprets val as a string attribute. Empty strings are kept;
// only a missing or non-string value fails.
func coerceString(val interface{}) (string, bool) {
	switch v := val.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}
