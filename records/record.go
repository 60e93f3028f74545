// Package records holds the generic tabular row type shared by every dataset
// family and the grouping/summing used by every chart.
package records

import (
	"math"
	"strconv"
	"strings"
)

// Record is one row of a dataset: column name to a float64, a string, or nil
// when the cell was empty.
type Record map[string]any

// Has reports whether col is present and non-empty.
func (r Record) Has(col string) bool {
	v, ok := r[col]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// First returns the value of the first column in cols that is present and
// non-empty.
func (r Record) First(cols ...string) (any, bool) {
	for _, c := range cols {
		if r.Has(c) {
			return r[c], true
		}
	}
	return nil, false
}

// String returns col formatted as text. Integral numbers print without a
// decimal point so that a YEAR of 2021 reads "2021".
func (r Record) String(col string) string {
	return Format(r[col])
}

// Key is like String but tries each column in turn.
func (r Record) Key(cols ...string) string {
	v, ok := r.First(cols...)
	if !ok {
		return ""
	}
	return Format(v)
}

// Number returns col as a float64. Missing and non-numeric cells are 0.
func (r Record) Number(col string) float64 {
	return ToNumber(r[col])
}

// Format renders a cell value as text.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

// ToNumber converts a cell value to a number, treating anything that does
// not parse as 0.
func ToNumber(v any) float64 {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0
		}
		return x
	case int:
		return float64(x)
	case string:
		f, ok := ParseNumber(x)
		if !ok {
			return 0
		}
		return f
	}
	return 0
}

// ParseNumber parses a numeric cell, tolerating thousands separators.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// AutoType converts a raw CSV cell the way the dashboard's loader always has:
// empty cells become nil, numeric cells float64, everything else a trimmed
// string.
func AutoType(cell string) any {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return cell
}
