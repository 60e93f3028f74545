// Package agegroup maps the age representations found across the road-safety
// datasets (exact ages, free-text labels, and several incompatible bucket
// schemes) onto one closed vocabulary per chart family.
package agegroup

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unknown is a member of every vocabulary.
const Unknown = "Unknown"

// Vocabulary selects the closed label set that Canonicalize produces.
type Vocabulary int

const (
	// Dropdown is the vocabulary of the filter controls and of the drug and
	// seatbelt enforcement datasets.
	Dropdown Vocabulary = iota
	// CrashDerived is the vocabulary of the crash-consequence datasets.
	CrashDerived
)

func (v Vocabulary) String() string {
	switch v {
	case Dropdown:
		return "dropdown"
	case CrashDerived:
		return "crash"
	}
	return fmt.Sprintf("Vocabulary(%d)", int(v))
}

// bucket is one range of a vocabulary. upper is the inclusive upper bound used
// by the range-midpoint step; the terminal bucket has upper = +Inf.
type bucket struct {
	label  string
	lo, hi string // boundary numbers for the substring heuristic
	upper  float64
}

var dropdownBuckets = []bucket{
	{label: "Under 18", upper: 17},
	{label: "18-24", lo: "18", hi: "24", upper: 24},
	{label: "25-34", lo: "25", hi: "34", upper: 34},
	{label: "35-44", lo: "35", hi: "44", upper: 44},
	{label: "45-54", lo: "45", hi: "54", upper: 54},
	{label: "55-64", lo: "55", hi: "64", upper: 64},
	{label: "65+", upper: math.Inf(1)},
}

var crashBuckets = []bucket{
	{label: "0-16", lo: "0", hi: "16", upper: 16},
	{label: "17-25", lo: "17", hi: "25", upper: 25},
	{label: "26-39", lo: "26", hi: "39", upper: 39},
	{label: "40-64", lo: "40", hi: "64", upper: 64},
	{label: "65 and over", upper: math.Inf(1)},
}

// crashFromDropdown maps the numeric cut points shared by both vocabularies
// onto the crash label set.
var crashFromDropdown = map[string]string{
	"Under 18": "0-16",
	"18-24":    "17-25",
	"25-34":    "26-39",
	"35-44":    "40-64",
	"45-54":    "40-64",
	"55-64":    "40-64",
	"65+":      "65 and over",
}

func (v Vocabulary) buckets() []bucket {
	if v == CrashDerived {
		return crashBuckets
	}
	return dropdownBuckets
}

// Labels returns the closed label set of v in display order.
func (v Vocabulary) Labels() []string {
	bs := v.buckets()
	labels := make([]string, 0, len(bs)+2)
	for _, b := range bs {
		labels = append(labels, b.label)
	}
	if v == CrashDerived {
		labels = append(labels, "All ages")
	}
	return append(labels, Unknown)
}

// Contains reports whether label is a member of v, compared exactly.
func (v Vocabulary) Contains(label string) bool {
	for _, l := range v.Labels() {
		if l == label {
			return true
		}
	}
	return false
}

func (v Vocabulary) terminal() string {
	bs := v.buckets()
	return bs[len(bs)-1].label
}

func (v Vocabulary) first() string {
	return v.buckets()[0].label
}

// text renders a raw cell value the way it would appear in a CSV column.
func text(raw any) string {
	switch x := raw.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(raw)
}

// Lookup is the exact-match step of Canonicalize: it succeeds only when raw,
// trimmed and compared case-insensitively, already names a label of v.
// "65+" and "65 and over" are aliases in both vocabularies.
func Lookup(raw any, v Vocabulary) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(text(raw)))
	if s == "" {
		return "", false
	}
	if s == "65+" || s == "65 and over" {
		return v.terminal(), true
	}
	for _, l := range v.Labels() {
		if strings.ToLower(l) == s {
			return l, true
		}
	}
	return "", false
}

// Canonicalize maps raw onto a label of v. It never fails: anything it cannot
// place is Unknown. The steps run in a fixed order and the first match wins.
func Canonicalize(raw any, v Vocabulary) string {
	s := strings.ToLower(strings.TrimSpace(text(raw)))
	if s == "" {
		return Unknown
	}
	if l, ok := Lookup(s, v); ok {
		return l
	}
	if l, ok := substring(s, v); ok {
		return l
	}
	if l, ok := midpoint(s, v); ok {
		return l
	}
	if v == CrashDerived {
		if l, ok := keywords(s, v); ok {
			return l
		}
	}
	if age, ok := leadingInt(s); ok {
		return byAge(age, v)
	}
	return Unknown
}

func substring(s string, v Vocabulary) (string, bool) {
	for _, b := range v.buckets() {
		if b.lo == "" {
			continue
		}
		if strings.Contains(s, b.lo) && strings.Contains(s, b.hi) {
			return b.label, true
		}
	}
	if strings.Contains(s, "65") || strings.Contains(s, "over") || strings.Contains(s, "+") {
		return v.terminal(), true
	}
	if strings.Contains(s, "under") && strings.Contains(s, "18") {
		return v.first(), true
	}
	return "", false
}

func midpoint(s string, v Vocabulary) (string, bool) {
	if strings.Count(s, "-") != 1 {
		return "", false
	}
	parts := strings.SplitN(s, "-", 2)
	lo, ok1 := leadingInt(parts[0])
	hi, ok2 := leadingInt(parts[1])
	if !ok1 || !ok2 {
		return "", false
	}
	mid := float64(lo+hi) / 2
	for _, b := range v.buckets() {
		if mid <= b.upper {
			return b.label, true
		}
	}
	return "", false
}

var keywordFamilies = []struct {
	words []string
	index int // -1 means terminal bucket
}{
	{[]string{"under", "child", "teen"}, 0},
	{[]string{"young", "youth"}, 1},
	{[]string{"adult", "middle"}, 2},
	{[]string{"senior", "elderly", "old"}, -1},
}

func keywords(s string, v Vocabulary) (string, bool) {
	bs := v.buckets()
	for _, fam := range keywordFamilies {
		for _, w := range fam.words {
			if !strings.Contains(s, w) {
				continue
			}
			if fam.index < 0 {
				return v.terminal(), true
			}
			return bs[fam.index].label, true
		}
	}
	return "", false
}

// leadingInt parses an optional sign and the digits that follow it, ignoring
// any trailing text ("25 years" → 25).
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func byAge(age int, v Vocabulary) string {
	var l string
	switch {
	case age < 0:
		return Unknown
	case age < 18:
		l = "Under 18"
	case age <= 24:
		l = "18-24"
	case age <= 34:
		l = "25-34"
	case age <= 44:
		l = "35-44"
	case age <= 54:
		l = "45-54"
	case age <= 64:
		l = "55-64"
	default:
		l = "65+"
	}
	if v == CrashDerived {
		return crashFromDropdown[l]
	}
	return l
}

// Match reports whether a record's raw age falls into the bucket named by
// filter. The filter value must already be a label of v (it comes from a
// control populated with v's labels); record values go through the full
// Canonicalize pipeline. A filter that names no bucket of v matches nothing.
func Match(raw any, filter string, v Vocabulary) bool {
	want, ok := Lookup(filter, v)
	if !ok {
		return false
	}
	return Canonicalize(raw, v) == want
}
