// Package filter defines the canonical cross-chart filter state and its
// transitions.
//
// A State is a plain value: every transition returns a new State and no
// chart can mutate the one it was handed.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDimension is returned when a control names a dimension that is
// not part of the filter state.
var ErrUnknownDimension = errors.New("unknown filter dimension")

// Dimension names one filterable attribute.
type Dimension string

const (
	Year            Dimension = "year"
	AgeGroup        Dimension = "ageGroup"
	Jurisdiction    Dimension = "jurisdiction"
	Region          Dimension = "region"
	ViolationType   Dimension = "violationType"
	DetectionMethod Dimension = "detectionMethod"
	// Severity is never a control; it only keys the donut chart's selection.
	Severity Dimension = "severity"
)

// Dimensions lists the dimensions carried by State, in display order.
var Dimensions = []Dimension{Year, AgeGroup, Jurisdiction, Region, ViolationType, DetectionMethod}

// ParseDimension validates a dimension name.
func ParseDimension(s string) (Dimension, error) {
	for _, d := range Dimensions {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDimension, s)
}

// Violation discriminates the two enforcement families.
type Violation string

const (
	Drug     Violation = "drug"
	Seatbelt Violation = "seatbelt"
)

// ParseViolation accepts "drug" or "seatbelt", case-insensitively.
func ParseViolation(s string) (Violation, bool) {
	switch Violation(strings.ToLower(strings.TrimSpace(s))) {
	case Drug:
		return Drug, true
	case Seatbelt:
		return Seatbelt, true
	}
	return "", false
}

// State is the active filter snapshot shared by a family of charts. An empty
// field places no constraint on its dimension.
type State struct {
	Year            string    `json:"year,omitempty" yaml:"year,omitempty"`
	AgeGroup        string    `json:"ageGroup,omitempty" yaml:"ageGroup,omitempty"`
	Jurisdiction    string    `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`
	Region          string    `json:"region,omitempty" yaml:"region,omitempty"`
	Violation       Violation `json:"violationType" yaml:"violationType"`
	DetectionMethod string    `json:"detectionMethod,omitempty" yaml:"detectionMethod,omitempty"`
}

// Default is the state at page load and after a reset.
func Default() State {
	return State{Violation: Drug}
}

// Get returns the value of d. "All" is reported as empty.
func (s State) Get(d Dimension) string {
	switch d {
	case Year:
		return s.Year
	case AgeGroup:
		return s.AgeGroup
	case Jurisdiction:
		return s.Jurisdiction
	case Region:
		return s.Region
	case ViolationType:
		return string(s.Violation)
	case DetectionMethod:
		return s.DetectionMethod
	}
	return ""
}

// Has reports whether d is constrained.
func (s State) Has(d Dimension) bool { return s.Get(d) != "" }

// With returns a copy of s with d set to value. "All" and surrounding space
// are normalized to no constraint. Setting an unknown dimension, or an
// invalid violation type, returns s unchanged.
func (s State) With(d Dimension, value string) State {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "all") {
		value = ""
	}
	switch d {
	case Year:
		s.Year = value
	case AgeGroup:
		s.AgeGroup = value
	case Jurisdiction:
		s.Jurisdiction = value
	case Region:
		s.Region = value
	case ViolationType:
		if value == "" {
			s.Violation = Drug
			break
		}
		if v, ok := ParseViolation(value); ok {
			s.Violation = v
		}
	case DetectionMethod:
		s.DetectionMethod = value
	}
	return s
}

// Without returns a copy of s with the given dimensions cleared. Clearing
// ViolationType restores the default violation.
func (s State) Without(dims ...Dimension) State {
	for _, d := range dims {
		s = s.With(d, "")
	}
	return s
}

// Merge returns s with every entry of delta applied.
func (s State) Merge(delta Delta) State {
	for _, d := range Dimensions {
		if v, ok := delta[d]; ok {
			s = s.With(d, v)
		}
	}
	return s
}

// Describe renders the active year, age and region constraints for chart
// subtitles, or "All Data".
func (s State) Describe() string {
	var parts []string
	if s.Year != "" {
		parts = append(parts, "Year: "+s.Year)
	}
	if s.AgeGroup != "" {
		parts = append(parts, "Age: "+s.AgeGroup)
	}
	if s.Region != "" {
		parts = append(parts, "Region: "+s.Region)
	}
	if s.Jurisdiction != "" {
		parts = append(parts, "Jurisdiction: "+s.Jurisdiction)
	}
	if s.DetectionMethod != "" {
		parts = append(parts, "Method: "+s.DetectionMethod)
	}
	if len(parts) == 0 {
		return "All Data"
	}
	return strings.Join(parts, " | ")
}

// Delta is a partial state. A present key with an empty value clears that
// dimension.
type Delta map[Dimension]string

// Dims returns the dimensions the delta touches, in State order.
func (d Delta) Dims() []Dimension {
	var out []Dimension
	for _, dim := range Dimensions {
		if _, ok := d[dim]; ok {
			out = append(out, dim)
		}
	}
	return out
}

// Clears reports whether every entry of d clears its dimension.
func (d Delta) Clears() bool {
	for _, v := range d {
		if v != "" {
			return false
		}
	}
	return true
}
