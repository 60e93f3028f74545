package chart

import (
	"fmt"
	"math"
	"strconv"
)

var category10 = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

var methodColors = map[string]string{
	"police issued":          "#2E86AB",
	"fixed or mobile camera": "#A23B72",
	"mobile camera":          "#E74C3C",
}

var ageGroupColors = map[string]string{
	"0-16":        "#4CAF50",
	"17-25":       "#2196F3",
	"26-39":       "#FF9800",
	"40-64":       "#9C27B0",
	"65 and over": "#F44336",
	"All ages":    "#607D8B",
	"Unknown":     "#9E9E9E",
}

var (
	severityDomain = []string{"Fatal", "Injury", "Minor", "No Harm", "Property Damage Only"}
	severityRange  = []string{"#d73027", "#fc8d59", "#fee08b", "#d9ef8b", "#91bfdb"}
)

// ordinal assigns colors the way an ordinal scale with an implicit domain
// does: known keys keep their slot, new keys take the next slot in order of
// first use, wrapping around the range.
type ordinal struct {
	domain []string
	rng    []string
}

func newOrdinal(domain, rng []string) *ordinal {
	return &ordinal{domain: append([]string(nil), domain...), rng: rng}
}

func (o *ordinal) color(key string) string {
	for i, k := range o.domain {
		if k == key {
			return o.rng[i%len(o.rng)]
		}
	}
	o.domain = append(o.domain, key)
	return o.rng[(len(o.domain)-1)%len(o.rng)]
}

func lookupColor(m map[string]string, key, fallback string) string {
	if c, ok := m[key]; ok {
		return c
	}
	return fallback
}

// blueStops is the nine-class sequential blue scheme.
var blueStops = []string{
	"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6",
	"#4292c6", "#2171b5", "#08519c", "#08306b",
}

// blues maps t in [0,1] onto the upper 80% of the blue scheme so that the
// smallest value is still visibly tinted.
func blues(t float64) string {
	t = math.Max(0, math.Min(1, t))
	t = 0.2 + 0.8*t
	pos := t * float64(len(blueStops)-1)
	i := int(math.Floor(pos))
	if i >= len(blueStops)-1 {
		return blueStops[len(blueStops)-1]
	}
	frac := pos - float64(i)
	a, b := parseHex(blueStops[i]), parseHex(blueStops[i+1])
	var c [3]uint8
	for k := range c {
		c[k] = uint8(math.Round(float64(a[k]) + frac*(float64(b[k])-float64(a[k]))))
	}
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

func parseHex(s string) [3]uint8 {
	var c [3]uint8
	if len(s) != 7 || s[0] != '#' {
		return c
	}
	for k := range c {
		v, err := strconv.ParseUint(s[1+2*k:3+2*k], 16, 8)
		if err == nil {
			c[k] = uint8(v)
		}
	}
	return c
}
